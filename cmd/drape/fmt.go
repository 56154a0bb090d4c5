package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kr/pretty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/vito/drape/pkg/config"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/ioctx"
	"github.com/vito/drape/pkg/rawtree"
	"github.com/vito/drape/pkg/rules"
	"github.com/vito/drape/pkg/runner"
)

type fmtFlags struct {
	write bool
	list  bool
	check bool

	language   string
	configPath string
	collation  config.Collation
	query      string

	width           int
	indentWidth     int
	tabs            bool
	skipIdempotence bool
	tolerate        bool
	jobs            int

	tree  string
	rules string
	atoms bool
}

func fmtCmd() *cobra.Command {
	var flags fmtFlags

	cmd := &cobra.Command{
		Use:   "fmt [flags] [path...|-]",
		Short: "Format source files",
		Long: `Format source files with the query configured for their language.

By default, fmt prints the formatted source to stdout; with no paths it reads
stdin, which requires --language. Use -w to write results back to the source
files, -l to list files that would change, or --check to fail when any would.

With --tree and --rules, fmt formats a syntax tree exported in the JSON tree
format (see "drape tree") using a YAML rule set instead of a query.`,
		Example: `  # Format a file and print to stdout
  drape fmt package.json

  # Format stdin
  echo '{"a":1}' | drape fmt --language json

  # Fail in CI when files need formatting
  drape fmt --check .

  # Show the layout atoms of a file
  drape fmt --atoms --width 40 data.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args, flags)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.write, "write", "w", false, "Write result to source files instead of stdout")
	f.BoolVarP(&flags.list, "list", "l", false, "List files whose formatting differs")
	f.BoolVar(&flags.check, "check", false, "Exit with an error if any file would be reformatted")
	f.StringVar(&flags.language, "language", "", "Format as this language instead of detecting by extension")
	f.StringVar(&flags.configPath, "config", "", "Additional languages.toml with the highest priority")
	f.Var(&flags.collation, "collation", "How configuration sources combine: merge or override")
	f.StringVar(&flags.query, "query", "", "Formatting query to use instead of the configured one")
	f.IntVar(&flags.width, "width", 0, "Line width (default from configuration, then 80)")
	f.IntVar(&flags.indentWidth, "indent-width", 0, "Columns per indentation level")
	f.BoolVar(&flags.tabs, "tabs", false, "Indent with tabs")
	f.BoolVar(&flags.skipIdempotence, "skip-idempotence", false, "Skip the second formatting pass")
	f.BoolVar(&flags.tolerate, "tolerate-parse-errors", false, "Format files even if they contain syntax errors")
	f.IntVar(&flags.jobs, "jobs", 0, "Files formatted concurrently (default GOMAXPROCS)")
	f.StringVar(&flags.tree, "tree", "", "Format a JSON syntax tree instead of source files")
	f.StringVar(&flags.rules, "rules", "", "YAML rule set used with --tree")
	f.BoolVar(&flags.atoms, "atoms", false, "Print layout atoms instead of formatted text")

	cmd.MarkFlagsMutuallyExclusive("write", "list", "check")
	cmd.MarkFlagsRequiredTogether("tree", "rules")

	return cmd
}

func (flags fmtFlags) override(opts *drape.Options) {
	if flags.width > 0 {
		opts.LineWidth = flags.width
	}
	if flags.indentWidth > 0 {
		opts.IndentWidth = flags.indentWidth
		opts.Indent = ""
	}
	if flags.tabs {
		opts.Indent = "\t"
	}
	opts.SkipIdempotence = opts.SkipIdempotence || flags.skipIdempotence
}

func (flags fmtFlags) mode() runner.Mode {
	switch {
	case flags.write:
		return runner.Write
	case flags.list:
		return runner.List
	case flags.check:
		return runner.Check
	default:
		return runner.Print
	}
}

func runFmt(cmd *cobra.Command, args []string, flags fmtFlags) error {
	ctx := cmd.Context()
	stdout := ioctx.StdoutFromContext(ctx)

	if flags.tree != "" {
		return formatTree(stdout, flags)
	}

	cfg, err := config.Fetch(flags.configPath, flags.collation)
	if err != nil {
		return err
	}
	env, err := config.LoadEnv(nil)
	if err != nil {
		return err
	}

	if flags.atoms {
		return dumpSourceAtoms(cmd, args, cfg, env, flags)
	}

	r := &runner.Runner{
		Fs:                  afero.NewOsFs(),
		Config:              cfg,
		Env:                 env,
		Mode:                flags.mode(),
		Language:            flags.language,
		Query:               flags.query,
		Override:            flags.override,
		TolerateParseErrors: flags.tolerate,
		Jobs:                flags.jobs,
	}
	sum, err := r.Run(ctx, args)
	if errors.Is(err, runner.ErrUnformatted) && flags.check {
		stderr := ioctx.StderrFromContext(ctx)
		for _, path := range sum.Changed() {
			fmt.Fprintln(stderr, "would reformat", path)
		}
		return fmt.Errorf("%d file(s) would be reformatted", len(sum.Changed()))
	}
	return err
}

func formatTree(stdout io.Writer, flags fmtFlags) error {
	doc, err := os.ReadFile(flags.tree)
	if err != nil {
		return err
	}
	tree, err := rawtree.Parse(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", flags.tree, err)
	}
	rs, err := rules.Load(flags.rules)
	if err != nil {
		return err
	}
	matches := rs.Match(tree)

	if flags.atoms {
		return dumpAtoms(stdout, tree, matches)
	}

	var opts drape.Options
	flags.override(&opts)
	res, err := drape.Format(tree, matches, opts)
	if err != nil {
		return err
	}
	reportDiagnostics(flags.tree, res.Diagnostics)
	_, err = io.WriteString(stdout, res.Text)
	return err
}

func dumpSourceAtoms(cmd *cobra.Command, args []string, cfg *config.Config, env config.Env, flags fmtFlags) error {
	if len(args) > 1 {
		return fmt.Errorf("--atoms takes a single file")
	}
	path := runner.Stdin
	if len(args) == 1 {
		path = args[0]
	}

	var (
		lang *config.Language
		err  error
	)
	if flags.language != "" {
		lang, err = cfg.Language(flags.language)
	} else if path == runner.Stdin {
		err = fmt.Errorf("reading stdin requires --language")
	} else {
		lang, err = cfg.Detect(path)
	}
	if err != nil {
		return err
	}
	if flags.query != "" {
		query, err := filepath.Abs(flags.query)
		if err != nil {
			return err
		}
		copied := *lang
		copied.Query = query
		copied.Rules = ""
		lang = &copied
		env.LanguageDir = ""
	}

	f, err := lang.Load(env, flags.tolerate)
	if err != nil {
		return err
	}
	defer f.Close()

	var source []byte
	if path == runner.Stdin {
		source, err = io.ReadAll(ioctx.StdinFromContext(cmd.Context()))
	} else {
		source, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	tree, matches, err := f.Frontend.Parse(source)
	if err != nil {
		return err
	}
	return dumpAtoms(ioctx.StdoutFromContext(cmd.Context()), tree, matches)
}

func dumpAtoms(w io.Writer, tree *drape.Tree, matches []drape.Match) error {
	layout, err := drape.Resolve(tree, matches)
	if err != nil {
		return err
	}
	for _, e := range layout.Edges() {
		slog.Debug("edge", "edge", e, "layout", pretty.Sprintf("%# v", layout.At(e)))
	}
	atoms, diags := drape.Render(tree, layout)
	for _, a := range atoms {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	reportDiagnostics("", append(layout.Diagnostics, diags...))
	return nil
}
