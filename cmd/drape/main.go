package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/ioctx"
)

// Set with -ldflags.
var (
	version = "v0.1.0"
	commit  = "dev"
)

// Globals holds flags shared by every subcommand.
type Globals struct {
	Debug bool
}

var errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

func main() {
	ctx := ioctx.WithStdio(context.Background(), os.Stdin, os.Stdout, os.Stderr)

	if err := fang.Execute(ctx, rootCmd(),
		fang.WithVersion(version),
		fang.WithCommit(commit),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, errorStyle.Render("error:"), err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var globals Globals

	root := &cobra.Command{
		Use:   "drape",
		Short: "Query-driven code formatter",
		Long: `drape formats source code by laying out its syntax tree according to
formatting queries: captures on tree-sitter nodes decide where spaces,
line breaks, soft line breaks and indentation go.`,
		Example: `  # Format a file and print to stdout
  drape fmt config.json

  # Format every configured file under a directory in place
  drape fmt -w ./src

  # Show the collated language configuration
  drape config`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(ioctx.StderrFromContext(cmd.Context()), globals.Debug)
		},
	}

	root.PersistentFlags().BoolVarP(&globals.Debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(
		fmtCmd(),
		lspCmd(&globals),
		configCmd(),
		treeCmd(),
	)
	return root
}

func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}

	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	})))
}

func reportDiagnostics(path string, diags []*drape.FormatError) {
	for _, d := range diags {
		slog.Warn("unsupported construct", "path", path, "error", d)
	}
}
