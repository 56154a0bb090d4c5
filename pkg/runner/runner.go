// Package runner formats files in bulk.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/spf13/afero"
	"github.com/vito/drape/pkg/config"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/ioctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/vito/drape/pkg/runner")

// Stdin is the path that stands for standard input.
const Stdin = "-"

// Mode decides what happens with formatted output.
type Mode int

const (
	// Print writes formatted output to stdout.
	Print Mode = iota
	// Write rewrites files in place.
	Write
	// List prints the names of files whose formatting differs.
	List
	// Check reports files whose formatting differs without touching them.
	Check
)

// ErrUnformatted is returned in List and Check modes when any file would
// change.
var ErrUnformatted = errors.New("files are not formatted")

// Runner formats a set of paths.
type Runner struct {
	Fs     afero.Fs
	Config *config.Config
	Env    config.Env
	Mode   Mode

	// Language forces a language instead of detecting it by extension. It
	// is required when reading stdin.
	Language string

	// Query replaces the configured query for every language.
	Query string

	// Override adjusts the options of every language.
	Override func(*drape.Options)

	TolerateParseErrors bool

	// Jobs limits concurrent files; zero means GOMAXPROCS.
	Jobs int

	mu         sync.Mutex
	formatters map[string]*formatterOnce
}

type formatterOnce struct {
	once sync.Once
	f    *config.Formatter
	err  error
}

// FileResult is the outcome of formatting one file.
type FileResult struct {
	Path        string
	Changed     bool
	Diagnostics []*drape.FormatError
	Err         error
}

// Summary collects results in path order.
type Summary struct {
	Files []FileResult
}

// Changed lists the paths whose formatting differs.
func (s Summary) Changed() []string {
	var paths []string
	for _, f := range s.Files {
		if f.Changed {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// Err joins every per-file error.
func (s Summary) Err() error {
	var errs []error
	for _, f := range s.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}
	return errors.Join(errs...)
}

// Run formats every path. Directories are walked for files with a configured
// extension. Output goes to the stdout in ctx.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	files, err := r.expand(paths)
	if err != nil {
		return Summary{}, err
	}
	if r.Mode == Print && len(files) > 1 {
		return Summary{}, fmt.Errorf("cannot print %d files to stdout; use --write, --list or --check", len(files))
	}
	defer r.Close()

	results := make([]FileResult, len(files))

	jobs := r.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, path := range files {
		eg.Go(func() error {
			results[i] = r.file(gctx, path)
			return gctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{Files: results}
	stdout := ioctx.StdoutFromContext(ctx)
	for _, res := range sum.Files {
		for _, d := range res.Diagnostics {
			slog.Warn("unsupported construct", "path", res.Path, "error", d)
		}
		if res.Changed && r.Mode == List {
			fmt.Fprintln(stdout, res.Path)
		}
	}
	if err := sum.Err(); err != nil {
		return sum, err
	}
	if len(sum.Changed()) > 0 && (r.Mode == List || r.Mode == Check) {
		return sum, ErrUnformatted
	}
	return sum, nil
}

func (r *Runner) expand(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{Stdin}
	}
	var files []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, p := range paths {
		if p == Stdin {
			if r.Language == "" {
				return nil, fmt.Errorf("reading stdin requires --language")
			}
			if r.Mode == Write {
				return nil, fmt.Errorf("cannot write stdin in place")
			}
			add(p)
			continue
		}
		info, err := r.Fs.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		var found []string
		err = afero.Walk(r.Fs, p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path != p && isHidden(info.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if _, err := r.Config.Detect(path); err == nil {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}

func (r *Runner) file(ctx context.Context, path string) (res FileResult) {
	ctx, span := tracer.Start(ctx, "format "+path)
	defer func() {
		span.SetAttributes(attribute.Bool("drape.changed", res.Changed))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
	}()

	res.Path = path

	f, err := r.formatter(path)
	if err != nil {
		res.Err = err
		return
	}
	span.SetAttributes(attribute.String("drape.language", f.Language.Name))

	var source []byte
	if path == Stdin {
		source, err = io.ReadAll(ioctx.StdinFromContext(ctx))
	} else {
		source, err = afero.ReadFile(r.Fs, path)
	}
	if err != nil {
		res.Err = err
		return
	}

	out, err := f.Format(source)
	if err != nil {
		res.Err = err
		return
	}
	res.Diagnostics = out.Diagnostics
	res.Changed = !bytes.Equal(source, []byte(out.Text))

	switch r.Mode {
	case Print:
		_, res.Err = io.WriteString(ioctx.StdoutFromContext(ctx), out.Text)
	case Write:
		if res.Changed {
			res.Err = r.write(path, out.Text)
		}
	}
	return
}

func (r *Runner) write(path string, text string) error {
	info, err := r.Fs.Stat(path)
	if err != nil {
		return err
	}
	slog.Info("formatted", "path", path)
	return afero.WriteFile(r.Fs, path, []byte(text), info.Mode().Perm())
}

// formatter loads the formatter for a path once per language.
func (r *Runner) formatter(path string) (*config.Formatter, error) {
	var (
		lang *config.Language
		err  error
	)
	if r.Language != "" {
		lang, err = r.Config.Language(r.Language)
	} else {
		lang, err = r.Config.Detect(path)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.formatters == nil {
		r.formatters = map[string]*formatterOnce{}
	}
	fo, ok := r.formatters[lang.Name]
	if !ok {
		fo = &formatterOnce{}
		r.formatters[lang.Name] = fo
	}
	r.mu.Unlock()

	fo.once.Do(func() {
		env := r.Env
		if r.Query != "" {
			query, err := filepath.Abs(r.Query)
			if err != nil {
				fo.err = err
				return
			}
			copied := *lang
			copied.Query = query
			copied.Rules = ""
			lang = &copied
			env.LanguageDir = ""
		}
		fo.f, fo.err = lang.Load(env, r.TolerateParseErrors)
		if fo.err == nil && r.Override != nil {
			r.Override(&fo.f.Options)
		}
	})
	return fo.f, fo.err
}

// Close releases loaded formatters.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fo := range r.formatters {
		if fo.f != nil {
			fo.f.Close()
		}
	}
	r.formatters = nil
}
