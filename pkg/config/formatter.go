package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/rules"
	"github.com/vito/drape/pkg/sitter"
)

// Formatter is a language with its frontend loaded.
type Formatter struct {
	Language *Language
	Frontend drape.Frontend
	Options  drape.Options

	// Sitter is the underlying tree-sitter frontend; with rules it only
	// parses.
	Sitter *sitter.Frontend
}

// Load prepares a formatter for the language. The query is taken from
// $DRAPE_LANGUAGE_DIR/<name>.scm if present, then from the configured query
// or rules file, then from the query shipped with the grammar.
func (l *Language) Load(env Env, tolerateParseErrors bool) (*Formatter, error) {
	f := &Formatter{
		Language: l,
		Options:  l.Options(env),
	}

	if l.Rules != "" {
		rs, err := rules.Load(l.resolve(l.Rules))
		if err != nil {
			return nil, errors.Wrapf(err, "language %s", l.Name)
		}
		fe, err := sitter.New(l.GrammarName(), "")
		if err != nil {
			return nil, errors.Wrapf(err, "language %s", l.Name)
		}
		fe.TolerateParseErrors = tolerateParseErrors
		f.Sitter = fe
		f.Frontend = rules.Frontend{Rules: rs, Parser: fe.ParseTree}
		return f, nil
	}

	query, origin, err := l.QuerySource(env)
	if err != nil {
		return nil, err
	}
	slog.Debug("loading query", "language", l.Name, "from", origin)

	fe, err := sitter.New(l.GrammarName(), query)
	if err != nil {
		return nil, errors.Wrapf(err, "language %s (%s)", l.Name, origin)
	}
	fe.TolerateParseErrors = tolerateParseErrors
	f.Sitter = fe
	f.Frontend = fe
	return f, nil
}

// QuerySource finds the formatting query for the language, returning its
// content and where it came from.
func (l *Language) QuerySource(env Env) (string, string, error) {
	if env.LanguageDir != "" {
		path := filepath.Join(env.LanguageDir, l.Name+".scm")
		content, err := os.ReadFile(path)
		if err == nil {
			return string(content), path, nil
		}
		if !os.IsNotExist(err) {
			return "", "", err
		}
	}
	if l.Query != "" {
		path := l.resolve(l.Query)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", "", errors.Wrapf(err, "language %s", l.Name)
		}
		return string(content), path, nil
	}
	if query, ok := sitter.BuiltinQuery(l.GrammarName()); ok {
		return query, "built-in", nil
	}
	return "", "", fmt.Errorf("no query for language %s", l.Name)
}

func (l *Language) resolve(path string) string {
	if filepath.IsAbs(path) || l.dir == "" {
		return path
	}
	return filepath.Join(l.dir, path)
}

// Format formats source with the language's frontend and options.
func (f *Formatter) Format(source []byte) (*drape.Result, error) {
	return drape.FormatSource(f.Frontend, source, f.Options)
}

// Close releases the compiled query.
func (f *Formatter) Close() {
	if f.Sitter != nil {
		f.Sitter.Close()
	}
}
