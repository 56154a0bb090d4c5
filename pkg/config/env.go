package config

import (
	"os"

	"github.com/mstoykov/envconfig"
	"github.com/vito/drape/pkg/drape"
)

// Env holds overrides taken from the environment.
type Env struct {
	LineWidth   int    `envconfig:"DRAPE_LINE_WIDTH"`
	IndentWidth int    `envconfig:"DRAPE_INDENT_WIDTH"`
	LanguageDir string `envconfig:"DRAPE_LANGUAGE_DIR"`
}

// LoadEnv reads Env through lookup, or the process environment if lookup is
// nil.
func LoadEnv(lookup func(string) (string, bool)) (Env, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var env Env
	if err := envconfig.Process("", &env, lookup); err != nil {
		return Env{}, err
	}
	return env, nil
}

// Options builds format options for the language. Environment overrides win
// over the configuration files.
func (l *Language) Options(env Env) drape.Options {
	opts := drape.Options{
		LineWidth: l.LineWidth,
		Indent:    l.Indent,
	}
	if l.Indent == "\t" {
		opts.IndentWidth = drape.DefaultIndentWidth
	} else if l.Indent != "" {
		opts.IndentWidth = len(l.Indent)
	}
	if env.LineWidth > 0 {
		opts.LineWidth = env.LineWidth
	}
	if env.IndentWidth > 0 {
		opts.IndentWidth = env.IndentWidth
		if l.Indent != "\t" {
			opts.Indent = ""
		}
	}
	return opts
}
