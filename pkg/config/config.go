// Package config loads language configuration from languages.toml files.
package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Language configures formatting for one language.
type Language struct {
	Name string `toml:"name"`
	// Extensions are matched against file names, without the leading dot.
	Extensions []string `toml:"extensions,omitempty"`
	// Indent is the indentation unit, e.g. "  " or "\t".
	Indent string `toml:"indent,omitempty"`
	// LineWidth overrides the default line width.
	LineWidth int `toml:"line_width,omitempty"`
	// Grammar names the tree-sitter grammar; defaults to Name.
	Grammar string `toml:"grammar,omitempty"`
	// Query is a path to a formatting query, relative to the file that
	// configured it.
	Query string `toml:"query,omitempty"`
	// Rules is a path to a YAML rule set, used instead of a query.
	Rules string `toml:"rules,omitempty"`

	// dir is the directory of the source that last set Query or Rules.
	dir string
}

// GrammarName returns the grammar the language is parsed with.
func (l *Language) GrammarName() string {
	if l.Grammar != "" {
		return l.Grammar
	}
	return l.Name
}

// Config is a collated set of language configurations.
type Config struct {
	Languages []*Language `toml:"language"`

	sources   []Source
	collation Collation
}

// Decode parses a single languages.toml document.
func Decode(content []byte) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(bytes.NewReader(content)).Decode(&cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	for i, l := range cfg.Languages {
		if l.Name == "" {
			return nil, fmt.Errorf("language %d has no name", i+1)
		}
	}
	return &cfg, nil
}

// Fetch loads every configuration source (see Sources) and collates them.
func Fetch(explicit string, collation Collation) (*Config, error) {
	sources, err := Sources(explicit)
	if err != nil {
		return nil, err
	}
	return Collate(sources, collation)
}

// Collate combines sources given in priority order, lowest first.
func Collate(sources []Source, collation Collation) (*Config, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no configuration sources")
	}
	if collation == Override {
		sources = sources[len(sources)-1:]
	}

	merged := &Config{collation: collation}
	byName := map[string]*Language{}
	for _, src := range sources {
		cfg, err := Decode(src.Content)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", src)
		}
		for _, l := range cfg.Languages {
			l.dir = src.Dir
			existing, ok := byName[l.Name]
			if !ok {
				byName[l.Name] = l
				merged.Languages = append(merged.Languages, l)
				continue
			}
			existing.merge(l)
		}
	}
	merged.sources = sources
	return merged, nil
}

func (l *Language) merge(other *Language) {
	for _, ext := range other.Extensions {
		if !contains(l.Extensions, ext) {
			l.Extensions = append(l.Extensions, ext)
		}
	}
	if other.Indent != "" {
		l.Indent = other.Indent
	}
	if other.LineWidth != 0 {
		l.LineWidth = other.LineWidth
	}
	if other.Grammar != "" {
		l.Grammar = other.Grammar
	}
	if other.Query != "" || other.Rules != "" {
		l.Query = other.Query
		l.Rules = other.Rules
		l.dir = other.dir
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Language returns the language with the given name.
func (c *Config) Language(name string) (*Language, error) {
	for _, l := range c.Languages {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("unknown language %q", name)
}

// Detect picks a language by file extension.
func (c *Config) Detect(path string) (*Language, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot detect language of %s: no extension", path)
	}
	for _, l := range c.Languages {
		for _, e := range l.Extensions {
			if strings.EqualFold(e, ext) {
				return l, nil
			}
		}
	}
	return nil, fmt.Errorf("no language configured for .%s files", ext)
}

// Extensions lists every configured extension, sorted.
func (c *Config) Extensions() []string {
	var exts []string
	for _, l := range c.Languages {
		exts = append(exts, l.Extensions...)
	}
	sort.Strings(exts)
	return exts
}

// String renders the collated configuration as TOML, annotated with the
// sources it came from.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("# Configuration collated from the following sources,\n")
	b.WriteString("# in priority order (lowest to highest):\n#\n")
	for i, src := range c.sources {
		fmt.Fprintf(&b, "# %d. %s\n", i+1, src)
	}
	fmt.Fprintf(&b, "#\n# Collation mode: %s\n\n", c.collation)
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		fmt.Fprintf(&b, "# error encoding configuration: %s\n", err)
	}
	return b.String()
}
