package sitter

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_json "github.com/tree-sitter/tree-sitter-json/bindings/go"
)

//go:embed queries/*.scm
var queries embed.FS

var grammars = map[string]func() *tree_sitter.Language{
	"json": sync.OnceValue(func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_json.Language())
	}),
}

// Grammar returns the compiled grammar with the given name.
func Grammar(name string) (*tree_sitter.Language, error) {
	lang, ok := grammars[name]
	if !ok {
		return nil, fmt.Errorf("unknown grammar %q (have %v)", name, Grammars())
	}
	return lang(), nil
}

// Grammars lists the registered grammar names.
func Grammars() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinQuery returns the formatting query shipped for a grammar.
func BuiltinQuery(name string) (string, bool) {
	content, err := queries.ReadFile("queries/" + name + ".scm")
	if err != nil {
		return "", false
	}
	return string(content), true
}
