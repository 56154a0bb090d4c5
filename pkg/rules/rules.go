// Package rules evaluates YAML selector rule sets against any syntax tree.
// They are a lighter alternative to tree-sitter queries, usable with trees
// produced elsewhere:
//
//	rules:
//	  - kind: "{"
//	    parent: object
//	    directives: [append_empty_softline, append_indent_start]
//	  - kind: pair
//	    between:
//	      - after: key
//	        ops: [antispace]
//	  - kind: _
//	    named: true
//	    directives: [allow_blank_line_before]
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vito/drape/pkg/drape"
	"gopkg.in/yaml.v3"
)

// Any matches every kind.
const Any = "_"

// Between places ops on the edges between consecutive children of a matched
// node. Empty After/Before match any child.
type Between struct {
	After  string   `yaml:"after"`
	Before string   `yaml:"before"`
	Ops    []string `yaml:"ops"`

	ops []drape.Op
}

// Rule selects nodes and attaches directives to them.
type Rule struct {
	Kind   string `yaml:"kind"`
	Parent string `yaml:"parent"`
	Named  *bool  `yaml:"named"`
	First  bool   `yaml:"first"`
	Last   bool   `yaml:"last"`

	Directives []string  `yaml:"directives"`
	Between    []Between `yaml:"between"`

	directives []drape.Directive
}

// RuleSet is an ordered list of rules.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads a rule set from a file.
func Load(path string) (*RuleSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rs, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates a rule set.
func Parse(content []byte) (*RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	for i := range rs.Rules {
		if err := rs.Rules[i].compile(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return &rs, nil
}

func (r *Rule) compile() error {
	if r.Kind == "" {
		return fmt.Errorf("kind is required (use %q for any)", Any)
	}
	if len(r.Directives) == 0 && len(r.Between) == 0 {
		return fmt.Errorf("%s: no directives", r.Kind)
	}
	r.directives = r.directives[:0]
	for _, name := range r.Directives {
		d, err := drape.ParseDirective(name)
		if err != nil {
			return fmt.Errorf("%s: %w", r.Kind, err)
		}
		r.directives = append(r.directives, d)
	}
	for i := range r.Between {
		b := &r.Between[i]
		b.ops = b.ops[:0]
		for _, name := range b.Ops {
			op, err := drape.ParseOp(name)
			if err != nil {
				return fmt.Errorf("%s: between: %w", r.Kind, err)
			}
			b.ops = append(b.ops, op)
		}
	}
	return nil
}

func kindMatches(pattern, kind string) bool {
	return pattern == "" || pattern == Any || pattern == kind
}

func (r *Rule) selects(tree *drape.Tree, id drape.NodeID) bool {
	n := tree.Node(id)
	if !kindMatches(r.Kind, n.Kind) {
		return false
	}
	if r.Named != nil && *r.Named != n.Named {
		return false
	}
	if r.Parent == "" && !r.First && !r.Last {
		return true
	}
	if n.Parent == drape.NoNode {
		return false
	}
	p := tree.Node(n.Parent)
	if r.Parent != "" && !kindMatches(r.Parent, p.Kind) {
		return false
	}
	if r.First && p.Children[0] != id {
		return false
	}
	if r.Last && p.Children[len(p.Children)-1] != id {
		return false
	}
	return true
}

// Match evaluates the rule set against every node of the tree.
func (rs *RuleSet) Match(tree *drape.Tree) []drape.Match {
	var matches []drape.Match
	for i := range tree.Nodes {
		id := drape.NodeID(i)
		n := tree.Node(id)
		for _, r := range rs.Rules {
			if !r.selects(tree, id) {
				continue
			}
			for _, d := range r.directives {
				matches = append(matches, d.At(id))
			}
			for _, b := range r.Between {
				for c := 0; c+1 < len(n.Children); c++ {
					if !kindMatches(b.After, tree.Node(n.Children[c]).Kind) ||
						!kindMatches(b.Before, tree.Node(n.Children[c+1]).Kind) {
						continue
					}
					for _, op := range b.ops {
						matches = append(matches, drape.Match{Edge: drape.BetweenEdge(id, c), Op: op})
					}
				}
			}
		}
	}
	return matches
}

// Frontend formats trees from some other parser with a rule set.
type Frontend struct {
	Rules  *RuleSet
	Parser func(source []byte) (*drape.Tree, error)
}

var _ drape.Frontend = Frontend{}

// Parse implements drape.Frontend.
func (f Frontend) Parse(source []byte) (*drape.Tree, []drape.Match, error) {
	tree, err := f.Parser(source)
	if err != nil {
		return nil, nil, err
	}
	return tree, f.Rules.Match(tree), nil
}
