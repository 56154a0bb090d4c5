// Package sitter is the tree-sitter front end: it parses source with a
// registered grammar and turns the captures of a formatting query into layout
// matches.
package sitter

import (
	"fmt"
	"log/slog"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/vito/drape/pkg/drape"
)

// rawNode adapts a tree-sitter node to drape.RawNode.
type rawNode struct {
	n *tree_sitter.Node
}

func (r rawNode) Kind() string     { return r.n.Kind() }
func (r rawNode) IsNamed() bool    { return r.n.IsNamed() }
func (r rawNode) StartByte() uint  { return r.n.StartByte() }
func (r rawNode) EndByte() uint    { return r.n.EndByte() }
func (r rawNode) ChildCount() uint { return r.n.ChildCount() }

func (r rawNode) Child(i uint) drape.RawNode {
	c := r.n.Child(i)
	if c == nil {
		return nil
	}
	return rawNode{c}
}

// Frontend parses one language and evaluates one formatting query against the
// result. It is safe for concurrent use; each Parse uses its own parser.
type Frontend struct {
	// Language is the grammar name, e.g. "json".
	Language string

	// TolerateParseErrors formats trees that contain ERROR or MISSING nodes
	// instead of rejecting them.
	TolerateParseErrors bool

	language *tree_sitter.Language
	query    *tree_sitter.Query

	// directives is indexed by capture index; empty entries are ignored
	// captures.
	directives []drape.Directive
}

var _ drape.Frontend = (*Frontend)(nil)

// QueryError is a problem compiling a formatting query.
type QueryError struct {
	Row, Column uint
	Message     string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %d:%d: %s", e.Row+1, e.Column+1, e.Message)
}

// New compiles a formatting query for the named grammar. Every capture must
// name a directive, except captures starting with an underscore, which
// predicates may use freely. An empty query yields no matches.
func New(grammar string, query string) (*Frontend, error) {
	lang, err := Grammar(grammar)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return &Frontend{Language: grammar, language: lang}, nil
	}

	q, qerr := tree_sitter.NewQuery(lang, query)
	if qerr != nil {
		return nil, &QueryError{
			Row:     qerr.Row,
			Column:  qerr.Column,
			Message: qerr.Message,
		}
	}

	names := q.CaptureNames()
	directives := make([]drape.Directive, len(names))
	for i, name := range names {
		if strings.HasPrefix(name, "_") {
			continue
		}
		d, err := drape.ParseDirective(name)
		if err != nil {
			q.Close()
			return nil, &QueryError{Message: err.Error()}
		}
		directives[i] = d
	}

	return &Frontend{
		Language:   grammar,
		language:   lang,
		query:      q,
		directives: directives,
	}, nil
}

// Close releases the compiled query.
func (f *Frontend) Close() {
	if f.query != nil {
		f.query.Close()
		f.query = nil
	}
}

// ParseError reports a syntax error found by the grammar.
type ParseError struct {
	Row, Column uint
	Offset      uint
	Missing     string
}

func (e *ParseError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("parse error at %d:%d: missing %q", e.Row+1, e.Column+1, e.Missing)
	}
	return fmt.Sprintf("parse error at %d:%d", e.Row+1, e.Column+1)
}

// Parse implements drape.Frontend.
func (f *Frontend) Parse(source []byte) (*drape.Tree, []drape.Match, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(f.language); err != nil {
		return nil, nil, fmt.Errorf("set language %s: %w", f.Language, err)
	}

	tsTree := parser.Parse(source, nil)
	if tsTree == nil {
		return nil, nil, fmt.Errorf("%s parser returned no tree", f.Language)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root.HasError() {
		perr := firstError(root)
		if !f.TolerateParseErrors {
			return nil, nil, perr
		}
		slog.Debug("formatting despite parse error", "language", f.Language, "error", perr)
	}

	ids := map[uintptr]drape.NodeID{}
	tree, err := drape.AdaptWith(rawNode{root}, source, func(raw drape.RawNode, id drape.NodeID) {
		ids[raw.(rawNode).n.Id()] = id
	})
	if err != nil {
		return nil, nil, err
	}

	matches, err := f.match(root, source, ids)
	if err != nil {
		return nil, nil, err
	}

	slog.Debug("parsed", "language", f.Language, "nodes", len(tree.Nodes), "matches", len(matches))
	return tree, matches, nil
}

func (f *Frontend) match(root *tree_sitter.Node, source []byte, ids map[uintptr]drape.NodeID) ([]drape.Match, error) {
	if f.query == nil {
		return nil, nil
	}
	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	var matches []drape.Match
	qm := cursor.Matches(f.query, root, source)
	for m := qm.Next(); m != nil; m = qm.Next() {
		for _, c := range m.Captures {
			d := f.directives[c.Index]
			if d == "" {
				continue
			}
			id, ok := ids[c.Node.Id()]
			if !ok {
				return nil, fmt.Errorf("capture @%s on a node outside the tree", d)
			}
			matches = append(matches, d.At(id))
		}
	}
	return matches, nil
}

// ParseTree parses source without evaluating the query.
func (f *Frontend) ParseTree(source []byte) (*drape.Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(f.language); err != nil {
		return nil, fmt.Errorf("set language %s: %w", f.Language, err)
	}
	tsTree := parser.Parse(source, nil)
	if tsTree == nil {
		return nil, fmt.Errorf("%s parser returned no tree", f.Language)
	}
	defer tsTree.Close()
	return drape.Adapt(rawNode{tsTree.RootNode()}, source)
}

func firstError(node *tree_sitter.Node) *ParseError {
	var found *ParseError
	walkTS(node, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			p := n.StartPosition()
			found = &ParseError{Row: p.Row, Column: p.Column, Offset: n.StartByte()}
			if n.IsMissing() {
				found.Missing = n.Kind()
			}
			return false
		}
		return n.HasError()
	})
	if found == nil {
		p := node.StartPosition()
		found = &ParseError{Row: p.Row, Column: p.Column, Offset: node.StartByte()}
	}
	return found
}

// walkTS does a depth-first walk of the tree-sitter node, calling fn for each
// node. If fn returns false, children are skipped.
func walkTS(node *tree_sitter.Node, fn func(*tree_sitter.Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			walkTS(child, fn)
		}
	}
}
