// Package drapetest builds synthetic syntax trees for tests.
package drapetest

import (
	"strings"

	"github.com/stretchr/testify/require"
	"github.com/vito/drape/pkg/drape"
)

// N is a synthetic syntax node. Leaves carry text; every node may carry
// whitespace that precedes or follows it in the generated source.
type N struct {
	kind     string
	named    bool
	text     string
	pre      string
	post     string
	children []*N

	start, end uint
}

var _ drape.RawNode = (*N)(nil)

// Leaf is an anonymous leaf whose kind is its text, like punctuation.
func Leaf(text string) *N {
	return &N{kind: text, text: text}
}

// Token is a named leaf.
func Token(kind, text string) *N {
	return &N{kind: kind, named: true, text: text}
}

// Branch is a named interior node.
func Branch(kind string, children ...*N) *N {
	return &N{kind: kind, named: true, children: children}
}

// Pre sets the whitespace preceding the node.
func (n *N) Pre(ws string) *N {
	n.pre = ws
	return n
}

// Post sets the whitespace following the node.
func (n *N) Post(ws string) *N {
	n.post = ws
	return n
}

func (n *N) Kind() string     { return n.kind }
func (n *N) IsNamed() bool    { return n.named }
func (n *N) StartByte() uint  { return n.start }
func (n *N) EndByte() uint    { return n.end }
func (n *N) ChildCount() uint { return uint(len(n.children)) }

func (n *N) Child(i uint) drape.RawNode {
	return n.children[i]
}

// Source lays out the tree, assigning byte offsets, and returns the source
// it spans.
func (n *N) Source() []byte {
	var b strings.Builder
	n.layout(&b)
	return []byte(b.String())
}

func (n *N) layout(b *strings.Builder) {
	b.WriteString(n.pre)
	if len(n.children) == 0 {
		n.start = uint(b.Len())
		b.WriteString(n.text)
		n.end = uint(b.Len())
	} else {
		for _, c := range n.children {
			c.layout(b)
		}
		n.start = n.children[0].start
		n.end = n.children[len(n.children)-1].end
	}
	b.WriteString(n.post)
}

// TestingT is satisfied by *testing.T and by suite wrappers around it.
type TestingT interface {
	require.TestingT
	Helper()
}

// Build lays out and adapts the tree.
func Build(t TestingT, root *N) *drape.Tree {
	t.Helper()
	tree, err := drape.Adapt(root, root.Source())
	require.NoError(t, err)
	return tree
}

// Find returns the IDs of every node of the given kind, in document order.
func Find(tree *drape.Tree, kind string) []drape.NodeID {
	var ids []drape.NodeID
	for i, n := range tree.Nodes {
		if n.Kind == kind {
			ids = append(ids, drape.NodeID(i))
		}
	}
	return ids
}

// Only returns the single node of the given kind.
func Only(t TestingT, tree *drape.Tree, kind string) drape.NodeID {
	t.Helper()
	ids := Find(tree, kind)
	require.Len(t, ids, 1, "nodes of kind %q", kind)
	return ids[0]
}

// Apply places a directive on every node of the given kind.
func Apply(tree *drape.Tree, kind string, directives ...drape.Directive) []drape.Match {
	var matches []drape.Match
	for _, id := range Find(tree, kind) {
		for _, d := range directives {
			matches = append(matches, d.At(id))
		}
	}
	return matches
}
