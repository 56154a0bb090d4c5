package drape

import (
	"fmt"
	"strings"
)

// NodeID addresses a node in a Tree's arena. IDs are assigned in preorder, so
// the root is always 0 and a parent's ID is smaller than its children's.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// RawNode is the shape a front end must expose for its syntax tree to be
// adapted. Offsets are byte offsets into the source the tree was parsed from.
type RawNode interface {
	Kind() string
	IsNamed() bool
	StartByte() uint
	EndByte() uint
	ChildCount() uint
	Child(i uint) RawNode
}

// Node is a syntax node in the arena.
type Node struct {
	Kind     string
	Named    bool
	Start    int
	End      int
	Parent   NodeID
	Children []NodeID
}

// Tree is an immutable syntax tree together with the source it spans.
type Tree struct {
	Source []byte
	Nodes  []Node
}

// Adapt normalizes a front end's syntax tree into the engine's arena.
func Adapt(root RawNode, source []byte) (*Tree, error) {
	return AdaptWith(root, source, nil)
}

// AdaptWith is Adapt, calling visit with every raw node and the ID it was
// assigned. Front ends use it to translate their node identities into arena
// IDs when delivering matches.
func AdaptWith(root RawNode, source []byte, visit func(RawNode, NodeID)) (*Tree, error) {
	if root == nil {
		return nil, &FormatError{Kind: MalformedTree, Node: NoNode, Message: "nil root"}
	}
	t := &Tree{Source: source}
	if _, err := t.adapt(root, NoNode, visit); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) adapt(raw RawNode, parent NodeID, visit func(RawNode, NodeID)) (NodeID, error) {
	id := NodeID(len(t.Nodes))
	start, end := int(raw.StartByte()), int(raw.EndByte())
	t.Nodes = append(t.Nodes, Node{
		Kind:   raw.Kind(),
		Named:  raw.IsNamed(),
		Start:  start,
		End:    end,
		Parent: parent,
	})
	if visit != nil {
		visit(raw, id)
	}

	if end < start {
		return id, t.errorAt(MalformedTree, id, "range [%d, %d) is inverted", start, end)
	}
	if end > len(t.Source) {
		return id, t.errorAt(MalformedTree, id, "range [%d, %d) exceeds source length %d", start, end, len(t.Source))
	}
	if parent != NoNode {
		p := t.Nodes[parent]
		if start < p.Start || end > p.End {
			return id, t.errorAt(MalformedTree, id, "range [%d, %d) lies outside parent %q [%d, %d)", start, end, p.Kind, p.Start, p.End)
		}
	}

	count := raw.ChildCount()
	if count == 0 {
		return id, nil
	}
	children := make([]NodeID, 0, count)
	prevEnd := start
	for i := uint(0); i < count; i++ {
		child := raw.Child(i)
		if child == nil {
			return id, t.errorAt(MalformedTree, id, "child %d is missing", i)
		}
		if int(child.StartByte()) < prevEnd {
			return id, t.errorAt(MalformedTree, id, "child %d (%q) starts at %d before its preceding sibling ends at %d", i, child.Kind(), child.StartByte(), prevEnd)
		}
		cid, err := t.adapt(child, id, visit)
		if err != nil {
			return id, err
		}
		children = append(children, cid)
		prevEnd = t.Nodes[cid].End
	}
	t.Nodes[id].Children = children
	return id, nil
}

// Root returns the root node's ID.
func (t *Tree) Root() NodeID { return 0 }

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) *Node { return &t.Nodes[id] }

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.Nodes)
}

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf(id NodeID) bool { return len(t.Nodes[id].Children) == 0 }

// Text returns the verbatim source spanned by the node.
func (t *Tree) Text(id NodeID) string {
	n := t.Nodes[id]
	return string(t.Source[n.Start:n.End])
}

// Contains reports whether descendant lies in the subtree rooted at ancestor.
// A node contains itself.
func (t *Tree) Contains(ancestor, descendant NodeID) bool {
	for id := descendant; id != NoNode; id = t.Nodes[id].Parent {
		if id == ancestor {
			return true
		}
	}
	return false
}

// Leaves returns the leaf texts of the tree in document order.
func (t *Tree) Leaves() []string {
	var leaves []string
	for id := range t.Nodes {
		if t.IsLeaf(NodeID(id)) {
			leaves = append(leaves, t.Text(NodeID(id)))
		}
	}
	return leaves
}

// Dump renders the tree as an indented outline, one node per line.
func (t *Tree) Dump() string {
	var b strings.Builder
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		n := t.Nodes[id]
		b.WriteString(strings.Repeat("  ", depth))
		if n.Named {
			b.WriteString(n.Kind)
		} else {
			fmt.Fprintf(&b, "%q", n.Kind)
		}
		fmt.Fprintf(&b, " [%d, %d)", n.Start, n.End)
		if len(n.Children) == 0 {
			fmt.Fprintf(&b, " %q", t.Text(id))
		}
		b.WriteByte('\n')
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if len(t.Nodes) > 0 {
		walk(t.Root(), 0)
	}
	return b.String()
}

// GapBefore returns the byte range of source between the node and whatever
// precedes it in document order.
func (t *Tree) GapBefore(id NodeID) (int, int) {
	start := 0
	for cur := id; cur != NoNode; cur = t.Nodes[cur].Parent {
		if prev, ok := t.sibling(cur, -1); ok {
			start = t.Nodes[prev].End
			break
		}
	}
	end := t.Nodes[id].Start
	if start > end {
		start = end
	}
	return start, end
}

// GapAfter returns the byte range of source between the node and whatever
// follows it in document order.
func (t *Tree) GapAfter(id NodeID) (int, int) {
	end := len(t.Source)
	for cur := id; cur != NoNode; cur = t.Nodes[cur].Parent {
		if next, ok := t.sibling(cur, 1); ok {
			end = t.Nodes[next].Start
			break
		}
	}
	start := t.Nodes[id].End
	if end < start {
		end = start
	}
	return start, end
}

func (t *Tree) sibling(id NodeID, delta int) (NodeID, bool) {
	parent := t.Nodes[id].Parent
	if parent == NoNode {
		return NoNode, false
	}
	siblings := t.Nodes[parent].Children
	for i, c := range siblings {
		if c == id {
			j := i + delta
			if j < 0 || j >= len(siblings) {
				return NoNode, false
			}
			return siblings[j], true
		}
	}
	return NoNode, false
}

// gap returns the source range an edge sits on.
func (t *Tree) gap(e Edge) (int, int) {
	switch e.Position {
	case Before:
		return t.GapBefore(e.Node)
	case After:
		return t.GapAfter(e.Node)
	case Between:
		n := t.Nodes[e.Node]
		return t.Nodes[n.Children[e.Child]].End, t.Nodes[n.Children[e.Child+1]].Start
	default:
		n := t.Nodes[e.Node]
		return n.Start, n.Start
	}
}

func countNewlines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}
