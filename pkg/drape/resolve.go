package drape

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
)

// Spacing is the single whitespace decision an edge resolves to.
type Spacing int

const (
	// SpacingNone means no directive covers the edge.
	SpacingNone Spacing = iota
	SpacingSpace
	SpacingEmptySoftline
	SpacingSpacedSoftline
	SpacingHardline
	SpacingAntispace
)

func (s Spacing) String() string {
	switch s {
	case SpacingNone:
		return "none"
	case SpacingSpace:
		return "space"
	case SpacingEmptySoftline:
		return "empty_softline"
	case SpacingSpacedSoftline:
		return "spaced_softline"
	case SpacingHardline:
		return "hardline"
	case SpacingAntispace:
		return "antispace"
	default:
		return fmt.Sprintf("Spacing(%d)", int(s))
	}
}

// EdgeLayout is the authoritative instruction for one edge.
type EdgeLayout struct {
	Spacing    Spacing
	AllowBlank bool
	Indent     int
	Dedent     int
}

func (e EdgeLayout) empty() bool {
	return e == EdgeLayout{}
}

// Layout is the resolved directive set for a whole tree.
type Layout struct {
	Tree *Tree

	edges  map[Edge]EdgeLayout
	leaves map[NodeID]bool

	// Diagnostics holds recovered problems, e.g. directives that targeted the
	// inside of a leaf node and were therefore not applied.
	Diagnostics []*FormatError
}

// At returns the resolved layout of an edge.
func (l *Layout) At(e Edge) EdgeLayout {
	return l.edges[e]
}

// IsLeaf reports whether the node was tagged with the leaf directive.
func (l *Layout) IsLeaf(id NodeID) bool {
	return l.leaves[id]
}

// Edges returns every edge carrying a decision, in a stable order.
func (l *Layout) Edges() []Edge {
	edges := make([]Edge, 0, len(l.edges))
	for e := range l.edges {
		edges = append(edges, e)
	}
	sortEdges(edges)
	return edges
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Child < b.Child
	})
}

type edgeOps struct {
	antispace  bool
	hardline   bool
	empty      bool
	spaced     bool
	space      bool
	allowBlank bool
	indent     int
	dedent     int
}

// Resolve merges every match into one decision per edge.
func Resolve(tree *Tree, matches []Match) (*Layout, error) {
	l := &Layout{
		Tree:   tree,
		edges:  map[Edge]EdgeLayout{},
		leaves: map[NodeID]bool{},
	}

	for _, m := range matches {
		if err := validateMatch(tree, m); err != nil {
			return nil, err
		}
		if m.Op == OpLeaf {
			l.leaves[m.Edge.Node] = true
		}
	}

	ops := map[Edge]*edgeOps{}
	for _, m := range matches {
		if m.Op == OpLeaf {
			continue
		}
		if owner, ok := l.absorbed(m.Edge); ok {
			slog.Debug("ignoring directive inside leaf", "match", m.String(), "leaf", tree.Node(owner).Kind)
			diag := tree.edgeError(UnsupportedConstruct, m.Edge, "%s targets the inside of leaf %q and was not applied", m.Op, tree.Node(owner).Kind)
			l.Diagnostics = append(l.Diagnostics, diag)
			continue
		}
		acc := ops[m.Edge]
		if acc == nil {
			acc = &edgeOps{}
			ops[m.Edge] = acc
		}
		switch m.Op {
		case OpSpace:
			acc.space = true
		case OpAntispace:
			acc.antispace = true
		case OpHardline:
			acc.hardline = true
		case OpEmptySoftline:
			acc.empty = true
		case OpSpacedSoftline:
			acc.spaced = true
		case OpInputSoftline:
			start, end := tree.gap(m.Edge)
			if bytes.IndexByte(tree.Source[start:end], '\n') >= 0 {
				acc.hardline = true
			} else {
				acc.space = true
			}
		case OpIndentStart:
			acc.indent++
		case OpIndentEnd:
			acc.dedent++
		case OpAllowBlankLine:
			acc.allowBlank = true
		}
	}

	order := make([]Edge, 0, len(ops))
	for edge := range ops {
		order = append(order, edge)
	}
	sortEdges(order)
	for _, edge := range order {
		acc := ops[edge]
		el := EdgeLayout{
			AllowBlank: acc.allowBlank,
			Indent:     acc.indent,
			Dedent:     acc.dedent,
		}
		switch {
		case acc.antispace:
			el.Spacing = SpacingAntispace
		case acc.hardline:
			el.Spacing = SpacingHardline
		case acc.empty && acc.spaced:
			return nil, tree.edgeError(ConflictingDirectives, edge, "both empty and spaced softlines")
		case acc.empty:
			el.Spacing = SpacingEmptySoftline
		case acc.spaced:
			el.Spacing = SpacingSpacedSoftline
		case acc.space:
			el.Spacing = SpacingSpace
		}
		if !el.empty() {
			l.edges[edge] = el
		}
	}

	if err := l.checkIndentation(); err != nil {
		return nil, err
	}

	return l, nil
}

func validateMatch(tree *Tree, m Match) error {
	e := m.Edge
	if !tree.valid(e.Node) {
		return &FormatError{
			Kind:    MalformedTree,
			Node:    e.Node,
			Edge:    &e,
			Message: fmt.Sprintf("%s refers to unknown node %d", m.Op, e.Node),
		}
	}
	switch e.Position {
	case Before, After:
		if m.Op == OpLeaf {
			return tree.edgeError(MalformedTree, e, "leaf applies to a node, not an edge")
		}
	case Between:
		n := tree.Node(e.Node)
		if e.Child < 0 || e.Child+1 >= len(n.Children) {
			return tree.edgeError(MalformedTree, e, "node has %d children", len(n.Children))
		}
		if m.Op == OpLeaf {
			return tree.edgeError(MalformedTree, e, "leaf applies to a node, not an edge")
		}
	case On:
		if m.Op != OpLeaf {
			return tree.edgeError(MalformedTree, e, "%s needs a before, after or between edge", m.Op)
		}
	default:
		return tree.edgeError(MalformedTree, e, "unknown edge position")
	}
	return nil
}

// absorbed reports whether the edge lies inside a leaf-tagged subtree, and
// which leaf node absorbs it. The outer edges of a leaf node itself are not
// absorbed.
func (l *Layout) absorbed(e Edge) (NodeID, bool) {
	if e.Position == Between && l.leaves[e.Node] {
		return e.Node, true
	}
	for id := l.Tree.Node(e.Node).Parent; id != NoNode; id = l.Tree.Node(id).Parent {
		if l.leaves[id] {
			return id, true
		}
	}
	return NoNode, false
}

// checkIndentation walks the edges in rendering order and verifies that
// indentation never closes more levels than are open and that every level
// opened is closed by the end of the root.
func (l *Layout) checkIndentation() error {
	var open []Edge
	var walkErr error

	visit := func(e Edge) bool {
		el, ok := l.edges[e]
		if !ok {
			return true
		}
		if el.Dedent > len(open)+el.Indent {
			walkErr = l.Tree.edgeError(UnbalancedIndent, e, "closes %d indentation levels but only %d are open", el.Dedent, len(open)+el.Indent)
			return false
		}
		for i := 0; i < el.Indent; i++ {
			open = append(open, e)
		}
		open = open[:len(open)-el.Dedent]
		return true
	}

	l.walkEdges(l.Tree.Root(), visit)
	if walkErr != nil {
		return walkErr
	}
	if len(open) > 0 {
		return l.Tree.edgeError(UnbalancedIndent, open[len(open)-1], "%d indentation levels are never closed", len(open))
	}
	return nil
}

// walkEdges visits the edges of a subtree in the order the renderer emits
// them. It stops early when visit returns false.
func (l *Layout) walkEdges(id NodeID, visit func(Edge) bool) bool {
	if !visit(BeforeEdge(id)) {
		return false
	}
	n := l.Tree.Node(id)
	if !l.leaves[id] {
		for i, c := range n.Children {
			if !l.walkEdges(c, visit) {
				return false
			}
			if i+1 < len(n.Children) && !visit(BetweenEdge(id, i)) {
				return false
			}
		}
	}
	return visit(AfterEdge(id))
}
