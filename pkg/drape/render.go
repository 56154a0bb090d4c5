package drape

import (
	"bytes"
	"log/slog"
)

type renderer struct {
	tree   *Tree
	layout *Layout

	units []NodeID
	first []int
	last  []int
	depth []int

	covered map[int]bool
	groups  map[NodeID]bool

	atoms []Atom
	diags []*FormatError
}

// Render flattens a resolved layout into a stream of atoms in document order.
// Softlines are left unresolved for the emitter. Gaps that no directive covers
// fall back to the source's own adjacency; each such fallback is returned as
// an UnsupportedConstruct diagnostic.
func Render(tree *Tree, layout *Layout) ([]Atom, []*FormatError) {
	r := &renderer{
		tree:    tree,
		layout:  layout,
		first:   make([]int, len(tree.Nodes)),
		last:    make([]int, len(tree.Nodes)),
		depth:   make([]int, len(tree.Nodes)),
		covered: map[int]bool{},
		groups:  map[NodeID]bool{},
	}
	if len(tree.Nodes) == 0 {
		return nil, nil
	}
	r.index(tree.Root(), 0)

	for _, e := range layout.Edges() {
		el := layout.At(e)
		if el.Spacing == SpacingNone {
			continue
		}
		k := r.gapOf(e)
		r.covered[k] = true
		if el.Spacing == SpacingEmptySoftline || el.Spacing == SpacingSpacedSoftline {
			if owner := r.owner(k); owner != NoNode {
				r.groups[owner] = true
			}
		}
	}

	r.render(tree.Root())
	return r.atoms, r.diags
}

func (r *renderer) isUnit(id NodeID) bool {
	return r.tree.IsLeaf(id) || r.layout.IsLeaf(id)
}

func (r *renderer) index(id NodeID, depth int) {
	r.depth[id] = depth
	if r.isUnit(id) {
		r.first[id] = len(r.units)
		r.last[id] = len(r.units)
		r.units = append(r.units, id)
		return
	}
	n := r.tree.Node(id)
	for _, c := range n.Children {
		r.index(c, depth+1)
	}
	r.first[id] = r.first[n.Children[0]]
	r.last[id] = r.last[n.Children[len(n.Children)-1]]
}

// gapOf maps an edge to the gap it sits in. Gap k lies before unit k; gap
// len(units) is the end of the document.
func (r *renderer) gapOf(e Edge) int {
	switch e.Position {
	case Before:
		return r.first[e.Node]
	case After:
		return r.last[e.Node] + 1
	case Between:
		return r.last[r.tree.Node(e.Node).Children[e.Child]] + 1
	default:
		return r.first[e.Node]
	}
}

// gapSource returns the source bytes between the units around gap k.
func (r *renderer) gapSource(k int) (int, []byte) {
	start, end := 0, len(r.tree.Source)
	if k > 0 {
		start = r.tree.Node(r.units[k-1]).End
	}
	if k < len(r.units) {
		end = r.tree.Node(r.units[k]).Start
	}
	if end < start {
		end = start
	}
	return start, r.tree.Source[start:end]
}

// owner returns the lowest node spanning both units around gap k.
func (r *renderer) owner(k int) NodeID {
	if k <= 0 || k >= len(r.units) {
		return NoNode
	}
	a, b := r.units[k-1], r.units[k]
	for r.depth[a] > r.depth[b] {
		a = r.tree.Node(a).Parent
	}
	for r.depth[b] > r.depth[a] {
		b = r.tree.Node(b).Parent
	}
	for a != b {
		a = r.tree.Node(a).Parent
		b = r.tree.Node(b).Parent
	}
	return a
}

func (r *renderer) emit(a Atom) {
	r.atoms = append(r.atoms, a)
}

func (r *renderer) render(id NodeID) {
	r.edge(BeforeEdge(id))
	if r.groups[id] {
		r.emit(Atom{Kind: AtomGroupStart, Group: id, Node: id})
	}
	if r.isUnit(id) {
		r.fallback(r.first[id])
		r.emit(Atom{Kind: AtomText, Text: r.tree.Text(id), Node: id})
	} else {
		n := r.tree.Node(id)
		for i, c := range n.Children {
			r.render(c)
			if i+1 < len(n.Children) {
				r.edge(BetweenEdge(id, i))
			}
		}
	}
	if r.groups[id] {
		r.emit(Atom{Kind: AtomGroupEnd, Group: id, Node: id})
	}
	r.edge(AfterEdge(id))
}

func (r *renderer) edge(e Edge) {
	el := r.layout.At(e)
	if el.empty() {
		return
	}
	for i := 0; i < el.Indent; i++ {
		r.emit(Atom{Kind: AtomIndentStart, Node: e.Node})
	}
	for i := 0; i < el.Dedent; i++ {
		r.emit(Atom{Kind: AtomIndentEnd, Node: e.Node})
	}

	k := r.gapOf(e)
	switch el.Spacing {
	case SpacingSpace:
		r.emit(Atom{Kind: AtomSpace, Node: e.Node})
	case SpacingAntispace:
		r.emit(Atom{Kind: AtomAntispace, Node: e.Node})
	case SpacingHardline:
		r.emit(Atom{Kind: AtomHardline, Node: e.Node})
	case SpacingEmptySoftline, SpacingSpacedSoftline:
		r.emit(Atom{
			Kind:   AtomSoftline,
			Spaced: el.Spacing == SpacingSpacedSoftline,
			Group:  r.owner(k),
			Node:   e.Node,
		})
	}

	if el.AllowBlank && el.Spacing != SpacingAntispace {
		if _, src := r.gapSource(k); bytes.Count(src, []byte{'\n'}) >= 2 {
			r.emit(Atom{Kind: AtomBlankline, Node: e.Node})
		}
	}
}

// fallback preserves the source's adjacency for an interior gap that no
// spacing directive covers.
func (r *renderer) fallback(k int) {
	if k <= 0 || k >= len(r.units) || r.covered[k] {
		return
	}
	offset, src := r.gapSource(k)
	if len(src) == 0 {
		return
	}
	right := r.units[k]
	atom := Atom{Kind: AtomSpace, Node: right}
	if bytes.IndexByte(src, '\n') >= 0 {
		atom.Kind = AtomHardline
	}
	r.emit(atom)

	slog.Debug("no directive covers gap, keeping source adjacency",
		"before", r.tree.Node(right).Kind,
		"offset", offset,
		"atom", atom.Kind)
	diag := r.tree.errorAt(UnsupportedConstruct, right, "no directive covers the whitespace before this node; kept %s from the source", atom.Kind)
	diag.Offset = offset
	r.diags = append(r.diags, diag)
}
