package drape

import (
	"fmt"
	"sort"
	"strings"
)

// Position locates an edge relative to a node.
type Position int

const (
	// Before is the gap immediately preceding the node.
	Before Position = iota + 1
	// After is the gap immediately following the node.
	After
	// Between is the gap between child Edge.Child and Edge.Child+1.
	Between
	// On refers to the node itself rather than a gap; only the leaf op uses it.
	On
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	case Between:
		return "between"
	case On:
		return "on"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// Edge identifies a position where layout decisions attach.
type Edge struct {
	Node     NodeID
	Position Position
	// Child is the index of the left child for Between edges, and unused
	// otherwise.
	Child int
}

// BeforeEdge is the edge preceding node n.
func BeforeEdge(n NodeID) Edge { return Edge{Node: n, Position: Before} }

// AfterEdge is the edge following node n.
func AfterEdge(n NodeID) Edge { return Edge{Node: n, Position: After} }

// BetweenEdge is the edge between child i and child i+1 of node n.
func BetweenEdge(n NodeID, i int) Edge { return Edge{Node: n, Position: Between, Child: i} }

// OnNode refers to node n itself.
func OnNode(n NodeID) Edge { return Edge{Node: n, Position: On} }

func (e Edge) String() string {
	if e.Position == Between {
		return fmt.Sprintf("between children %d and %d of node %d", e.Child, e.Child+1, e.Node)
	}
	return fmt.Sprintf("%s node %d", e.Position, e.Node)
}

// Op is a layout operation applied at an edge.
type Op int

const (
	OpSpace Op = iota + 1
	OpAntispace
	OpHardline
	OpEmptySoftline
	OpSpacedSoftline
	OpInputSoftline
	OpIndentStart
	OpIndentEnd
	OpAllowBlankLine
	OpLeaf
)

var opNames = map[Op]string{
	OpSpace:          "space",
	OpAntispace:      "antispace",
	OpHardline:       "hardline",
	OpEmptySoftline:  "empty_softline",
	OpSpacedSoftline: "spaced_softline",
	OpInputSoftline:  "input_softline",
	OpIndentStart:    "indent_start",
	OpIndentEnd:      "indent_end",
	OpAllowBlankLine: "allow_blank_line",
	OpLeaf:           "leaf",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp parses an edge-level op name such as "spaced_softline". These are
// the names used for between-children edges, which have no prepend/append
// form.
func ParseOp(name string) (Op, error) {
	for op, n := range opNames {
		if n == name && op != OpLeaf {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown op %q", name)
}

// Match is one directive occurrence delivered by the query subsystem.
type Match struct {
	Edge Edge
	Op   Op
}

func (m Match) String() string {
	return fmt.Sprintf("%s %s", m.Op, m.Edge)
}

// Directive is a capture name from the fixed vocabulary, e.g.
// "prepend_spaced_softline".
type Directive string

const (
	DirectiveLeaf                 Directive = "leaf"
	DirectiveAllowBlankLineBefore Directive = "allow_blank_line_before"
)

type placement struct {
	pos Position
	op  Op
}

var directives = map[Directive]placement{
	DirectiveLeaf:                 {On, OpLeaf},
	DirectiveAllowBlankLineBefore: {Before, OpAllowBlankLine},
}

func init() {
	for _, op := range []Op{
		OpSpace,
		OpAntispace,
		OpHardline,
		OpEmptySoftline,
		OpSpacedSoftline,
		OpInputSoftline,
		OpIndentStart,
		OpIndentEnd,
	} {
		directives[Directive("prepend_"+op.String())] = placement{Before, op}
		directives[Directive("append_"+op.String())] = placement{After, op}
	}
}

// ParseDirective validates a capture name against the vocabulary.
func ParseDirective(name string) (Directive, error) {
	d := Directive(name)
	if _, ok := directives[d]; !ok {
		return "", fmt.Errorf("@%s is not a valid capture name", name)
	}
	return d, nil
}

// Directives lists the whole vocabulary, sorted.
func Directives() []Directive {
	all := make([]Directive, 0, len(directives))
	for d := range directives {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// At places the directive on node n.
func (d Directive) At(n NodeID) Match {
	p, ok := directives[d]
	if !ok {
		panic(fmt.Sprintf("unknown directive %q", string(d)))
	}
	return Match{Edge: Edge{Node: n, Position: p.pos}, Op: p.op}
}

// IsPrepend reports whether the directive attaches before its node.
func (d Directive) IsPrepend() bool {
	return strings.HasPrefix(string(d), "prepend_") || d == DirectiveAllowBlankLineBefore
}
