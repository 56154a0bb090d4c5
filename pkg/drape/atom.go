package drape

import "fmt"

// AtomKind is the kind of a layout atom.
type AtomKind int

const (
	AtomText AtomKind = iota + 1
	AtomSpace
	AtomAntispace
	AtomHardline
	AtomBlankline
	AtomSoftline
	AtomIndentStart
	AtomIndentEnd
	AtomGroupStart
	AtomGroupEnd
)

var atomNames = map[AtomKind]string{
	AtomText:        "Text",
	AtomSpace:       "Space",
	AtomAntispace:   "Antispace",
	AtomHardline:    "Hardline",
	AtomBlankline:   "Blankline",
	AtomSoftline:    "Softline",
	AtomIndentStart: "IndentStart",
	AtomIndentEnd:   "IndentEnd",
	AtomGroupStart:  "GroupStart",
	AtomGroupEnd:    "GroupEnd",
}

func (k AtomKind) String() string {
	if name, ok := atomNames[k]; ok {
		return name
	}
	return fmt.Sprintf("AtomKind(%d)", int(k))
}

// Atom is one element of the abstract layout stream produced by Render.
type Atom struct {
	Kind AtomKind
	// Text is the verbatim content of a Text atom.
	Text string
	// Spaced distinguishes spaced from empty softlines.
	Spaced bool
	// Group is the node whose group a softline belongs to, or the node a
	// GroupStart/GroupEnd brackets. NoNode for softlines at the very start or
	// end of the document.
	Group NodeID
	// Node is the node the atom originates from.
	Node NodeID
}

func (a Atom) String() string {
	switch a.Kind {
	case AtomText:
		return fmt.Sprintf("Text(%q)", a.Text)
	case AtomSoftline:
		kind := "empty"
		if a.Spaced {
			kind = "spaced"
		}
		return fmt.Sprintf("Softline(%s, group %d)", kind, a.Group)
	case AtomGroupStart, AtomGroupEnd:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Group)
	default:
		return a.Kind.String()
	}
}

func (a Atom) hard() bool {
	return a.Kind == AtomHardline || a.Kind == AtomBlankline
}
