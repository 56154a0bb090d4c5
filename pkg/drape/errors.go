package drape

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a FormatError.
type ErrorKind int

const (
	// MalformedTree is a structural violation in the input tree or in an edge
	// reference delivered with the matches.
	MalformedTree ErrorKind = iota + 1
	// ConflictingDirectives means two mutually exclusive softline kinds target
	// the same edge.
	ConflictingDirectives
	// UnbalancedIndent means indentation starts and ends do not nest.
	UnbalancedIndent
	// UnsupportedConstruct is recovered: the engine fell back to the original
	// adjacency of the source instead of guessing.
	UnsupportedConstruct
	// Idempotence means formatting the formatted output changed it again.
	Idempotence
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedTree:
		return "malformed tree"
	case ConflictingDirectives:
		return "conflicting directives"
	case UnbalancedIndent:
		return "unbalanced indent"
	case UnsupportedConstruct:
		return "unsupported construct"
	case Idempotence:
		return "idempotence violation"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for use with errors.Is.
var (
	ErrMalformedTree         = &FormatError{Kind: MalformedTree}
	ErrConflictingDirectives = &FormatError{Kind: ConflictingDirectives}
	ErrUnbalancedIndent      = &FormatError{Kind: UnbalancedIndent}
	ErrUnsupportedConstruct  = &FormatError{Kind: UnsupportedConstruct}
	ErrIdempotence           = &FormatError{Kind: Idempotence}
)

// FormatError describes why a format invocation failed, or, for
// UnsupportedConstruct, what it had to recover from.
type FormatError struct {
	Kind     ErrorKind
	Node     NodeID
	NodeKind string
	Offset   int
	Edge     *Edge
	Message  string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.NodeKind != "" {
		fmt.Fprintf(&b, " at %q (byte %d)", e.NodeKind, e.Offset)
	}
	if e.Edge != nil {
		fmt.Fprintf(&b, " on %s", e.Edge)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is matches any FormatError of the same kind, so the sentinels above work
// with errors.Is.
func (e *FormatError) Is(target error) bool {
	t, ok := target.(*FormatError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func (t *Tree) errorAt(kind ErrorKind, id NodeID, format string, args ...any) *FormatError {
	err := &FormatError{
		Kind:    kind,
		Node:    id,
		Message: fmt.Sprintf(format, args...),
	}
	if t != nil && t.valid(id) {
		n := t.Node(id)
		err.NodeKind = n.Kind
		err.Offset = n.Start
	}
	return err
}

func (t *Tree) edgeError(kind ErrorKind, edge Edge, format string, args ...any) *FormatError {
	err := t.errorAt(kind, edge.Node, format, args...)
	err.Edge = &edge
	if t.valid(edge.Node) {
		switch edge.Position {
		case After:
			err.Offset = t.Node(edge.Node).End
		case Between:
			n := t.Node(edge.Node)
			if edge.Child >= 0 && edge.Child < len(n.Children) {
				err.Offset = t.Node(n.Children[edge.Child]).End
			}
		}
	}
	return err
}
