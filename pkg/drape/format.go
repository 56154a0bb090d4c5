package drape

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	DefaultLineWidth   = 80
	DefaultIndentWidth = 2
)

// Options configures a format invocation.
type Options struct {
	// LineWidth is the column budget softline groups are fitted into.
	LineWidth int
	// IndentWidth is the number of columns per indentation level.
	IndentWidth int
	// Indent is an explicit indentation unit, e.g. "\t". When empty,
	// IndentWidth spaces are used.
	Indent string
	// SkipIdempotence disables the second formatting pass in FormatSource.
	SkipIdempotence bool
}

func (o Options) withDefaults() Options {
	if o.LineWidth == 0 {
		o.LineWidth = DefaultLineWidth
	}
	if o.IndentWidth == 0 {
		o.IndentWidth = DefaultIndentWidth
	}
	if o.Indent == "" {
		o.Indent = strings.Repeat(" ", o.IndentWidth)
	}
	return o
}

// Result is the outcome of a successful format.
type Result struct {
	Text string
	// Diagnostics are recovered UnsupportedConstruct problems.
	Diagnostics []*FormatError
}

// Format lays out a tree according to its matches.
func Format(tree *Tree, matches []Match, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if tree == nil || len(tree.Nodes) == 0 {
		return nil, &FormatError{Kind: MalformedTree, Node: NoNode, Message: "empty tree"}
	}

	layout, err := Resolve(tree, matches)
	if err != nil {
		return nil, err
	}
	atoms, diags := Render(tree, layout)
	text, err := Emit(atoms, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Text:        text,
		Diagnostics: append(layout.Diagnostics, diags...),
	}
	slog.Debug("formatted",
		"nodes", len(tree.Nodes),
		"matches", len(matches),
		"atoms", len(atoms),
		"diagnostics", len(res.Diagnostics))
	return res, nil
}

// Frontend parses source into a tree and evaluates its rules against it.
type Frontend interface {
	Parse(source []byte) (*Tree, []Match, error)
}

// FormatSource parses, formats and, unless opts.SkipIdempotence is set,
// checks that formatting the output again leaves it unchanged.
func FormatSource(fe Frontend, source []byte, opts Options) (*Result, error) {
	tree, matches, err := fe.Parse(source)
	if err != nil {
		return nil, err
	}
	res, err := Format(tree, matches, opts)
	if err != nil {
		return nil, err
	}
	if opts.SkipIdempotence {
		return res, nil
	}

	again, err := reformat(fe, res.Text, opts)
	if err != nil {
		return nil, &FormatError{
			Kind:    Idempotence,
			Node:    NoNode,
			Message: fmt.Sprintf("formatted output could not be formatted again: %s", err),
		}
	}
	if again != res.Text {
		return nil, idempotenceError(res.Text, again)
	}
	return res, nil
}

func reformat(fe Frontend, text string, opts Options) (string, error) {
	tree, matches, err := fe.Parse([]byte(text))
	if err != nil {
		return "", err
	}
	res, err := Format(tree, matches, opts)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func idempotenceError(first, second string) *FormatError {
	a := strings.Split(first, "\n")
	b := strings.Split(second, "\n")
	line := 0
	for line < len(a) && line < len(b) && a[line] == b[line] {
		line++
	}
	var got, want string
	if line < len(a) {
		want = a[line]
	}
	if line < len(b) {
		got = b[line]
	}
	return &FormatError{
		Kind:    Idempotence,
		Node:    NoNode,
		Offset:  len(strings.Join(a[:line], "\n")),
		Message: fmt.Sprintf("second pass changed line %d from %q to %q", line+1, want, got),
	}
}
