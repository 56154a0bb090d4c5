package drape

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

type group struct {
	id     NodeID
	broken bool
}

type emitter struct {
	opts  Options
	atoms []Atom

	buf       strings.Builder
	col       int
	level     int
	lineStart bool
	started   bool

	open   []group
	broken map[NodeID]bool
}

// Emit resolves an atom stream into text. Each group is decided once, when
// its first text is reached: it stays flat if it holds no forced break and
// its flat rendering, plus whatever follows it up to the next break
// opportunity, fits in the remaining width.
func Emit(atoms []Atom, opts Options) (string, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return "", err
	}
	e := &emitter{
		opts:      opts,
		atoms:     atoms,
		lineStart: true,
		broken:    map[NodeID]bool{},
	}

	var run []Atom
	for i, a := range atoms {
		if a.Kind != AtomText {
			run = append(run, a)
			continue
		}
		// zero-width tokens do not end a whitespace run
		if a.Text == "" {
			continue
		}
		e.flush(run, i)
		run = run[:0]
		e.text(a.Text)
	}
	e.flush(run, len(atoms))

	out := trimTrailingWhitespace(e.buf.String())
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

// flush applies a run of non-text atoms preceding the text at index next.
func (e *emitter) flush(run []Atom, next int) {
	var (
		hardline  bool
		blankline bool
		antispace bool
		space     bool
	)
	for _, a := range run {
		switch a.Kind {
		case AtomIndentStart:
			e.level++
		case AtomIndentEnd:
			if e.level > 0 {
				e.level--
			}
		case AtomGroupEnd:
			e.close(a.Group)
		case AtomHardline:
			hardline = true
		case AtomBlankline:
			blankline = true
		case AtomAntispace:
			antispace = true
		case AtomSpace:
			space = true
		case AtomSoftline:
			if e.broken[a.Group] {
				hardline = true
			} else if a.Spaced {
				space = true
			}
		}
	}

	switch {
	case blankline:
		e.newline(2)
	case hardline:
		e.newline(1)
	case antispace:
	case space:
		if e.started && !e.lineStart && !strings.HasSuffix(e.buf.String(), " ") {
			e.buf.WriteByte(' ')
			e.col++
		}
	}

	for _, a := range run {
		if a.Kind == AtomGroupStart {
			e.start(a.Group, next)
		}
	}
}

func (e *emitter) newline(n int) {
	if !e.started {
		return
	}
	// verbatim text may already have ended the line
	out := e.buf.String()
	for n > 0 && strings.HasSuffix(out, "\n") {
		out = out[:len(out)-1]
		n--
	}
	for i := 0; i < n; i++ {
		e.buf.WriteByte('\n')
	}
	e.col = 0
	e.lineStart = true
}

func (e *emitter) indentation() (string, int) {
	unit := e.opts.Indent
	width := ansi.StringWidth(unit)
	if strings.Contains(unit, "\t") {
		width = e.opts.IndentWidth
	}
	return strings.Repeat(unit, e.level), width * e.level
}

func (e *emitter) text(s string) {
	if s == "" {
		return
	}
	if e.lineStart {
		indent, width := e.indentation()
		e.buf.WriteString(indent)
		e.col = width
		e.lineStart = false
	}
	e.buf.WriteString(s)
	e.started = true
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		last := s[i+1:]
		e.col = ansi.StringWidth(last)
		e.lineStart = last == ""
	} else {
		e.col += ansi.StringWidth(s)
	}
}

func (e *emitter) start(id NodeID, next int) {
	broken := false
	if len(e.open) == 0 || e.open[len(e.open)-1].broken {
		col := e.col
		if e.lineStart {
			_, col = e.indentation()
		}
		broken = !e.fits(next, id, col)
	}
	slog.Debug("group decided", "group", id, "broken", broken, "column", e.col)
	e.open = append(e.open, group{id: id, broken: broken})
	e.broken[id] = broken
}

func (e *emitter) close(id NodeID) {
	for i := len(e.open) - 1; i >= 0; i-- {
		if e.open[i].id == id {
			e.open = e.open[:i]
			return
		}
	}
}

// fits measures the flat rendering of group id, starting at the text at index
// next, plus what follows the group up to the next break opportunity.
func (e *emitter) fits(next int, id NodeID, col int) bool {
	budget := e.opts.LineWidth - col
	inside := true

	var run []Atom
	for i := next; i < len(e.atoms); i++ {
		a := e.atoms[i]
		if a.Kind != AtomText {
			run = append(run, a)
			continue
		}
		if a.Text == "" {
			continue
		}

		if len(run) > 0 {
			width, stop, ok := e.measureRun(run, id, inside)
			if stop {
				return ok
			}
			budget -= width
			if runEnds(run, id) {
				inside = false
			}
			run = run[:0]
			if budget < 0 {
				return false
			}
		}

		if nl := strings.IndexByte(a.Text, '\n'); nl >= 0 {
			if inside {
				return false
			}
			return budget-ansi.StringWidth(a.Text[:nl]) >= 0
		}
		budget -= ansi.StringWidth(a.Text)
		if budget < 0 {
			return false
		}
	}
	return true
}

// measureRun returns the flat width of a run between two texts. It reports
// stop when the run settles the question on its own: a forced break inside
// the group means it cannot be flat, and any break opportunity after the
// group ends means the rest of the line is not our concern.
func (e *emitter) measureRun(run []Atom, id NodeID, inside bool) (width int, stop bool, ok bool) {
	ends := inside && runEnds(run, id)
	var antispace, space bool
	for _, a := range run {
		switch {
		case a.hard():
			if inside && !ends {
				return 0, true, false
			}
			return 0, true, true
		case a.Kind == AtomSoftline:
			if !inside || ends {
				return 0, true, true
			}
			if a.Spaced {
				space = true
			}
		case a.Kind == AtomAntispace:
			antispace = true
		case a.Kind == AtomSpace:
			space = true
		}
	}
	if space && !antispace {
		return 1, false, false
	}
	return 0, false, false
}

func runEnds(run []Atom, id NodeID) bool {
	for _, a := range run {
		if a.Kind == AtomGroupEnd && a.Group == id {
			return true
		}
	}
	return false
}

// trimTrailingWhitespace removes trailing whitespace from each line
func trimTrailingWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func (o Options) validate() error {
	if o.LineWidth <= 0 {
		return fmt.Errorf("line width must be positive, got %d", o.LineWidth)
	}
	if o.IndentWidth < 0 {
		return fmt.Errorf("indent width must not be negative, got %d", o.IndentWidth)
	}
	return nil
}
