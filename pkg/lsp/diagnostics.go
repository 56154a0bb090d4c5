package lsp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/creachadair/jrpc2"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/sitter"
)

func (s *Server) publishDiagnostics(ctx context.Context, uri DocumentURI) {
	f, fmtr, err := s.document(uri)
	if err != nil {
		slog.DebugContext(ctx, "no diagnostics", "uri", uri, "error", err)
		return
	}

	diags := []Diagnostic{}
	res, err := drape.FormatSource(fmtr.Frontend, []byte(f.Text), fmtr.Options)
	if err != nil {
		diags = append(diags, errorDiagnostic(f.Text, err))
	} else {
		for _, d := range res.Diagnostics {
			pos := positionAt(f.Text, int(d.Offset))
			diags = append(diags, Diagnostic{
				Range:    Range{Start: pos, End: pos},
				Severity: SeverityWarning,
				Source:   "drape",
				Message:  d.Error(),
			})
		}
	}

	srv := jrpc2.ServerFromContext(ctx)
	if srv == nil {
		return
	}
	if err := srv.Notify(ctx, "textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     f.Version,
		Diagnostics: diags,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish diagnostics", "uri", uri, "error", err)
	}
}

func errorDiagnostic(text string, err error) Diagnostic {
	var pos Position
	var perr *sitter.ParseError
	var ferr *drape.FormatError
	switch {
	case errors.As(err, &perr):
		pos = positionAt(text, int(perr.Offset))
	case errors.As(err, &ferr) && ferr.Node != drape.NoNode:
		pos = positionAt(text, int(ferr.Offset))
	}
	return Diagnostic{
		Range:    Range{Start: pos, End: pos},
		Severity: SeverityError,
		Source:   "drape",
		Message:  err.Error(),
	}
}

// positionAt converts a byte offset into a line and UTF-16 column.
func positionAt(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	prefix := text[:offset]
	line := strings.Count(prefix, "\n")
	lineStart := strings.LastIndexByte(prefix, '\n') + 1

	col := 0
	for rest := prefix[lineStart:]; len(rest) > 0; {
		r, size := utf8.DecodeRuneInString(rest)
		col += len(utf16.Encode([]rune{r}))
		rest = rest[size:]
	}
	return Position{Line: line, Character: col}
}
