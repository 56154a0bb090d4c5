package lsp

import (
	"context"
	"log/slog"

	"github.com/creachadair/jrpc2"
	"github.com/vito/drape/pkg/drape"
)

func (s *Server) handleTextDocumentFormatting(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params DocumentFormattingParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	f, fmtr, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "%v", err)
	}

	opts := fmtr.Options
	if fmtr.Language.Indent == "" && params.Options.TabSize > 0 {
		opts.IndentWidth = params.Options.TabSize
		if !params.Options.InsertSpaces {
			opts.Indent = "\t"
		}
	}

	res, err := drape.FormatSource(fmtr.Frontend, []byte(f.Text), opts)
	if err != nil {
		// Problems are reported as diagnostics; leave the document alone.
		slog.WarnContext(ctx, "format failed", "uri", params.TextDocument.URI, "error", err)
		return []TextEdit{}, nil
	}
	if res.Text == f.Text {
		return []TextEdit{}, nil
	}

	// A single edit replacing the entire document.
	return []TextEdit{
		{
			Range: Range{
				Start: Position{Line: 0, Character: 0},
				End:   positionAt(f.Text, len(f.Text)),
			},
			NewText: res.Text,
		},
	}, nil
}
