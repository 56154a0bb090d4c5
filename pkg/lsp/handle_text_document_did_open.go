package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
)

func (s *Server) handleTextDocumentDidOpen(ctx context.Context, req *jrpc2.Request) (any, error) {
	var params DidOpenTextDocumentParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	doc := params.TextDocument
	s.mu.Lock()
	s.files[doc.URI] = &File{
		LanguageID: doc.LanguageID,
		Text:       doc.Text,
		Version:    doc.Version,
	}
	s.mu.Unlock()

	s.publishDiagnostics(ctx, doc.URI)
	return nil, nil
}
