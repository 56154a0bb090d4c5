package lsp

import (
	"context"
	"fmt"

	"github.com/creachadair/jrpc2"
)

func (s *Server) handleTextDocumentDidChange(ctx context.Context, req *jrpc2.Request) (any, error) {
	var params DidChangeTextDocumentParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}
	if len(params.ContentChanges) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	f, ok := s.files[params.TextDocument.URI]
	if ok {
		// Full sync: the last change is the whole document.
		f.Text = params.ContentChanges[len(params.ContentChanges)-1].Text
		f.Version = params.TextDocument.Version
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("document not found: %v", params.TextDocument.URI)
	}

	s.publishDiagnostics(ctx, params.TextDocument.URI)
	return nil, nil
}
