package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
)

func (s *Server) handleTextDocumentDidClose(ctx context.Context, req *jrpc2.Request) (any, error) {
	var params DidCloseTextDocumentParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.files, params.TextDocument.URI)
	s.mu.Unlock()
	return nil, nil
}
