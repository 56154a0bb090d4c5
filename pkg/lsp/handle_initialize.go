package lsp

import (
	"context"
	"log/slog"

	"github.com/creachadair/jrpc2"
)

func (s *Server) handleInitialize(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params InitializeParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "initialize", "root", params.RootURI)

	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:           TDSKFull,
			DocumentFormattingProvider: true,
		},
		ServerInfo: &ServerInfo{Name: "drape", Version: s.Version},
	}, nil
}
