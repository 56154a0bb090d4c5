package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
)

func (s *Server) handleShutdown(ctx context.Context, req *jrpc2.Request) (any, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.Close()
	return nil, nil
}

func (s *Server) handleExit(ctx context.Context, req *jrpc2.Request) (any, error) {
	if srv := jrpc2.ServerFromContext(ctx); srv != nil {
		go srv.Stop()
	}
	return nil, nil
}
