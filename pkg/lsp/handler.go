// Package lsp is a language server that formats documents.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"unicode"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/vito/drape/pkg/config"
)

// Server holds the open documents and loaded formatters.
type Server struct {
	Config *config.Config
	Env    config.Env

	// Version is reported to the client.
	Version string

	TolerateParseErrors bool

	mu         sync.Mutex
	files      map[DocumentURI]*File
	formatters map[string]*config.Formatter
	shutdown   bool
}

// File is an open document.
type File struct {
	LanguageID string
	Text       string
	Version    int
}

func NewServer(cfg *config.Config, env config.Env) *Server {
	return &Server{
		Config:     cfg,
		Env:        env,
		files:      map[DocumentURI]*File{},
		formatters: map[string]*config.Formatter{},
	}
}

// Handlers maps the supported methods.
func (s *Server) Handlers() handler.Map {
	return handler.Map{
		"initialize":              s.handleInitialize,
		"initialized":             s.handleNoop,
		"shutdown":                s.handleShutdown,
		"exit":                    s.handleExit,
		"textDocument/didOpen":    s.handleTextDocumentDidOpen,
		"textDocument/didChange":  s.handleTextDocumentDidChange,
		"textDocument/didSave":    s.handleNoop,
		"textDocument/didClose":   s.handleTextDocumentDidClose,
		"textDocument/formatting": s.handleTextDocumentFormatting,
	}
}

// Options are the server options the handlers expect: pushed notifications
// and in-order handling of document changes.
func (s *Server) Options(logger *slog.Logger) *jrpc2.ServerOptions {
	return &jrpc2.ServerOptions{
		AllowPush:   true,
		Concurrency: 1,
		Logger:      func(text string) { logger.Debug(text) },
	}
}

// Close releases loaded formatters.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.formatters {
		f.Close()
	}
	s.formatters = map[string]*config.Formatter{}
}

func (s *Server) handleNoop(ctx context.Context, req *jrpc2.Request) (any, error) {
	return nil, nil
}

// document returns a snapshot of an open file and its formatter.
func (s *Server) document(uri DocumentURI) (File, *config.Formatter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return File{}, nil, errors.New("server is shutting down")
	}
	f, ok := s.files[uri]
	if !ok {
		return File{}, nil, fmt.Errorf("document not found: %v", uri)
	}

	lang, err := s.Config.Language(f.LanguageID)
	if err != nil {
		path, perr := fromURI(uri)
		if perr != nil {
			return File{}, nil, perr
		}
		lang, err = s.Config.Detect(path)
		if err != nil {
			return File{}, nil, err
		}
	}

	fmtr, ok := s.formatters[lang.Name]
	if !ok {
		fmtr, err = lang.Load(s.Env, s.TolerateParseErrors)
		if err != nil {
			return File{}, nil, err
		}
		s.formatters[lang.Name] = fmtr
	}
	return *f, fmtr, nil
}

func isWindowsDriveURI(uri string) bool {
	if len(uri) < 4 {
		return false
	}
	return uri[0] == '/' && unicode.IsLetter(rune(uri[1])) && uri[2] == ':'
}

func fromURI(uri DocumentURI) (string, error) {
	u, err := url.ParseRequestURI(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("only file URIs are supported, got %v", u.Scheme)
	}
	if isWindowsDriveURI(u.Path) {
		u.Path = u.Path[1:]
	}
	return filepath.FromSlash(u.Path), nil
}
