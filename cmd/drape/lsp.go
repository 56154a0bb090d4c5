package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/spf13/cobra"
	"github.com/vito/drape/pkg/config"
	"github.com/vito/drape/pkg/lsp"
)

func lspCmd(globals *Globals) *cobra.Command {
	var (
		logFile    string
		configPath string
		tolerate   bool
	)

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run a language server that formats documents",
		Long: `Run a Language Server Protocol server on stdin and stdout. It answers
textDocument/formatting requests and publishes parse errors as diagnostics for
every language in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// stdout carries the protocol, so logs never go there.
			var logDest io.Writer = os.Stderr
			if logFile != "" {
				f, err := os.Create(logFile)
				if err != nil {
					return fmt.Errorf("open lsp log: %w", err)
				}
				defer f.Close() //nolint:errcheck
				logDest = f
			}
			setupLogging(logDest, globals.Debug)
			logger := slog.Default()

			cfg, err := config.Fetch(configPath, config.Merge)
			if err != nil {
				return err
			}
			env, err := config.LoadEnv(nil)
			if err != nil {
				return err
			}

			handler := lsp.NewServer(cfg, env)
			handler.Version = version
			handler.TolerateParseErrors = tolerate
			defer handler.Close()

			logger.InfoContext(ctx, "starting LSP server", "languages", len(cfg.Languages))

			srv := jrpc2.NewServer(handler.Handlers(), handler.Options(logger))
			srv.Start(channel.LSP(stdrwc{}, stdrwc{}))

			logger.InfoContext(ctx, "LSP server closed", "error", srv.Wait())
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Path to LSP log file (stderr if not specified)")
	cmd.Flags().StringVar(&configPath, "config", "", "Additional languages.toml with the highest priority")
	cmd.Flags().BoolVar(&tolerate, "tolerate-parse-errors", false, "Format documents even if they contain syntax errors")

	return cmd
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
