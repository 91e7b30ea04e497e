package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cc_session_mgr/internal/mcpserver"
	"cc_session_mgr/internal/web"
)

const shutdownTimeout = 5 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		Long: `Serve the JSON API:

  GET /api/projects
  GET /api/sessions?project=&limit=
  GET /api/sessions/{project}/{sessionId}
  GET /api/stats
  GET /api/history?limit=
  GET /api/search?q=&limit=
  GET /api/events   (websocket change notifications)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.ListenAddr
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:3001)")
	return cmd
}

// serve runs the HTTP server until ctx is canceled or the server fails.
func (a *app) serve(ctx context.Context, addr string) error {
	// Watch from the start so event clients see changes before the first query.
	a.index.StartWatcher()

	srv := web.NewServer(web.Config{
		ListenAddr:    addr,
		AllowOrigin:   a.cfg.Server.AllowOrigin,
		SessionsLimit: a.cfg.Limits.Sessions,
		HistoryLimit:  a.cfg.Limits.History,
		SearchLimit:   a.cfg.Limits.Search,
	}, a.index)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		cliLog.Info("http_shutdown", slog.String("addr", addr))
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (a *app) newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server on stdio",
		Long: `Start an MCP (Model Context Protocol) server that lets an assistant
search and read your session history.

Example client configuration:
  {
    "mcpServers": {
      "sessions": {
        "command": "cc_session_mgr",
        "args": ["mcp"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := mcpserver.Serve(a.index, versionInfo); err != nil {
				return fmt.Errorf("MCP server failed: %w", err)
			}
			return nil
		},
	}
}
