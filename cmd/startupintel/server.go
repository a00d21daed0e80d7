package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/djivites/startup-intelligence-rag-sample/internal/api"
	"github.com/djivites/startup-intelligence-rag-sample/internal/config"
	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
	"github.com/djivites/startup-intelligence-rag-sample/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering API (foreground)",
	Long: `Serve the question-answering API on 127.0.0.1:<server.port>.

With --mcp the MCP tools are also served on stdin/stdout. With
--ingest-interval the feeds are crawled periodically in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		interval, _ := cmd.Flags().GetDuration("ingest-interval")
		return runServer(withMCP, interval)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show startupintel system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
	serveCmd.Flags().Duration("ingest-interval", 0, "crawl feeds every interval in the background (0 disables)")
}

func runServer(withMCP bool, interval time.Duration) error {
	fmt.Fprintln(os.Stderr, versionString())

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := a.ensureEngine(ctx); err != nil {
		return err
	}

	entries, err := a.cfg.Feeds.LoadFeeds()
	if err != nil {
		return err
	}
	sources, err := feedSources(entries, "all")
	if err != nil {
		return err
	}

	svc := a.query(a.sessions())
	pipeline := a.pipeline(a.cfg.Ingest.ExtractFacts, nil)

	if a.cfg.Server.APIToken == "" {
		slog.Warn("server.api_token is not set; the API is unauthenticated")
	}
	handler := api.NewHandler(api.Deps{
		Query:    svc,
		Store:    a.store,
		Ingester: pipeline,
		Sources:  sources,
		Token:    a.cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Query: svc, Store: a.store, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	if interval > 0 {
		g.Go(func() error {
			slog.Info("background ingest enabled", "interval", interval, "feeds", len(sources))
			pipeline.Loop(gctx, sources, interval)
			return nil
		})
	}

	return g.Wait()
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	a, err := openApp()
	if err != nil {
		printError("%v", err)
		return nil
	}
	defer a.Close()

	if a.engine.IsRunning(ctx) {
		printStatus("Engine", "%s reachable", cfg.Engine.Backend)
	} else {
		printStatus("Engine", "%s not reachable", cfg.Engine.Backend)
	}
	printStatus("Chat model", "%s", a.chatModel)
	printStatus("Embed model", "%s", a.embedModel)

	for _, src := range []string{storage.SourceFundingNews, storage.SourceBlog} {
		if n, err := a.store.CountProcessedURLs(ctx, src); err == nil {
			printStatus("Processed "+src, "%d", n)
		}
	}
	for _, k := range []feed.Kind{feed.KindNews, feed.KindBlog} {
		if paths, err := a.archive().List(k); err == nil {
			printStatus("Archived "+string(k), "%d", len(paths))
		}
	}
	if n, err := a.vectors.Count(ctx); err == nil {
		printStatus("Indexed docs", "%d", n)
	}
	if runs, err := a.store.RecentRuns(ctx, 1); err == nil && len(runs) > 0 {
		r := runs[0]
		printStatus("Last run", "%s (%d archived, %d marked, %d skipped, %d failed)",
			r.FinishedAt.Local().Format("2006-01-02 15:04"), r.Archived, r.Marked, r.Skipped, r.Failed)
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
