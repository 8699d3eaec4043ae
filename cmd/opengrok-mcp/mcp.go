package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/mcp"
	"github.com/LeeChunJun/OpenGrokMCP/internal/opengrok"
	"github.com/LeeChunJun/OpenGrokMCP/internal/slogutil"
	"github.com/LeeChunJun/OpenGrokMCP/internal/transport"
	"github.com/LeeChunJun/OpenGrokMCP/internal/version"
	"github.com/LeeChunJun/OpenGrokMCP/internal/watcher"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the OpenGrok tools over MCP (stdio)",
	Long: `Start the Model Context Protocol server.

The server reads JSON-RPC 2.0 messages from stdin and writes responses to
stdout, one message per line. Logs go to stderr, or to log.file when set.

When cookies_file is configured the file is watched and the session
cookies are reloaded whenever it changes. When metrics.addr is set,
Prometheus metrics are served on http://<addr>/metrics.

This command is normally started by an MCP client such as an editor
extension, not directly by users.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the protocol.
	logger, closeLog, err := serveLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		clientOpts = []opengrok.Option{opengrok.WithLogger(logger)}
		serverOpts []mcp.ServerOption
		reg        *prometheus.Registry
	)
	if cfg.Metrics.Addr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		clientOpts = append(clientOpts, opengrok.WithMetrics(transport.NewMetrics(reg)))
		serverOpts = append(serverOpts, mcp.WithToolMetrics(mcp.NewMetrics(reg)))
	}

	client, err := opengrok.New(cfg, clientOpts...)
	if err != nil {
		return err
	}
	server := mcp.NewServer(version.Version, client, logger, serverOpts...)

	if reg != nil {
		go serveMetrics(ctx, cfg.Metrics.Addr, reg, logger)
	}

	if cfg.CookiesFile != "" {
		w, err := watcher.New(cfg.CookiesFile, watcher.DefaultDebounce, func() (int, error) {
			return server.ReloadCredentials("")
		}, logger)
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			logger.Warn("Cookies file watcher disabled", "path", cfg.CookiesFile, "error", err.Error())
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Start is blocked reading stdin; in-flight calls see the
		// cancelled context and the process exits.
		logger.Info("Received shutdown signal")
		return nil
	}
}

// serveLogger returns the server logger and a function releasing its file.
func serveLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := logLevel(cfg)
	if cfg.Log.File == "" {
		return slogutil.NewLogger(os.Stderr, level), func() {}, nil
	}
	logger, f, err := slogutil.NewFileLogger(cfg.Log.File, level)
	if err != nil {
		return nil, nil, &config.ConfigError{Field: "log.file", Message: err.Error()}
	}
	return logger, func() { _ = f.Close() }, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr, "path", "/metrics")
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		logger.Warn("Metrics server stopped", "error", err.Error())
	}
}
