package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured drives over HTTP",
	Long: `Start an HTTP API to browse the configured drives.

Endpoints:
  GET    /health
  GET    /api/v1/drives
  GET    /api/v1/drives/{name}/ping
  GET    /api/v1/drives/{name}/entries?path=&hidden=
  DELETE /api/v1/drives/{name}/entries?path=&dir=
  GET    /api/v1/drives/{name}/content?path=
  GET    /metrics (when metrics are enabled)

The server shuts down gracefully on SIGINT or SIGTERM.

Examples:
  dittodrive serve
  dittodrive serve --listen 127.0.0.1:8089
  DITTODRIVE_LOGGING_LEVEL=INFO dittodrive serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: server.listen from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittodrive",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		Drives:         driveNames(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is done by now; flush with a fresh deadline.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(flushCtx); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dittodrive",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
	}()

	reg, err := config.InitializeRegistry(cfg, cmdutil.DriveMetrics(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	listen := cfg.Server.Listen
	if serveListen != "" {
		listen = serveListen
	}
	srv := server.New(server.Config{
		Listen:          listen,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Version:         Version,
	}, reg, cfg.Listing.Policy())

	logger.Info("Starting dittodrive server",
		"version", Version,
		logger.Entries(reg.Count()),
		"telemetry", telemetry.IsEnabled(),
		"profiling", telemetry.IsProfilingEnabled(),
		"metrics", metrics.IsEnabled(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	if metrics.IsEnabled() && cfg.Metrics.Listen != "" && cfg.Metrics.Listen != listen {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Listen, cfg.Server.ShutdownTimeout) })
	}

	go func() {
		select {
		case <-srv.Ready():
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %d drive(s) on http://%s\n", reg.Count(), srv.Addr())
		case <-gctx.Done():
		}
	}()

	return g.Wait()
}

// serveMetrics exposes /metrics on a dedicated listener until ctx is done.
func serveMetrics(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	s := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening", "address", addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

func driveNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Drives))
	for _, d := range cfg.Drives {
		names = append(names, d.Name)
	}
	return names
}
