package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	corecfg "github.com/nwrousell/dashboard/internal/core/config"
	"github.com/nwrousell/dashboard/internal/ingestion"
	"github.com/nwrousell/dashboard/internal/projection"
	"github.com/nwrousell/dashboard/internal/query"
	"github.com/nwrousell/dashboard/internal/server"
	"github.com/nwrousell/dashboard/internal/telemetry"
)

const usage = `usage: dashboard <command> [flags]

commands:
  fetch   run one ingestion pass over the enabled sources
  serve   serve the read API, /health and /metrics
  status  print the stored sync cursor of every source

run "dashboard <command> -h" for the flags of a command`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "fetch":
		code = runFetch(os.Args[2:])
	case "serve":
		code = runServe(os.Args[2:])
	case "status":
		code = runStatus(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		code = 2
	}
	os.Exit(code)
}

// setup loads config, installs the configured log level and wires the app.
func setup(configPath string) (*app, func(context.Context) error, error) {
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
	slog.Info("[App] Loaded config",
		"path", configPath,
		"categories", cfg.Classifier.Categories(),
		"rules_fingerprint", cfg.Classifier.Fingerprint(),
	)

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("setup tracing: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, nil, err
	}
	return a, shutdownTracing, nil
}

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", "dashboard.yaml", "Path to configuration file")
	only := fs.String("only", "", "Comma separated source ids to run (default: all enabled)")
	dryRun := fs.Bool("dry-run", false, "Fetch and segment without writing rows or advancing cursors")
	_ = fs.Parse(args)

	a, shutdownTracing, err := setup(*configPath)
	if err != nil {
		slog.Error("[App] Startup failed", "error", err)
		return 1
	}
	defer a.Close()
	defer flushTracing(shutdownTracing)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.orchestrator.Run(ctx, ingestion.Options{
		DryRun:        *dryRun,
		Only:          splitList(*only),
		SourceTimeout: a.cfg.Ingestion.SourceTimeoutDuration(),
	})
	if err != nil {
		slog.Error("[App] Ingestion run rejected", "error", err)
		return 2
	}

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Printf("%-16s FAILED  %v\n", res.SourceID, res.Err)
			continue
		}
		fmt.Printf("%-16s ok      %d rows  %s .. %s\n",
			res.SourceID, res.Rows,
			res.Window.Start.Format(time.RFC3339), res.Window.End.Format(time.RFC3339))
	}
	if report.Failed() {
		return 1
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "dashboard.yaml", "Path to configuration file")
	_ = fs.Parse(args)

	a, shutdownTracing, err := setup(*configPath)
	if err != nil {
		slog.Error("[App] Startup failed", "error", err)
		return 1
	}
	defer a.Close()
	defer flushTracing(shutdownTracing)

	planner := query.NewPlanner(a.store, a.catalog)
	projectionSvc := projection.NewService(planner, time.Local, a.cfg.Sources.ActivityWatch.DayOffsetDuration())
	ingestionSvc := ingestion.NewService(a.orchestrator, ingestion.Options{
		SourceTimeout: a.cfg.Ingestion.SourceTimeoutDuration(),
	})

	srv := server.New(fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port), a.store, a.metrics, a.cfg.Server.Mode)
	projectionSvc.RegisterRoutes(srv.Engine)
	ingestionSvc.RegisterRoutes(srv.Engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("[App] Shutting down...")
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("[App] Server stopped with error", "error", err)
		return 1
	}
	slog.Info("[App] Shutdown complete")
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "dashboard.yaml", "Path to configuration file")
	_ = fs.Parse(args)

	a, shutdownTracing, err := setup(*configPath)
	if err != nil {
		slog.Error("[App] Startup failed", "error", err)
		return 1
	}
	defer a.Close()
	defer flushTracing(shutdownTracing)

	positions, err := a.cursor.Positions(context.Background())
	if err != nil {
		slog.Error("[App] Failed to read cursors", "error", err)
		return 1
	}
	for _, id := range a.registry.IDs() {
		last, ok := positions[id]
		if !ok {
			fmt.Printf("%-16s never synced\n", id)
			continue
		}
		fmt.Printf("%-16s %s\n", id, last.Format(time.RFC3339))
	}
	return 0
}

func flushTracing(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Warn("[App] Tracing shutdown failed", "error", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
