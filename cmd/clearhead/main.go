package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/MikeSquared-Agency/ClearHead/internal/api"
	"github.com/MikeSquared-Agency/ClearHead/internal/batch"
	"github.com/MikeSquared-Agency/ClearHead/internal/config"
)

const usageText = `usage: clearhead [-config file] <command> [args]

commands:
  run <input> <output>   rank the incomplete tasks in input and write the result to output
  train                  retrain the model and overwrite the stored artifact
  serve                  run the HTTP API and metrics servers

"clearhead <input> <output>" is shorthand for "clearhead run <input> <output>".
`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usageText) }
	flag.Parse()

	cmd, args := parseCommand(flag.Args())
	if cmd == "" {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return setupFailed(cmd, args, fmt.Errorf("load config: %w", err), slog.Default())
	}

	logger := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := "cli"
	if cmd == "serve" {
		source = "api"
	}
	a, err := newApp(ctx, cfg, source, logger)
	if err != nil {
		return setupFailed(cmd, args, err, logger)
	}
	defer a.Close()

	switch cmd {
	case "run":
		return runBatch(ctx, a, args[0], args[1])
	case "train":
		return trainModel(ctx, a)
	default:
		return serve(ctx, cancel, a)
	}
}

// parseCommand returns the command and its arguments, or "" when the
// arguments do not form a valid invocation.
func parseCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	switch args[0] {
	case "run":
		if len(args) != 3 {
			return "", nil
		}
		return "run", args[1:]
	case "train", "serve":
		if len(args) != 1 {
			return "", nil
		}
		return args[0], nil
	}
	if len(args) == 2 {
		return "run", args
	}
	return "", nil
}

// setupFailed reports an error raised before the driver exists. In run
// mode the failure document is still written to the output path.
func setupFailed(cmd string, args []string, err error, logger *slog.Logger) int {
	logger.Error("failed to initialise", "error", err)
	if cmd == "run" {
		if werr := batch.WriteFailure(args[1], err); werr != nil {
			logger.Error("failed to write output", "path", args[1], "error", werr)
		}
	}
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
	return 1
}

func runBatch(ctx context.Context, a *app, inPath, outPath string) int {
	out, err := a.driver.Run(ctx, inPath, outPath)
	a.pushMetrics(ctx)

	switch {
	case err != nil:
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		return 1
	case !out.Success:
		color.New(color.FgYellow).Fprintf(os.Stderr, "• %s\n", out.Message)
	default:
		top := ""
		if len(out.Recommendations) > 0 {
			top = out.Recommendations[0].TaskID
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "✓ %s, top task %s\n", out.Message, top)
	}
	return 0
}

func trainModel(ctx context.Context, a *app) int {
	m, err := a.driver.Train(ctx, 0, 0)
	a.pushMetrics(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		return 1
	}

	args := []any{
		"samples", m.Samples,
		"train_accuracy", m.TrainAccuracy,
		"test_accuracy", m.TestAccuracy,
	}
	for name, v := range m.FeatureImportance {
		args = append(args, "importance_"+name, v)
	}
	a.logger.Info("model trained", args...)

	color.New(color.FgGreen).Fprintf(os.Stderr, "✓ model trained on %d samples, test accuracy %.3f\n",
		m.Samples, m.TestAccuracy)
	return 0
}

func serve(ctx context.Context, cancel context.CancelFunc, a *app) int {
	logger := a.logger
	cfg := a.cfg

	if err := a.driver.EnsureModel(ctx); err != nil {
		logger.Error("failed to prepare model", "error", err)
		return 1
	}

	if err := a.driver.SubscribeRetrain(a.events); err != nil {
		logger.Warn("retrain subscription unavailable", "error", err)
	}

	// API server
	router := api.NewRouter(a.driver, a.runs, a.metrics, api.RouterOptions{
		AdminToken:     cfg.Server.AdminToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(a.metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return 0
}
