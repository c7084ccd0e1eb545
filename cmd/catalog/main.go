package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/skekre98/autorun/actuator"
	"github.com/skekre98/autorun/config"
	"github.com/skekre98/autorun/config/source"
	"github.com/skekre98/autorun/core"
	"github.com/skekre98/autorun/logging"
	"github.com/skekre98/autorun/metrics"
	"github.com/skekre98/autorun/web"
)

var (
	configDir string
	profile   string
	envFile   string
	latency   time.Duration
)

func main() {
	if err := buildCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "catalog",
		Short:        "Product catalog served from lazily loaded modules",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "configs", "directory holding application.yaml")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "config profile, reads application.<profile>.yaml on top")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	rootCmd.PersistentFlags().DurationVar(&latency, "store-latency", 50*time.Millisecond, "simulated backend latency")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildModulesCommand())
	return rootCmd
}

func buildServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

Any config key can be overridden with a dotted flag, for example
--server.addr=:9090 or --scheduler.warmup=catalog.`,
		// Dotted config flags are read by the CLI config source.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func buildModulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List modules and their effects in execution order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModules(cmd.OutOrStdout())
		},
	}
}

func loadConfig(ctx context.Context) (config.Root, error) {
	return config.Load(ctx,
		&source.FileSource{BasePath: configDir, Profile: profile},
		&source.DotEnvSource{Path: envFile},
		&source.EnvSource{},
		&source.CLISource{},
	)
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	)

	app, err := newApp(cfg, logger, prometheus.NewRegistry(), newMemoryStore(latency))
	if err != nil {
		return err
	}
	defer app.Scheduler.Dispose()

	if err := app.Run(logging.WithLogger(ctx, logger)); err != nil {
		logger.Error("app error", "error", err)
		return err
	}
	return nil
}

// newApp wires the scheduler, the shared values and the components.
func newApp(cfg config.Root, logger *slog.Logger, reg *prometheus.Registry, store Store) (*core.App, error) {
	if cfg.Observability.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	sched := core.NewScheduler(
		core.WithLogger(logger),
		core.WithObserver(metrics.NewCollector(reg)),
	)

	if err := core.Put(sched, cfg); err != nil {
		return nil, err
	}
	if err := core.Put(sched, logger); err != nil {
		return nil, err
	}
	if err := core.Put[prometheus.Gatherer](sched, reg); err != nil {
		return nil, err
	}

	app := core.NewApp(
		logger,
		sched,
		web.Component(),
		actuator.Component(),
		newModules(store),
	)
	app.Globals = aliases(cfg.Scheduler.Globals)
	app.Warmup = aliases(cfg.Scheduler.Warmup)
	if cfg.Scheduler.WarmupTimeout > 0 {
		app.WarmupTimeout = cfg.Scheduler.WarmupTimeout
	}
	return app, nil
}

func aliases(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func listModules(w io.Writer) error {
	s := core.NewScheduler()
	defer s.Dispose()

	if err := newModules(newMemoryStore(0)).Configure(s); err != nil {
		return err
	}
	for _, c := range s.Classes() {
		fmt.Fprintf(w, "%s\n", c.Name())
		for _, e := range s.OrderedEffects(c) {
			fmt.Fprintf(w, "  %-28s priority=%d\n", e.Name, e.Priority)
		}
	}
	return nil
}
