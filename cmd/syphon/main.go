// Command syphon runs extraction pipelines defined in YAML configuration.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syphon-data/syphon/internal/pipeline"
	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/connector/registry"
	"github.com/syphon-data/syphon/pkg/logger"
	"github.com/syphon-data/syphon/pkg/metrics"
	"github.com/syphon-data/syphon/pkg/observability"
	"github.com/syphon-data/syphon/pkg/state"

	// Register connectors
	_ "github.com/syphon-data/syphon/pkg/connector/destinations/json"
	_ "github.com/syphon-data/syphon/pkg/connector/sources/netsuite"
)

var version = "dev"

var (
	flagLogLevel    string
	flagStatePath   string
	flagMetricsAddr string
	flagTracing     bool
	flagTimeout     time.Duration
)

func main() {
	// A .env next to the binary is convenient in development; absence is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "syphon",
		Short: "Syphon extracts ERP records into local files",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:    flagLogLevel,
				Encoding: "json",
			})
		},
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(versionCmd(), listCmd(), runCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("syphon %s\n", version)
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Sources:")
			for _, name := range registry.ListSources() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("Destinations:")
			for _, name := range registry.ListDestinations() {
				fmt.Printf("  %s\n", name)
			}
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run an extraction pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(args[0])
		},
	}
	cmd.Flags().StringVar(&flagStatePath, "state", "syphon_state.json", "state file path")
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&flagTracing, "tracing", false, "enable trace export")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "overall run timeout (0 = none)")
	return cmd
}

func runPipeline(configPath string) error {
	log := logger.Get()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.LoadPipelineConfig(configPath)
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(flagTracing)
	if err != nil {
		return err
	}

	if flagMetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Default().Handler())
			if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagTimeout)
		defer cancel()
	}

	name := cfg.Pipeline.Name
	if name == "" {
		name = "pipeline"
	}

	sourceCfg, err := config.BaseConfigFromMap(name+"-source",
		cfg.Pipeline.Source.Type, cfg.Pipeline.Source.Config)
	if err != nil {
		return err
	}
	destCfg, err := config.BaseConfigFromMap(name+"-destination",
		cfg.Pipeline.Destination.Type, cfg.Pipeline.Destination.Config)
	if err != nil {
		return err
	}

	source, err := registry.CreateSource(cfg.Pipeline.Source.Type, sourceCfg)
	if err != nil {
		return err
	}
	dest, err := registry.CreateDestination(cfg.Pipeline.Destination.Type, destCfg)
	if err != nil {
		return err
	}

	if err := source.Initialize(ctx, sourceCfg); err != nil {
		return err
	}
	if err := dest.Initialize(ctx, destCfg); err != nil {
		return err
	}

	store := state.NewFileStore(flagStatePath, log)
	p := pipeline.NewSimplePipeline(name, source, dest, store, log)

	result, runErr := p.Run(ctx)
	if err := p.Close(context.Background()); err != nil {
		log.Warn("pipeline close failed", zap.Error(err))
	}
	if err := shutdownTracing(context.Background()); err != nil {
		log.Warn("trace shutdown failed", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("pipeline %s finished: %d records across %d streams in %s\n",
		name, result.Records, result.Streams, result.Duration.Round(time.Millisecond))
	return nil
}
