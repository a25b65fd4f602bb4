package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "go-shard-query/docs"
	"go-shard-query/internal/api"
	"go-shard-query/internal/api/handler"
	"go-shard-query/internal/config"
	"go-shard-query/internal/logger"
	"go-shard-query/internal/model"
	"go-shard-query/internal/pipeline"
	"go-shard-query/internal/store"
	"go-shard-query/pkg/router"
	"go-shard-query/pkg/utils"
)

//go:generate swag init --dir ../.. --generalInfo cmd/shardquery/main.go --output ../../docs --outputTypes go

// @title Shard Query API
// @version 1.0
// @description Runs one SQL query against every shard of a data source and merges the results.
// @BasePath /api/v1
func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

const defaultConfigPath = "shardquery.yaml"

func newRootCommand(out io.Writer) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "shardquery",
		Short:        "Run SQL queries across sharded MySQL databases",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML config file")
	cmd.SetOut(out)

	load := func(cmd *cobra.Command) (*config.Config, error) {
		path := configPath
		if !cmd.Flags().Changed("config") {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				path = ""
			}
		}
		return config.Load(path)
	}

	cmd.AddCommand(
		newServeCommand(load),
		newQueryCommand(load),
		newSourcesCommand(load),
	)
	return cmd
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(os.Stderr, cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	runs, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer runs.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := pipeline.NewMetrics()
	reg.MustRegister(metrics.PrometheusCollectors()...)

	runner := newRunner(cfg, log)
	runner.Store = runs
	runner.Metrics = metrics

	h := handler.NewQueryHandler(ctx, runner, runs, log)
	defer h.Wait()

	r := router.New(log)
	api.RegisterRoutes(r, h)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Handle("/swagger/", httpSwagger.WrapHandler)

	log.Info("Loaded data sources", zap.Int("count", len(cfg.DataSources)))
	return r.Start(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

func newRunner(cfg *config.Config, log *zap.Logger) *pipeline.Runner {
	runner := pipeline.NewRunner(cfg.DataSources, log)
	runner.Output = utils.NewOutputManager(cfg.OutputDir)
	return runner
}

func newQueryCommand(load configLoader) *cobra.Command {
	var (
		source  string
		export  string
		timeout string
	)

	cmd := &cobra.Command{
		Use:   "query [flags] SQL",
		Short: "Run one query and print the merged result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			spec := model.QueryJobSpec{DataSource: source, Query: args[0], Timeout: timeout}
			if export != "" {
				spec.Export = &model.Export{File: export}
			}

			result, err := newRunner(cfg, log).Run(ctx, uuid.New().String(), spec)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"data":  result.Data,
				"error": result.Error,
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "data source to query")
	cmd.Flags().StringVar(&export, "export", "", "also write the result to this file (.csv or .json) under output_dir")
	cmd.Flags().StringVar(&timeout, "timeout", "", "overall run timeout, e.g. 30s (default 5m)")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newSourcesCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured data sources and their resolved shards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, ds := range cfg.DataSources {
				targets, err := pipeline.ResolveTargets(ds.Params, ds.Template)
				if err != nil {
					fmt.Fprintf(out, "%s\t%s\tinvalid: %v\n", ds.Name, ds.Type, err)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%d shards\n", ds.Name, ds.Type, len(targets))
				for _, t := range targets {
					fmt.Fprintf(out, "  %s\t%s:%d/%s\n", t.Param, t.Config.Host, t.Config.Port, t.Config.Database)
				}
			}
			return nil
		},
	}
}
