// Command countrypicker lists, searches and serves the country catalog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mattsblocklist/countrypicker/internal/catalog"
	"github.com/mattsblocklist/countrypicker/internal/config"
	"github.com/mattsblocklist/countrypicker/internal/metrics"
	"github.com/mattsblocklist/countrypicker/internal/picker"
	"github.com/mattsblocklist/countrypicker/internal/search"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    *catalog.Cache
	search   *search.Index
	engine   *picker.Engine
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		a          app
	)

	rootCmd := &cobra.Command{
		Use:           "countrypicker",
		Short:         "Browse, filter and search the country catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: COUNTRYPICKER_* environment variables)")

	for _, cmd := range []*cobra.Command{
		newListCmd(&a),
		newSearchCmd(&a),
		newLettersCmd(&a),
		newInfoCmd(&a),
		newRegionsCmd(&a),
		newExportCmd(&a),
		newServeCmd(&a),
	} {
		rootCmd.AddCommand(cmd)
	}

	return rootCmd
}

func (a *app) init(cmd *cobra.Command, configPath string) error {
	var err error
	if configPath != "" {
		a.cfg, err = config.Load(configPath)
	} else {
		a.cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := a.cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)

	httpClient := &http.Client{Timeout: a.cfg.Catalog.Timeout}
	sources := catalog.DefaultSources(httpClient, a.cfg.Catalog.RemoteURL)
	a.cache = catalog.NewCache(sources, logger.With("component", "catalog"), a.metrics)

	a.search = search.NewIndex(a.cfg.Search.Matcher(), a.metrics)
	a.engine = a.newEngine()
	return nil
}

// newEngine returns an engine sharing the app's cache and search index.
func (a *app) newEngine() *picker.Engine {
	return picker.NewEngine(a.cache, a.search, nil, a.logger.With("component", "picker"), a.metrics)
}
