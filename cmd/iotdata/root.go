package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/api"
	"github.com/nathanaday/iot-data-core/internal/config"
	"github.com/nathanaday/iot-data-core/internal/logger"
	"github.com/nathanaday/iot-data-core/internal/store"
)

// app carries the wired-up client and stores shared by all subcommands.
// It is populated once in PersistentPreRunE so every command sees the
// same configuration path.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	client *api.Client

	datasources *store.DataSourceStore
	layers      *store.LayerStore
	projects    *store.ProjectStore
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.client = api.New(cfg.APIBaseURL, api.WithTimeout(cfg.RequestTimeout))
	a.datasources = store.NewDataSourceStore(a.client, log)
	a.layers = store.NewLayerStore(a.client, log)
	a.projects = store.NewProjectStore(a.client, a.layers, log)
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "iotdata",
		Short:        "Client-side cache and tooling for the IoT time-series API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.AddCommand(
		newProjectsCmd(a),
		newOpenCmd(a),
		newDataSourcesCmd(a),
		newLayersCmd(a),
		newToolsCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
	)
	return root
}
