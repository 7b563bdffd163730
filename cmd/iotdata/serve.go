package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/mockapi"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a local in-memory implementation of the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.log.Info("starting mock API server", zap.String("addr", a.cfg.MockAddr))
			return mockapi.New().Run(a.cfg.MockAddr)
		},
	}
}
