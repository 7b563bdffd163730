package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/store"
)

// newWatchCmd opens a project if one is named, then keeps the datasource
// cache warm on a cron schedule until interrupted.
func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [project-id]",
		Short: "Open a project, then periodically refresh the datasource list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := a.projects.Open(cmd.Context(), id); err != nil {
					return err
				}
				a.log.Info("project opened", zap.Int64("project_id", id))
			}

			r := store.NewRefresher(a.datasources, a.cfg.RefreshSpec, a.log)
			if err := r.Start(); err != nil {
				return err
			}
			defer r.Stop()
			a.log.Info("watching datasources", zap.String("spec", a.cfg.RefreshSpec))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			a.log.Info("shutting down")
			return nil
		},
	}
}
