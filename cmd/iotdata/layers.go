package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newLayersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layers",
		Short: "Manage layers within a project",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <project-id> <name>",
		Short: "Create a layer in a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			l, err := a.layers.Create(cmd.Context(), projectID, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("created layer %d (%s) color=%s z=%d\n", l.ID, l.Name, l.Color, l.ZIndex)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.layers.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("deleted layer %d\n", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "color <id> <hex>",
		Short: "Change a layer's display color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			l, err := a.layers.UpdateColor(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("layer %d color is now %s\n", l.ID, l.Color)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "visibility <id> <true|false>",
		Short: "Toggle a layer's visibility",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			visible, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid visibility %q", args[1])
			}
			l, err := a.layers.UpdateVisibility(cmd.Context(), id, visible)
			if err != nil {
				return err
			}
			fmt.Printf("layer %d visible=%t\n", l.ID, l.IsVisible)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "duplicate <id> <new-name>",
		Short: "Duplicate a layer under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			l, err := a.layers.Duplicate(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("created layer %d (%s)\n", l.ID, l.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "load-csv <id> <file.csv>",
		Short: "Replace a layer's datasource with an uploaded CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			l, err := a.layers.LoadCSV(cmd.Context(), id, f, filepath.Base(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("layer %d now reads datasource %d\n", l.ID, l.DataSourceID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "data <id>",
		Short: "Fetch a layer's time series and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ts, err := a.layers.FetchData(cmd.Context(), id, nil, nil)
			if err != nil {
				return err
			}
			fmt.Printf("%d points, %s to %s\n", ts.RowCount,
				ts.StartTime.Format(time.RFC3339), ts.EndTime.Format(time.RFC3339))
			return nil
		},
	})

	return cmd
}
