package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathanaday/iot-data-core/internal/store"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and manage projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLAYERS\tCREATED")
			for _, p := range projects {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", p.ID, p.Name, p.LayerCount, p.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.projects.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("created project %d (%s)\n", p.ID, p.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its layers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.projects.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("deleted project %d\n", id)
			return nil
		},
	})

	return cmd
}

// newOpenCmd loads a full project: the project record, its layers, and
// each layer's series and datasource metadata. Layers that fail to load
// are reported but do not fail the command.
func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <project-id>",
		Short: "Load a project and all of its layers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.projects.Open(cmd.Context(), id); err != nil {
				return err
			}

			p, _ := a.projects.CurrentProject()
			fmt.Printf("opened project %d (%s)\n", p.ID, p.Name)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LAYER\tNAME\tVISIBLE\tCOLOR\tPOINTS\tSOURCE")
			for _, l := range a.layers.ByProject(id) {
				points := "-"
				if ts, ok := a.layers.CachedData(l.ID); ok {
					points = strconv.FormatInt(ts.RowCount, 10)
				}
				source := "?"
				if ds, ok := a.layers.Metadata(l.ID); ok {
					source = ds.Name
				} else if a.layers.MetadataState(l.ID) == store.MetadataMissing {
					source = "(deleted)"
				}
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\t%s\n", l.ID, l.Name, l.IsVisible, l.Color, points, source)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for lid, msg := range a.projects.LayerLoadErrors() {
				fmt.Printf("layer %d failed to load: %s\n", lid, msg)
			}
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
