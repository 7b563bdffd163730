package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newDataSourcesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasources",
		Aliases: []string{"ds"},
		Short:   "List and manage uploaded datasources",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all datasources",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.datasources.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tROWS\tSTART\tEND")
			for _, ds := range sources {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
					ds.ID, ds.Name, ds.Type, ds.RowCount,
					ds.StartTime.Format(time.RFC3339), ds.EndTime.Format(time.RFC3339))
			}
			return w.Flush()
		},
	})

	upload := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a CSV file as a new datasource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			ds, err := a.datasources.Upload(cmd.Context(), f, filepath.Base(args[0]), name)
			if err != nil {
				return err
			}
			fmt.Printf("uploaded datasource %d (%s): %d rows, %s to %s\n",
				ds.ID, ds.Name, ds.RowCount,
				ds.StartTime.Format(time.RFC3339), ds.EndTime.Format(time.RFC3339))
			return nil
		},
	}
	upload.Flags().String("name", "", "datasource name (defaults to the file name)")
	cmd.AddCommand(upload)

	cmd.AddCommand(&cobra.Command{
		Use:   "preview <file.csv>",
		Short: "Parse a CSV file server-side without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			p, err := a.datasources.PreviewCSV(cmd.Context(), f, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%d rows, %s to %s (columns: %s, %s)\n",
				p.RowCount, p.StartTime.Format(time.RFC3339), p.EndTime.Format(time.RFC3339),
				p.TimeLabel, p.ValueLabel)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a datasource (layers referencing it keep their binding)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.datasources.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("deleted datasource %d\n", id)
			return nil
		},
	})

	return cmd
}
