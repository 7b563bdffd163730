package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the analysis tools advertised by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifests, err := a.client.ListToolManifests(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, m := range manifests {
				fmt.Fprintf(w, "%s\t%s\n", m.Name, m.Description)
				for _, p := range m.Params {
					req := ""
					if p.Required {
						req = " (required)"
					}
					fmt.Fprintf(w, "  %s\t%s: %s%s\n", p.Name, p.Type, p.Description, req)
				}
			}
			return w.Flush()
		},
	}
}
