package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"eventregistry/internal/domain"
	"eventregistry/internal/services"
)

func newSweepCmd() *cobra.Command {
	var categories []string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the retention sweeper once and print the summary as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			selection, err := domain.ParseCleanupSelection(categories)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewCleanupService(a.deps(nil, nil), a.cfg.Retention)
			summary, err := svc.Run(cmd.Context(), selection)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", nil,
		"categories to purge (repeatable or comma-separated); default all")
	return cmd
}
