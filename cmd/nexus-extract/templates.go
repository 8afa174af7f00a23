package main

import (
	"github.com/spf13/cobra"

	"github.com/nexus-extract/invoice-pipeline/internal/templates"
)

func newTemplatesCmd() *cobra.Command {
	var templatesFile string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List available extraction templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := templates.NewRegistry(templatesFile)
			if err != nil {
				return err
			}
			for _, t := range registry.List() {
				cmd.Printf("%-15s %s\n", t.Key, t.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&templatesFile, "templates-file", "", "TOML file with additional templates")
	return cmd
}
