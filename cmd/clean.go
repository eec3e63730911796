package cmd

import (
	"context"
	"fmt"

	"db-tube/internal/plan"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Empty the destination tables of the plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		specs, err := s.plan.Select(jobNames)
		if err != nil {
			return err
		}
		tables := plan.DestTables(specs)
		fmt.Printf("Cleaning %d tables in %s...\n", len(tables), s.handles.Dest.Name)
		if err := s.handles.Dest.Clean(ctx, tables); err != nil {
			return err
		}
		fmt.Println("Database Cleaned Successfully!")
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringSliceVar(&jobNames, "jobs", nil, "clean only the destinations of these jobs")
	RootCmd.AddCommand(cleanCmd)
}
