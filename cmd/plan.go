package cmd

import (
	"context"
	"fmt"

	"db-tube/internal/plan"
	"db-tube/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sampleRows int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show how every job maps its fields, without migrating",
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
		report, err := plan.Describe(ctx, s.plan, specs, s.handles)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Print(string(out))

		if len(report.Violations) > 0 {
			fmt.Println("\nWarning: some tables are written before the tables they reference.")
		}
		if sampleRows > 0 {
			return printSamples(ctx, s, specs)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().StringSliceVar(&jobNames, "jobs", nil, "describe only these jobs (by name)")
	planCmd.Flags().IntVar(&sampleRows, "sample", 0, "also show this many mapped sample rows per job")
	RootCmd.AddCommand(planCmd)
}

func printSamples(ctx context.Context, s *session, specs []plan.JobSpec) error {
	jobs, err := plan.Build(ctx, s.plan, specs, s.handles)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		fmt.Printf("\n# %s\n", job.Name())
		src, ok := job.Provider().(*store.Source)
		if !ok {
			continue
		}
		rows, err := src.Sample(ctx, sampleRows)
		if err != nil {
			return err
		}
		for _, row := range rows {
			rec, err := job.Builder().Build(ctx, row)
			if err != nil {
				fmt.Printf("  %s\n    ! %v\n", row, err)
				continue
			}
			fmt.Printf("  %s\n    => %s\n", row, rec)
		}
	}
	return nil
}
