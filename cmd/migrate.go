package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"db-tube/internal/engine"
	"db-tube/internal/metrics"
	"db-tube/internal/plan"
	"db-tube/internal/progress"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dryRun      bool
	stopOnError bool
	skipErrors  bool
	jobNames    []string
	cleanFirst  bool
	metricsFile string
	plainOutput bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the migration plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		opts, err := runOptions(s.settings)
		if err != nil {
			return err
		}

		specs, err := s.plan.Select(jobNames)
		if err != nil {
			return err
		}
		jobs, err := plan.Build(ctx, s.plan, specs, s.handles)
		if err != nil {
			return err
		}

		if cleanFirst {
			if dryRun {
				fmt.Println("dry-run: skipping --clean")
			} else if err := s.handles.Dest.Clean(ctx, plan.DestTables(specs)); err != nil {
				return fmt.Errorf("clean: %w", err)
			}
		}

		var recorder *metrics.Recorder
		if metricsFile != "" {
			recorder = metrics.NewRecorder()
			opts.Observer = recorder
		}

		if plainOutput {
			opts.Reporter = progress.NewText(os.Stdout)
		} else {
			bar := progress.NewBar(os.Stdout)
			defer bar.Stop()
			opts.Reporter = bar
		}

		set := engine.NewSet(s.handles.Dest.Fixer(), os.Stdout)
		set.Add(jobs...)

		start := time.Now()
		result, runErr := set.Run(ctx, opts)

		if recorder != nil {
			if err := recorder.WriteFile(metricsFile); err != nil {
				logrus.WithError(err).Warn("failed to write metrics file")
			}
		}
		if runErr != nil {
			return runErr
		}

		logrus.WithFields(logrus.Fields{
			"run_id":  result.RunID,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("migration finished")
		printSummary(result)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Int("batch-size", 0, "records per bulk write (default is settings.batch_size)")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "map and count records without writing")
	migrateCmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort the job on the first record that fails to map")
	migrateCmd.Flags().BoolVar(&skipErrors, "skip", false, "skip records that fail to map")
	migrateCmd.MarkFlagsMutuallyExclusive("stop-on-error", "skip")
	migrateCmd.Flags().StringSliceVar(&jobNames, "jobs", nil, "run only these jobs (by name)")
	migrateCmd.Flags().BoolVar(&cleanFirst, "clean", false, "empty the destination tables before migrating")
	migrateCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus text format")
	migrateCmd.Flags().BoolVar(&plainOutput, "plain", false, "single-line text progress instead of bars")

	RootCmd.AddCommand(migrateCmd)
}

func runOptions(s Settings) (engine.Options, error) {
	policy := s.OnError
	switch {
	case stopOnError:
		policy = "stop"
	case skipErrors:
		policy = "skip"
	}
	onError, err := engine.ParseErrorPolicy(policy)
	if err != nil {
		return engine.Options{}, err
	}
	opts := engine.Options{
		BatchSize: s.BatchSize,
		DryRun:    dryRun,
		OnError:   onError,
		Debug:     debug,
	}
	return opts, opts.Validate()
}

func printSummary(r *engine.SetResult) {
	fmt.Println("\nSummary:")
	fmt.Printf("%-30s | %-20s | %-20s | %10s | %8s\n", "Job", "Source", "Dest", "Succeeded", "Skipped")
	fmt.Println("----------------------------------------------------------------------------------------------------")
	for _, s := range r.Jobs {
		fmt.Printf("%-30s | %-20s | %-20s | %4d/%-5d | %8d\n", s.Job, s.Source, s.Dest, s.Succeeded, s.Total, s.Skipped)
	}
	if r.FixupErr != nil {
		fmt.Printf("\nsequence reset failed, fix identifiers manually: %v\n", r.FixupErr)
	}
}
