package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sheetsync/adapters/excel"
	"sheetsync/app"
	"sheetsync/domain/aggregate"
	"sheetsync/domain/dataset"
	"sheetsync/internal"
	"sheetsync/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetsync-dev",
		Short: "sheetsync development tools",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var out string
	var rows int
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a demo workbook for the excel source",
		Long: `Generate deterministic donation, contact and volunteer sheets and write
them to a workbook that SHEETSYNC_SOURCE_KIND=excel can serve.

Example: sheetsync-dev seed --out demo.xlsx --rows 50 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultSheetConfig()
			cfg.Rows = rows
			cfg.Seed = seed

			if err := testkit.WriteWorkbook(out, testkit.NewSheetGenerator(cfg).Generate()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rows per dataset, seed %d)\n", out, rows, seed)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "demo.xlsx", "Workbook path")
	cmd.Flags().IntVar(&rows, "rows", 25, "Rows per dataset")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic data")
	return cmd
}

func newSmokeTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run smoke tests against a generated workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context(), cmd.OutOrStdout())
		},
	}
	return cmd
}

func runSmokeTests(ctx context.Context, w io.Writer) error {
	fmt.Fprintln(w, "Running smoke tests...")

	dir, err := os.MkdirTemp("", "sheetsync-smoke")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	cfg := testkit.DefaultSheetConfig()
	payloads := testkit.NewSheetGenerator(cfg).Generate()
	path := filepath.Join(dir, "smoke.xlsx")
	if err := testkit.WriteWorkbook(path, payloads); err != nil {
		return err
	}

	logger := internal.NewWriterLogger(internal.LogLevelWarn, os.Stderr)
	source := excel.NewWorkbookSource(path, logger)
	loader := app.NewMultiDatasetLoader(app.NewDatasetFetcher(source, logger), app.LoaderConfig{}, logger)
	controller, err := app.NewRefreshController(loader, dataset.Names(), logger)
	if err != nil {
		return err
	}

	tests := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"load_all", func(ctx context.Context) error {
			snap, err := controller.Mount(ctx)
			if err != nil {
				return err
			}
			if n := snap.Succeeded(); n != len(dataset.Names()) {
				return fmt.Errorf("%d of %d datasets loaded", n, len(dataset.Names()))
			}
			return nil
		}},
		{"newest_first", func(ctx context.Context) error {
			ds, err := controller.Current().Snapshot.Dataset(dataset.Donations)
			if err != nil {
				return err
			}
			cols := dataset.ResolveColumns(ds)
			if !cols.Has(dataset.FieldTimestamp) {
				return fmt.Errorf("%s has no %s column", ds.Name, dataset.FieldTimestamp)
			}
			for i := 1; i < ds.Len(); i++ {
				prev, okPrev := cols.ReadTime(ds.Rows[i-1], dataset.FieldTimestamp)
				cur, okCur := cols.ReadTime(ds.Rows[i], dataset.FieldTimestamp)
				if okCur && (!okPrev || cur.After(prev)) {
					return fmt.Errorf("row %d is out of order", i)
				}
			}
			return nil
		}},
		{"donation_total", func(ctx context.Context) error {
			ds, err := controller.Current().Snapshot.Dataset(dataset.Donations)
			if err != nil {
				return err
			}
			generated, err := dataset.New(dataset.Donations, payloads[dataset.Donations])
			if err != nil {
				return err
			}
			want := aggregate.SumNumeric(generated, dataset.FieldAmount)
			if got := aggregate.SumNumeric(ds, dataset.FieldAmount); got != want {
				return fmt.Errorf("total %v, want %v", got, want)
			}
			return nil
		}},
		{"refresh", func(ctx context.Context) error {
			before := controller.Current().Snapshot
			after, err := controller.Refresh(ctx)
			if err != nil {
				return err
			}
			if after.ID == before.ID {
				return fmt.Errorf("refresh reused snapshot %s", after.ID)
			}
			return nil
		}},
	}

	passed := 0
	for _, test := range tests {
		fmt.Fprintf(w, "  Running %s...", test.name)
		if err := test.fn(ctx); err != nil {
			fmt.Fprintf(w, " FAILED: %v\n", err)
		} else {
			fmt.Fprintln(w, " PASSED")
			passed++
		}
	}

	fmt.Fprintf(w, "\nSmoke tests: %d/%d passed\n", passed, len(tests))
	if passed < len(tests) {
		return fmt.Errorf("some smoke tests failed")
	}
	return nil
}
