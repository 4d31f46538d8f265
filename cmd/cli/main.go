package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sheetsync/adapters/excel"
	"sheetsync/app"
	"sheetsync/domain/dataset"
	"sheetsync/internal"
	"sheetsync/internal/config"
	"sheetsync/internal/container"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "sheetsync",
		Short:         "Fetch, summarize and export the donation, contact and volunteer sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default $SHEETSYNC_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(
		newFetchCmd(opts),
		newLoadCmd(opts),
		newSummaryCmd(opts),
		newExportCmd(opts),
	)
	return rootCmd
}

// setup loads .env and config and wires the container
func setup(opts *rootOptions) (*container.Container, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := internal.NewWriterLogger(cfg.LogLevel(), os.Stderr)
	return container.New(cfg, logger)
}

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "fetch [dataset]",
		Short: "Fetch one dataset and print its rows newest first",
		Long: `Fetch one dataset from the configured source and print it.

Datasets: donate, contact, register

Example: sheetsync fetch donate --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := dataset.ParseName(args[0])
			if err != nil {
				return err
			}

			c, err := setup(opts)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			ctx, cancel := context.WithTimeout(cmd.Context(), c.Config.Fetch.Timeout)
			defer cancel()

			ds, err := c.Fetcher.Fetch(ctx, name)
			if err != nil {
				return err
			}
			if limit > 0 {
				ds = ds.Head(limit)
			}

			if opts.jsonOutput {
				return renderJSON(cmd.OutOrStdout(), ds)
			}
			renderDataset(cmd.OutOrStdout(), ds)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the N most recent rows (0 shows all)")
	return cmd
}

func newLoadCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [datasets...]",
		Short: "Load several datasets concurrently and report each outcome",
		Long: `Load datasets concurrently. A failing dataset is reported without
hiding the others. With no arguments the configured datasets are loaded.

Example: sheetsync load donate register`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(opts)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			names := c.Controller.Names()
			if len(args) > 0 {
				if names, err = dataset.ParseNames(args); err != nil {
					return err
				}
			}

			snap, err := c.Loader.LoadAll(cmd.Context(), names)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return renderJSON(cmd.OutOrStdout(), snap)
			}
			renderLoad(cmd.OutOrStdout(), snap)
			if snap.AllFailed() {
				return fmt.Errorf("no dataset could be loaded")
			}
			return nil
		},
	}
	return cmd
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print row counts, total donations and pending volunteers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(opts)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			snap, err := c.Controller.Mount(cmd.Context())
			if err != nil {
				return err
			}

			summary := app.Summarize(snap)
			if opts.jsonOutput {
				return renderJSON(cmd.OutOrStdout(), summary)
			}
			renderSummary(cmd.OutOrStdout(), summary, snap.LoadedAt.Time())
			return nil
		},
	}
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load every configured dataset and write them to a workbook or CSV file",
		Long: `Load every configured dataset and export the snapshot.

A .xlsx file gets one sheet per dataset plus a failures sheet; a .csv file
gets one line per cell (dataset, row, field, value).

Example: sheetsync export --out dashboard.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := excel.FormatFromPath(out)
			if err != nil {
				return err
			}
			exporter, err := excel.NewExporter(format)
			if err != nil {
				return err
			}

			c, err := setup(opts)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			start := time.Now()
			snap, err := c.Controller.Mount(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := exporter.Export(snap, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			renderLoad(cmd.ErrOrStderr(), snap)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d/%d datasets) in %s\n",
				out, snap.Succeeded(), len(snap.Entries()), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.xlsx or .csv)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
