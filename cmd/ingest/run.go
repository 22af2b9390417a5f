package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"wastejobs-backend/internal/database"
	"wastejobs-backend/internal/ingest"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch all layers and store the points",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.ValidateStore(); err != nil {
			return err
		}

		refresh, _ := cmd.Flags().GetBool("refresh")
		layers, _ := cmd.Flags().GetStringSlice("layer")
		migrate, _ := cmd.Flags().GetBool("migrate")

		db, err := database.Connect(cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if migrate {
			if err := database.MigrateContext(ctx, db); err != nil {
				return err
			}
		}

		fetcher := ingest.NewHTTPFetcher(ingest.FetcherOptions{
			BaseURL:           cfg.Ingest.BaseURL,
			Query:             cfg.Ingest.Query,
			Timeout:           cfg.Ingest.Timeout(),
			RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
		})
		in := ingest.NewIngester(fetcher, database.NewPointRepository(db), cfg.Ingest.Concurrency)

		res, err := in.Run(ctx, ingest.Options{Refresh: refresh || cfg.Ingest.Refresh, Layers: layers})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LAYER\tCATEGORY\tFEATURES\tPOINTS\tSKIPPED\tERROR")
		for _, l := range res.Layers {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", l.Layer, l.Category, l.Features, l.Points, l.Skipped, l.Error)
		}
		tw.Flush()
		fmt.Fprintf(out, "run %s: stored %d points\n", res.RunID, res.Stored)

		if res.Failed() == len(res.Layers) {
			return eris.New("ingest: every layer failed")
		}
		return nil
	},
}

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List the source layers and their categories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LAYER\tCATEGORY")
		for _, l := range ingest.Layers {
			fmt.Fprintf(tw, "%s\t%s\n", l.Name, l.Category)
		}
		return tw.Flush()
	},
}

func init() {
	runCmd.Flags().Bool("refresh", false, "replace the whole catalog instead of adding new points")
	runCmd.Flags().StringSlice("layer", nil, "only fetch these layers (repeatable)")
	runCmd.Flags().Bool("migrate", true, "apply database migrations first")
	rootCmd.AddCommand(runCmd, layersCmd)
}
