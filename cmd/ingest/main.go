package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wastejobs-backend/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Import waste delivery points from the Warsaw map server",
	Long:  "Fetches every collection-point layer, converts coordinates from EPSG:2178 to WGS84, parses opening hours out of the labels and stores the points.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
