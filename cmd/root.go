package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mappoint/geocsv/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geocsv",
	Short: "Geocode CSV address lists into GeoJSON",
	Long:  "Reads a CSV or XLSX of postal addresses, resolves each row against OpenStreetMap Nominatim under its one-request-per-second policy, and exports the matches as a GeoJSON point collection plus a re-submittable CSV of failed rows.",
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
