package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mappoint/geocsv/internal/mapping"
)

var (
	detectDelimiter string
	detectEncoding  string
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Show the auto-detected column mapping for a file",
	Long: `Parses the header row of a CSV or XLSX file and prints the column mapping
that "run" would use, as JSON. Useful for checking detection before starting a
long batch, or as a starting point for an explicit mapping.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := readInput(args[0], detectDelimiter, detectEncoding)
		if err != nil {
			return err
		}

		cm := mapping.Detect(tbl.Headers)
		cm.Metadata = cm.DefaultMetadata(tbl.Headers)

		out, err := json.MarshalIndent(cm, "", "  ")
		if err != nil {
			return eris.Wrap(err, "detect: marshal mapping")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if !cm.HasAddressColumn() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: no address column detected; map columns explicitly with --street/--zip/--city/--country")
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectDelimiter, "delimiter", "", "CSV delimiter (default comma, use 'tab' for TSV)")
	detectCmd.Flags().StringVar(&detectEncoding, "encoding", "", "input encoding: utf-8 (default), latin1, windows-1252")
	rootCmd.AddCommand(detectCmd)
}
