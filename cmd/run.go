package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mappoint/geocsv/internal/cache"
	"github.com/mappoint/geocsv/internal/export"
	"github.com/mappoint/geocsv/internal/feature"
	"github.com/mappoint/geocsv/internal/mapping"
	"github.com/mappoint/geocsv/internal/pipeline"
	"github.com/mappoint/geocsv/internal/table"
	"github.com/mappoint/geocsv/pkg/nominatim"
)

var (
	runStreet     string
	runZip        string
	runCity       string
	runCountry    string
	runMeta       []string
	runNoDetect   bool
	runDelimiter  string
	runEncoding   string
	runLimit      int
	runOutDir     string
	runFormat     string
	runCache      string
	runLanguage   string
	runNoProgress bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Geocode a CSV or XLSX address list",
	Long: `Geocodes every row of the input file, strictly one row at a time to respect
Nominatim's rate policy, then writes a GeoJSON point collection of the matches
and a CSV of the failed rows' original data for re-submission.

Address columns are auto-detected from the headers (English and German names)
unless mapped explicitly. All remaining columns become feature properties by
default.

Examples:
  # Auto-detect columns, GeoJSON output next to the input
  geocsv run customers.csv

  # Explicit mapping, shapefile output, persistent result cache
  geocsv run kunden.csv --street Straße --zip PLZ --city Ort \
    --format shapefile --cache geocode.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runFormat != "geojson" && runFormat != "shapefile" && runFormat != "both" {
			return eris.Errorf("run: unknown output format %q", runFormat)
		}

		inputPath := args[0]
		tbl, err := readInput(inputPath, runDelimiter, runEncoding)
		if err != nil {
			return err
		}
		zap.L().Info("input parsed",
			zap.String("file", inputPath),
			zap.Int("columns", len(tbl.Headers)),
			zap.Int("rows", len(tbl.Rows)),
		)

		cm := mapping.ColumnMapping{
			Street:     runStreet,
			PostalCode: runZip,
			City:       runCity,
			Country:    runCountry,
			Metadata:   runMeta,
		}
		if !runNoDetect {
			cm = cm.Merge(mapping.Detect(tbl.Headers))
		}
		if len(cm.Metadata) == 0 {
			cm.Metadata = cm.DefaultMetadata(tbl.Headers)
		}

		if problems := cm.Validate(tbl.Headers); len(problems) > 0 {
			return eris.Errorf("run: invalid column mapping:\n  %s", strings.Join(problems, "\n  "))
		}

		if runLimit > 0 && runLimit < len(tbl.Rows) {
			tbl.Rows = tbl.Rows[:runLimit]
		}

		geocoder, closeGeocoder, err := buildGeocoder(runCache, runLanguage)
		if err != nil {
			return err
		}
		defer closeGeocoder()

		runner := pipeline.NewRunner(pipeline.NewProcessor(geocoder), cfg.Batch.ProgressEvery)

		var bar *progressbar.ProgressBar
		if !runNoProgress {
			bar = progressbar.NewOptions(len(tbl.Rows),
				progressbar.OptionSetDescription("geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		var final pipeline.Progress
		results := runner.RunAll(ctx, tbl.Rows, cm, func(p pipeline.Progress, _ []pipeline.ProcessedRow) {
			final = p
			if bar != nil {
				_ = bar.Set(p.Processed)
			}
		})
		if bar != nil {
			_ = bar.Finish()
		}

		zap.L().Info("batch complete",
			zap.Int("total", final.Total),
			zap.Int("processed", final.Processed),
			zap.Int("successful", final.Successful),
			zap.Int("failed", final.Failed),
		)

		return writeOutputs(results, cm, inputPath)
	},
}

func init() {
	runCmd.Flags().StringVar(&runStreet, "street", "", "street column (overrides auto-detection)")
	runCmd.Flags().StringVar(&runZip, "zip", "", "postal code column (overrides auto-detection)")
	runCmd.Flags().StringVar(&runCity, "city", "", "city column (overrides auto-detection)")
	runCmd.Flags().StringVar(&runCountry, "country", "", "country column (overrides auto-detection)")
	runCmd.Flags().StringSliceVar(&runMeta, "meta", nil, "metadata columns to carry into output properties (default: all non-address columns)")
	runCmd.Flags().BoolVar(&runNoDetect, "no-detect", false, "disable column auto-detection")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "CSV delimiter (default comma, use 'tab' for TSV)")
	runCmd.Flags().StringVar(&runEncoding, "encoding", "", "input encoding: utf-8 (default), latin1, windows-1252")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max rows to process (0 = all)")
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "", "output directory (default: alongside the input)")
	runCmd.Flags().StringVar(&runFormat, "format", "geojson", "output format: geojson, shapefile, or both")
	runCmd.Flags().StringVar(&runCache, "cache", "", "path to a SQLite geocode cache (default from config; empty = no cache)")
	runCmd.Flags().StringVar(&runLanguage, "language", "", "accept-language hint for results (default from config)")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(runCmd)
}

// readInput parses the file by extension: .xlsx via the XLSX reader,
// everything else as CSV.
func readInput(path, delimiter, encoding string) (*table.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return table.ReadXLSX(path, table.XLSXOptions{})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open input %s", path)
	}
	defer f.Close() //nolint:errcheck

	var comma rune
	if delimiter == "tab" || delimiter == "\\t" {
		comma = '\t'
	} else if delimiter != "" {
		comma = []rune(delimiter)[0]
	}

	return table.ReadCSV(f, table.CSVOptions{Delimiter: comma, Encoding: encoding})
}

// buildGeocoder constructs the Nominatim client, wrapped with the SQLite
// cache when one is configured.
func buildGeocoder(cachePath, language string) (pipeline.Geocoder, func(), error) {
	if language == "" {
		language = cfg.Nominatim.Language
	}

	client := nominatim.NewClient(nominatim.Config{
		BaseURL:   cfg.Nominatim.BaseURL,
		UserAgent: cfg.Nominatim.UserAgent,
		Language:  language,
		Interval:  cfg.Nominatim.Interval(),
		Timeout:   cfg.Nominatim.Timeout(),
	})

	if cachePath == "" {
		cachePath = cfg.Cache.Path
	}
	if cachePath == "" {
		return client, func() {}, nil
	}

	store, err := cache.Open(cachePath)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open geocode cache")
	}
	zap.L().Info("geocode cache enabled", zap.String("path", cachePath))

	return cache.NewGeocoder(client, store), func() { _ = store.Close() }, nil
}

// writeOutputs writes the requested export artifacts plus the failure CSV.
func writeOutputs(results []pipeline.ProcessedRow, cm mapping.ColumnMapping, inputPath string) error {
	dir := runOutDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	now := time.Now()

	wantGeoJSON := runFormat == "geojson" || runFormat == "both"
	wantShapefile := runFormat == "shapefile" || runFormat == "both"

	if wantGeoJSON {
		fc := feature.Assemble(results, cm.Metadata)
		path := filepath.Join(dir, export.GeoJSONName(inputPath, now))
		if err := export.WriteGeoJSON(path, fc); err != nil {
			return err
		}
	}

	if wantShapefile {
		path := filepath.Join(dir, export.ShapefileName(inputPath, now))
		if _, err := export.WriteShapefile(path, results, cm.Metadata); err != nil {
			return err
		}
	}

	_, err := export.WriteFailures(results, inputPath, dir, now)
	return err
}
