package export

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mappoint/geocsv/internal/pipeline"
	"github.com/mappoint/geocsv/internal/table"
)

// Failures serializes the failed rows' original column data back to CSV for
// re-submission. The header is the union of the failed rows' columns in
// first-appearance order; columns a row never had render as empty cells. No
// failed rows means no artifact: the return is nil, nil.
func Failures(results []pipeline.ProcessedRow) ([]byte, error) {
	failed := pipeline.Failures(results)
	if len(failed) == 0 {
		return nil, nil
	}

	rows := make([]table.Row, len(failed))
	for i, pr := range failed {
		rows[i] = pr.Row
	}

	data, err := table.WriteCSV(table.UnionColumns(rows), rows)
	if err != nil {
		return nil, eris.Wrap(err, "export: serialize failures")
	}
	return data, nil
}

// FailureName derives the failure CSV filename from the original upload.
func FailureName(original string, now time.Time) string {
	return OutputName(original, FailedSuffix, ".csv", now)
}

// WriteFailures writes the failure CSV into dir and returns its path, or ""
// when there were no failures to export.
func WriteFailures(results []pipeline.ProcessedRow, originalFilename, dir string, now time.Time) (string, error) {
	data, err := Failures(results)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", nil
	}

	path := filepath.Join(dir, FailureName(originalFilename, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "export: write failure csv")
	}

	zap.L().Info("failure csv written",
		zap.String("path", path),
		zap.Int("rows", len(pipeline.Failures(results))),
	)
	return path, nil
}
