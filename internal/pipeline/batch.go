package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/mappoint/geocsv/internal/mapping"
	"github.com/mappoint/geocsv/internal/table"
)

// DefaultProgressEvery is the default snapshot cadence: one progress callback
// per this many rows, plus unconditionally on the final row.
const DefaultProgressEvery = 10

// Progress is a snapshot of a running batch. At completion Processed equals
// the input row count and Successful+Failed equals Processed exactly.
type Progress struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ProgressFunc receives progress snapshots together with the results
// collected so far. The slice is the driver's own accumulator; callers must
// not mutate it.
type ProgressFunc func(Progress, []ProcessedRow)

// Runner drives a batch of rows through a Processor, strictly sequentially.
// Sequential ordering is the sole mechanism protecting the provider's
// per-client rate policy: row i+1's geocode call is never issued before row
// i's has fully completed, including its rate-limit spacing.
type Runner struct {
	processor *Processor
	every     int
}

// NewRunner creates a Runner. progressEvery <= 0 selects the default cadence.
func NewRunner(p *Processor, progressEvery int) *Runner {
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	return &Runner{processor: p, every: progressEvery}
}

// RunAll processes rows in input order and returns the collected outcome
// records. Success and failure counters are maintained incrementally.
// Cancelling ctx stops the batch at the next row boundary; rows already
// collected are retained and returned, and a final snapshot with the exact
// partial counts is emitted. A row whose geocode call was itself cut short
// by the cancellation is dropped, not recorded as failed: it never ran to
// completion, so it has no outcome.
func (r *Runner) RunAll(ctx context.Context, rows []table.Row, m mapping.ColumnMapping, onProgress ProgressFunc) []ProcessedRow {
	results := make([]ProcessedRow, 0, len(rows))
	var successful, failed int

	for i, row := range rows {
		if ctx.Err() != nil {
			zap.L().Info("batch cancelled",
				zap.Int("processed", len(results)),
				zap.Int("total", len(rows)),
			)
			break
		}

		pr := r.processor.Process(ctx, row, m)
		if pr.aborted {
			zap.L().Info("batch cancelled mid-row",
				zap.Int("processed", len(results)),
				zap.Int("total", len(rows)),
			)
			break
		}
		results = append(results, pr)
		if pr.Successful() {
			successful++
		} else {
			failed++
		}

		last := i == len(rows)-1
		if onProgress != nil && (last || (i+1)%r.every == 0) {
			onProgress(Progress{
				Total:      len(rows),
				Processed:  i + 1,
				Successful: successful,
				Failed:     failed,
			}, results)
		}
	}

	// A cancelled batch still reports its exact final state.
	if onProgress != nil && len(results) < len(rows) {
		onProgress(Progress{
			Total:      len(rows),
			Processed:  len(results),
			Successful: successful,
			Failed:     failed,
		}, results)
	}

	return results
}
