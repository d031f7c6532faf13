package pipeline

import (
	"context"
	"errors"

	"github.com/mappoint/geocsv/internal/mapping"
	"github.com/mappoint/geocsv/internal/table"
	"github.com/mappoint/geocsv/pkg/nominatim"
)

// Row-scoped failure messages. All failures are non-fatal: the batch always
// proceeds to the next row.
const (
	// MsgEmptyAddress marks rows whose mapped columns were all empty after
	// trimming; no network call is made for them.
	MsgEmptyAddress = "Empty address"

	// MsgNotFound marks rows the provider returned no match for. Transport
	// and parse failures collapse into it too.
	MsgNotFound = "Address could not be found"

	// MsgGeocodeFailed is the fallback when a geocoder error carries no
	// message of its own.
	MsgGeocodeFailed = "Geocoding failed"
)

// Geocoder resolves one free-text address. A nil result with nil error means
// "not found". See pkg/nominatim for the production implementation.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*nominatim.Result, error)
}

// ProcessedRow is the outcome record for one row: either a geocode result
// with its [latitude, longitude] pair, or a failure message, never both.
// Records are constructed atomically and immutable afterwards.
type ProcessedRow struct {
	Row    table.Row
	Result *nominatim.Result
	Coords *[2]float64 // latitude, longitude
	Err    string

	// aborted marks a row whose geocode call was cut short by cancellation.
	// It is not an outcome: the runner drops the record instead of counting
	// it as failed.
	aborted bool
}

// Successful reports whether the row geocoded: a result is attached and no
// error is set.
func (p ProcessedRow) Successful() bool {
	return p.Err == "" && p.Result != nil
}

// Processor resolves single rows through a Geocoder.
type Processor struct {
	geocoder Geocoder
}

// NewProcessor creates a Processor backed by the given geocoder.
func NewProcessor(g Geocoder) *Processor {
	return &Processor{geocoder: g}
}

// Process resolves one row to a ProcessedRow. It never fails: every outcome,
// including geocoder errors, is captured in the returned record. Rows whose
// mapped address columns are all empty are marked failed without any network
// call or rate-limit wait.
func (p *Processor) Process(ctx context.Context, row table.Row, m mapping.ColumnMapping) ProcessedRow {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		v, _ := row.Get(column)
		return v
	}

	address := BuildAddress(cell(m.Street), cell(m.PostalCode), cell(m.City), cell(m.Country))
	if address == "" {
		return ProcessedRow{Row: row, Err: MsgEmptyAddress}
	}

	result, err := p.geocoder.Geocode(ctx, address)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ProcessedRow{Row: row, aborted: true}
		}
		msg := err.Error()
		if msg == "" {
			msg = MsgGeocodeFailed
		}
		return ProcessedRow{Row: row, Err: msg}
	}
	if result == nil {
		return ProcessedRow{Row: row, Err: MsgNotFound}
	}

	return ProcessedRow{
		Row:    row,
		Result: result,
		Coords: &[2]float64{result.Latitude, result.Longitude},
	}
}

// Failures returns the rows that did not geocode, in input order.
func Failures(results []ProcessedRow) []ProcessedRow {
	var failed []ProcessedRow
	for _, pr := range results {
		if !pr.Successful() {
			failed = append(failed, pr)
		}
	}
	return failed
}
