// Package feature builds the exportable GeoJSON point FeatureCollection from
// geocoded rows.
package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mappoint/geocsv/internal/pipeline"
)

// TitleFallback is used when no title source at all can be found for a row.
const TitleFallback = "Address"

// descriptionSeparator joins description lines; the output is consumed by map
// popups, which render HTML.
const descriptionSeparator = "<br>"

// titlePatterns are entity-name header fragments, in priority order, English
// and German. The first column whose name contains one of these (and whose
// value is non-empty) supplies the feature title.
var titlePatterns = []string{
	"name", "firma", "company", "organisation", "organization",
	"unternehmen", "titel", "title", "bezeichnung", "label",
}

// Assemble builds a point FeatureCollection from the successfully geocoded
// rows. Geometry coordinates are [longitude, latitude] per RFC 7946, swapped
// from the pipeline's internal [lat, lon] pair. Properties
// carry the selected metadata columns (numeric-looking values coerced), a
// display title, a human-readable description, and the provider's display
// name. Rows without a result are skipped.
func Assemble(results []pipeline.ProcessedRow, metadataColumns []string) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	for _, pr := range results {
		if !pr.Successful() {
			continue
		}

		props := make(map[string]interface{})
		for _, col := range metadataColumns {
			v, ok := pr.Row.Get(col)
			if !ok {
				continue
			}
			props[col] = coerceValue(v)
		}

		title := Title(pr, metadataColumns)
		props["title"] = title
		props["description"] = Description(pr, metadataColumns, title)
		if pr.Result.DisplayName != "" {
			props["display_name"] = pr.Result.DisplayName
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{pr.Result.Longitude, pr.Result.Latitude}),
			Properties: props,
		})
	}

	return fc
}

// Title picks the display title for a geocoded row: the first entity-name
// column with a non-empty value, then the provider's display name, then the
// first non-empty metadata value, then a literal placeholder.
func Title(pr pipeline.ProcessedRow, metadataColumns []string) string {
	for _, pattern := range titlePatterns {
		for _, col := range pr.Row.Columns() {
			if !strings.Contains(strings.ToLower(col), pattern) {
				continue
			}
			if v, _ := pr.Row.Get(col); strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}

	if pr.Result != nil && pr.Result.DisplayName != "" {
		return pr.Result.DisplayName
	}

	for _, col := range metadataColumns {
		if v, _ := pr.Row.Get(col); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	return TitleFallback
}

// Description renders "<label>: <value>" lines for every metadata column with
// a non-empty value. When the provider's display name differs from the title
// it is appended as a final labeled line. An empty description falls back to
// the title.
func Description(pr pipeline.ProcessedRow, metadataColumns []string, title string) string {
	var parts []string
	for _, col := range metadataColumns {
		v, _ := pr.Row.Get(col)
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", col, v))
	}

	if pr.Result != nil && pr.Result.DisplayName != "" && pr.Result.DisplayName != title {
		parts = append(parts, fmt.Sprintf("%s: %s", TitleFallback, pr.Result.DisplayName))
	}

	if len(parts) == 0 {
		return title
	}
	return strings.Join(parts, descriptionSeparator)
}

// coerceValue converts a cell to a number when the entire trimmed value
// parses as one; anything else, including the empty string, stays a string.
// Non-finite parses ("Inf", "NaN") stay strings too: JSON cannot encode them.
func coerceValue(v string) interface{} {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return v
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return v
}
