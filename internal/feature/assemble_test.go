package feature

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/mappoint/geocsv/internal/pipeline"
	"github.com/mappoint/geocsv/internal/table"
	"github.com/mappoint/geocsv/pkg/nominatim"
)

func geocodedRow(cells [][2]string, result *nominatim.Result) pipeline.ProcessedRow {
	row := table.NewRow()
	for _, c := range cells {
		row.Set(c[0], c[1])
	}
	pr := pipeline.ProcessedRow{Row: row, Result: result}
	if result != nil {
		pr.Coords = &[2]float64{result.Latitude, result.Longitude}
	} else {
		pr.Err = pipeline.MsgNotFound
	}
	return pr
}

func TestAssembleCoordinateOrder(t *testing.T) {
	pr := geocodedRow(nil, &nominatim.Result{Latitude: 40.0, Longitude: -75.0})

	fc := Assemble([]pipeline.ProcessedRow{pr}, nil)
	require.Len(t, fc.Features, 1)

	point, ok := fc.Features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{-75.0, 40.0}, point.FlatCoords(), "GeoJSON is [lon, lat]")
}

func TestAssembleSkipsFailedRows(t *testing.T) {
	ok := geocodedRow(nil, &nominatim.Result{Latitude: 1, Longitude: 2})
	failed := geocodedRow([][2]string{{"Firma", "ACME"}}, nil)

	fc := Assemble([]pipeline.ProcessedRow{failed, ok, failed}, []string{"Firma"})
	assert.Len(t, fc.Features, 1)
}

func TestAssembleProperties(t *testing.T) {
	pr := geocodedRow([][2]string{
		{"Firma", "ACME GmbH"},
		{"Umsatz", " 1250.5 "},
		{"PLZ", "10115"},
		{"Notiz", ""},
	}, &nominatim.Result{Latitude: 52.5, Longitude: 13.4, DisplayName: "Berlin, Deutschland"})

	fc := Assemble([]pipeline.ProcessedRow{pr}, []string{"Firma", "Umsatz", "Notiz"})
	require.Len(t, fc.Features, 1)
	props := fc.Features[0].Properties

	assert.Equal(t, "ACME GmbH", props["Firma"])
	assert.Equal(t, 1250.5, props["Umsatz"], "whole numeric values are coerced")
	assert.Equal(t, "", props["Notiz"], "empty strings stay strings")
	assert.NotContains(t, props, "PLZ", "only selected metadata columns are exported")
	assert.Equal(t, "ACME GmbH", props["title"])
	assert.Equal(t, "Berlin, Deutschland", props["display_name"])
}

func TestTitleFallbackChain(t *testing.T) {
	// 1. entity-name column wins
	pr := geocodedRow([][2]string{{"Company Name", "Globex"}, {"Ort", "Berlin"}},
		&nominatim.Result{Latitude: 1, Longitude: 2, DisplayName: "somewhere"})
	assert.Equal(t, "Globex", Title(pr, []string{"Company Name", "Ort"}))

	// 2. display name when no name-like column has a value
	pr = geocodedRow([][2]string{{"Firma", "  "}, {"Ort", "Berlin"}},
		&nominatim.Result{Latitude: 1, Longitude: 2, DisplayName: "Berlin, Deutschland"})
	assert.Equal(t, "Berlin, Deutschland", Title(pr, []string{"Firma", "Ort"}))

	// 3. first non-empty metadata value when the provider gave no display name
	pr = geocodedRow([][2]string{{"Ort", "Berlin"}},
		&nominatim.Result{Latitude: 1, Longitude: 2})
	assert.Equal(t, "Berlin", Title(pr, []string{"Ort"}))

	// 4. literal placeholder
	pr = geocodedRow(nil, &nominatim.Result{Latitude: 1, Longitude: 2})
	assert.Equal(t, TitleFallback, Title(pr, nil))
}

func TestDescription(t *testing.T) {
	pr := geocodedRow([][2]string{
		{"Firma", "ACME"},
		{"Ort", "Berlin"},
		{"Notiz", ""},
	}, &nominatim.Result{Latitude: 1, Longitude: 2, DisplayName: "Hauptstraße 5, Berlin"})

	desc := Description(pr, []string{"Firma", "Ort", "Notiz"}, "ACME")
	assert.Equal(t, "Firma: ACME<br>Ort: Berlin<br>Address: Hauptstraße 5, Berlin", desc)
}

func TestDescriptionFallsBackToTitle(t *testing.T) {
	pr := geocodedRow(nil, &nominatim.Result{Latitude: 1, Longitude: 2, DisplayName: "X"})

	desc := Description(pr, nil, "X")
	assert.Equal(t, "X", desc, "display name equal to the title is not repeated")
}

func TestAssembleNonFiniteValuesStayStrings(t *testing.T) {
	pr := geocodedRow([][2]string{
		{"A", "Inf"},
		{"B", "-Infinity"},
		{"C", "NaN"},
		{"D", "42"},
	}, &nominatim.Result{Latitude: 52.5, Longitude: 13.4})

	fc := Assemble([]pipeline.ProcessedRow{pr}, []string{"A", "B", "C", "D"})
	require.Len(t, fc.Features, 1)
	props := fc.Features[0].Properties

	assert.Equal(t, "Inf", props["A"])
	assert.Equal(t, "-Infinity", props["B"])
	assert.Equal(t, "NaN", props["C"])
	assert.Equal(t, 42.0, props["D"])

	_, err := json.Marshal(fc)
	require.NoError(t, err, "collection stays JSON-encodable")
}

func TestAssembleEmptyInput(t *testing.T) {
	fc := Assemble(nil, nil)
	require.NotNil(t, fc.Features, "empty collection still marshals with a features array")
	assert.Len(t, fc.Features, 0)
}
