package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestWorkbook(t *testing.T, records [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Adressen")
	require.NoError(t, err)
	for _, record := range records {
		row := sheet.AddRow()
		for _, v := range record {
			row.AddCell().SetString(v)
		}
	}

	path := filepath.Join(t.TempDir(), "addresses.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeTestWorkbook(t, [][]string{
		{"Firma", "Straße", "PLZ", "Ort"},
		{"ACME", "Hauptstraße 5", "10115", "Berlin"},
		{"Globex", "Marktplatz 1"},
	})

	tbl, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Firma", "Straße", "PLZ", "Ort"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)

	v, _ := tbl.Rows[0].Get("PLZ")
	assert.Equal(t, "10115", v)

	_, ok := tbl.Rows[1].Get("PLZ")
	assert.False(t, ok, "short row leaves trailing columns absent")
}

func TestReadXLSXBySheetName(t *testing.T) {
	path := writeTestWorkbook(t, [][]string{{"A"}, {"1"}})

	tbl, err := ReadXLSX(path, XLSXOptions{SheetName: "Adressen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, tbl.Headers)

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
}

func TestReadXLSXSheetIndexOutOfRange(t *testing.T) {
	path := writeTestWorkbook(t, [][]string{{"A"}})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
}

func TestReadXLSXMissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	require.Error(t, err)
}
