package table

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter rune   // default ','
	Encoding  string // "utf-8" (default), "latin1"/"iso-8859-1", "windows-1252"
	TrimSpace bool
}

// ReadCSV parses a CSV stream into a Table. The first record is the header
// row; data rows may have fewer or more cells than the header: extra cells
// are dropped, missing cells are left absent from the Row.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	decoded, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoded)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields

	headers, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	if opts.TrimSpace {
		for i, h := range headers {
			headers[i] = strings.TrimSpace(h)
		}
	}

	tbl := &Table{Headers: headers}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		row := NewRow()
		for i, h := range headers {
			if i >= len(record) {
				break
			}
			v := record[i]
			if opts.TrimSpace {
				v = strings.TrimSpace(v)
			}
			row.Set(h, v)
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	return tbl, nil
}

// WriteCSV serializes rows under the given header. Columns absent from a row
// render as empty cells.
func WriteCSV(headers []string, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, eris.Wrap(err, "csv: write header")
	}

	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			v, _ := row.Get(h)
			record[i] = v
		}
		if err := w.Write(record); err != nil {
			return nil, eris.Wrap(err, "csv: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "csv: flush")
	}
	return buf.Bytes(), nil
}

// UnionColumns returns the union of all column names across rows, in
// first-appearance order.
func UnionColumns(rows []Row) []string {
	var union []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, c := range row.Columns() {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			union = append(union, c)
		}
	}
	return union
}

// decodeReader wraps r with a charset decoder when the input is not UTF-8.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, eris.Errorf("csv: unsupported encoding %q", encoding)
	}
}
