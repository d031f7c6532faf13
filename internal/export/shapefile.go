package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mappoint/geocsv/internal/feature"
	"github.com/mappoint/geocsv/internal/pipeline"
)

// dbfNameLen is the DBF attribute name limit.
const dbfNameLen = 10

// dbfValueLen caps attribute values; DBF character fields are fixed-width.
const dbfValueLen = 254

// ShapefileName derives the shapefile filename from the original upload.
func ShapefileName(original string, now time.Time) string {
	return OutputName(original, GeocodedSuffix, ".shp", now)
}

// WriteShapefile writes the successfully geocoded rows as an ESRI point
// shapefile. Attributes are the feature title plus the selected metadata
// columns, with names truncated and deduplicated to fit the DBF limit.
// Returns the number of points written.
func WriteShapefile(path string, results []pipeline.ProcessedRow, metadataColumns []string) (int, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	fields := []shp.Field{shp.StringField("TITLE", dbfValueLen)}
	for _, name := range dbfFieldNames(metadataColumns) {
		fields = append(fields, shp.StringField(name, dbfValueLen))
	}
	if err := w.SetFields(fields); err != nil {
		return 0, eris.Wrap(err, "export: set shapefile fields")
	}

	var written int
	for _, pr := range results {
		if !pr.Successful() {
			continue
		}

		w.Write(&shp.Point{X: pr.Result.Longitude, Y: pr.Result.Latitude})
		if err := w.WriteAttribute(written, 0, clampDBF(feature.Title(pr, metadataColumns))); err != nil {
			return written, eris.Wrap(err, "export: write title attribute")
		}
		for i, col := range metadataColumns {
			v, _ := pr.Row.Get(col)
			if err := w.WriteAttribute(written, i+1, clampDBF(v)); err != nil {
				return written, eris.Wrapf(err, "export: write attribute %s", col)
			}
		}
		written++
	}

	zap.L().Info("shapefile written", zap.String("path", path), zap.Int("points", written))
	return written, nil
}

// dbfFieldNames maps column names to unique upper-case DBF attribute names.
func dbfFieldNames(columns []string) []string {
	names := make([]string, 0, len(columns))
	used := map[string]struct{}{"TITLE": {}}

	for _, col := range columns {
		name := strings.ToUpper(strings.TrimSpace(col))
		name = strings.Map(func(r rune) rune {
			if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
				return r
			}
			return '_'
		}, name)
		if len(name) > dbfNameLen {
			name = name[:dbfNameLen]
		}
		if name == "" {
			name = "COL"
		}

		candidate := name
		for n := 2; ; n++ {
			if _, ok := used[candidate]; !ok {
				break
			}
			suffix := fmt.Sprintf("_%d", n)
			trim := dbfNameLen - len(suffix)
			if trim > len(name) {
				trim = len(name)
			}
			candidate = name[:trim] + suffix
		}
		used[candidate] = struct{}{}
		names = append(names, candidate)
	}

	return names
}

func clampDBF(v string) string {
	if len(v) > dbfValueLen {
		return v[:dbfValueLen]
	}
	return v
}
