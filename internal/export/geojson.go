package export

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// GeoJSONName derives the GeoJSON filename from the original upload.
func GeoJSONName(original string, now time.Time) string {
	return OutputName(original, GeocodedSuffix, ".geojson", now)
}

// MarshalGeoJSON serializes a FeatureCollection to bytes.
func MarshalGeoJSON(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal feature collection")
	}
	return data, nil
}

// WriteGeoJSON writes a FeatureCollection to path.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := MarshalGeoJSON(fc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}

	zap.L().Info("geojson written", zap.String("path", path), zap.Int("features", len(fc.Features)))
	return nil
}
