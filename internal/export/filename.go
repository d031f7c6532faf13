// Package export produces the output artifacts: failure CSVs, GeoJSON files,
// shapefiles, and the filenames they ship under.
package export

import (
	"path/filepath"
	"strings"
	"time"
)

// Suffixes for derived output filenames.
const (
	GeocodedSuffix = "_geocoded_"
	FailedSuffix   = "_failed_"
)

// OutputName derives an output filename from the original upload: its base
// with the extension stripped, a descriptive suffix, and a seconds-precision
// UTC timestamp with colons replaced for filesystem safety.
func OutputName(original, suffix, ext string, now time.Time) string {
	base := filepath.Base(original)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	ts := now.UTC().Truncate(time.Second).Format(time.RFC3339)
	ts = strings.ReplaceAll(ts, ":", "-")
	return base + suffix + ts + ext
}
