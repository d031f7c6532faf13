// Package pipeline turns raw tabular rows into geocoded outcome records: it
// builds the query string for a row, resolves it through a rate-limited
// geocoder, and drives whole batches strictly sequentially.
package pipeline

import "strings"

// BuildAddress joins the address components into a single free-text query.
// Components are taken in fixed order (street, postal code, city, country),
// trimmed, and empty ones dropped. An empty return value means "nothing to
// geocode" and is a valid output, not an error.
func BuildAddress(street, postalCode, city, country string) string {
	parts := []string{street, postalCode, city, country}
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
