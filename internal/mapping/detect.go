package mapping

import "strings"

// patternSet holds the known header names for one address role. Exact names
// win over substring containment; within each tier the pattern list is
// ordered by priority.
type patternSet struct {
	exact      []string
	substrings []string
}

// Pattern tables cover English and German headers, the locales the tool is
// deployed for.
var (
	postalPatterns = patternSet{
		exact:      []string{"zip", "zip code", "zipcode", "postal code", "postalcode", "postcode", "plz", "postleitzahl"},
		substrings: []string{"plz", "postleitzahl", "postal", "postcode", "zip"},
	}
	streetPatterns = patternSet{
		exact:      []string{"street", "straße", "strasse", "str", "address", "adresse", "anschrift"},
		substrings: []string{"straße", "strasse", "street", "adresse", "address", "anschrift", "addr"},
	}
	cityPatterns = patternSet{
		exact:      []string{"city", "town", "ort", "stadt", "gemeinde", "wohnort"},
		substrings: []string{"city", "town", "stadt", "ort", "gemeinde"},
	}
	countryPatterns = patternSet{
		exact:      []string{"country", "land", "staat"},
		substrings: []string{"country", "land", "nation", "staat"},
	}
)

// Detect guesses which headers carry street, postal code, city, and country.
// It is a pure function of the header list: per role, the first header (in
// header order) that exactly equals a known name wins; failing that, the
// first pattern (in priority order) contained in any header wins, taking the
// first such header in header order. Matching ignores case and surrounding
// whitespace but the returned names are the untouched header strings, so
// downstream row lookups work. Unmatched roles stay empty.
func Detect(headers []string) ColumnMapping {
	return ColumnMapping{
		Street:     matchHeader(headers, streetPatterns),
		PostalCode: matchHeader(headers, postalPatterns),
		City:       matchHeader(headers, cityPatterns),
		Country:    matchHeader(headers, countryPatterns),
	}
}

func matchHeader(headers []string, patterns patternSet) string {
	for _, h := range headers {
		norm := normalizeHeader(h)
		for _, e := range patterns.exact {
			if norm == e {
				return h
			}
		}
	}

	for _, sub := range patterns.substrings {
		for _, h := range headers {
			if strings.Contains(normalizeHeader(h), sub) {
				return h
			}
		}
	}

	return ""
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
