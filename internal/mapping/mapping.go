// Package mapping assigns address-semantic roles (street, postal code, city,
// country) to spreadsheet columns and validates the assignment against the
// input's header set.
package mapping

import (
	"fmt"
	"strings"
)

// ColumnMapping holds the column name chosen for each address role, plus the
// metadata columns to propagate into output properties. Empty string means
// the role is unmapped.
type ColumnMapping struct {
	Street     string   `json:"street,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	City       string   `json:"city,omitempty"`
	Country    string   `json:"country,omitempty"`
	Metadata   []string `json:"metadata,omitempty"`
}

// HasAddressColumn reports whether at least one address role is mapped.
func (m ColumnMapping) HasAddressColumn() bool {
	return m.Street != "" || m.PostalCode != "" || m.City != "" || m.Country != ""
}

// AddressColumns returns the mapped address column names, unordered.
func (m ColumnMapping) AddressColumns() []string {
	var cols []string
	for _, c := range []string{m.Street, m.PostalCode, m.City, m.Country} {
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// Merge fills unmapped address roles from other, leaving mapped roles and
// metadata untouched.
func (m ColumnMapping) Merge(other ColumnMapping) ColumnMapping {
	if m.Street == "" {
		m.Street = other.Street
	}
	if m.PostalCode == "" {
		m.PostalCode = other.PostalCode
	}
	if m.City == "" {
		m.City = other.City
	}
	if m.Country == "" {
		m.Country = other.Country
	}
	return m
}

// Validate checks the mapping against the header set and returns a list of
// human-readable problems. An empty list means the batch may start. These are
// the only errors surfaced above row scope before processing begins.
func (m ColumnMapping) Validate(headers []string) []string {
	var problems []string

	if len(headers) == 0 {
		problems = append(problems, "input has no columns")
		return problems
	}

	if !m.HasAddressColumn() {
		problems = append(problems, "no address column selected: map at least one of street, postal code, city, or country")
	}

	have := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		have[h] = struct{}{}
	}

	check := func(role, col string) {
		if col == "" {
			return
		}
		if _, ok := have[col]; !ok {
			problems = append(problems, fmt.Sprintf("%s column %q not found in input", role, col))
		}
	}
	check("street", m.Street)
	check("postal code", m.PostalCode)
	check("city", m.City)
	check("country", m.Country)

	for _, col := range m.Metadata {
		if _, ok := have[col]; !ok {
			problems = append(problems, fmt.Sprintf("metadata column %q not found in input", col))
		}
	}

	return problems
}

// DefaultMetadata returns all headers not used as address columns, in header
// order. The serve mode uses this when the caller supplies no mapping.
func (m ColumnMapping) DefaultMetadata(headers []string) []string {
	used := make(map[string]struct{})
	for _, c := range m.AddressColumns() {
		used[c] = struct{}{}
	}
	var meta []string
	for _, h := range headers {
		if _, ok := used[h]; ok {
			continue
		}
		if strings.TrimSpace(h) == "" {
			continue
		}
		meta = append(meta, h)
	}
	return meta
}
