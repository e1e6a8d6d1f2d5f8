// Package geocode resolves postal addresses against one or more address-map
// index files and shapes the results for callers.
package geocode

import (
	"context"
	"strings"
)

// Client geocodes addresses.
type Client interface {
	// Geocode geocodes a single address.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)

	// BatchGeocode geocodes multiple addresses.
	BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error)
}

// AddressInput represents an address to geocode. Line holds a free-form
// address; when empty the structured fields are joined instead.
type AddressInput struct {
	ID      string `json:"id,omitempty"`
	Line    string `json:"address,omitempty"`
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// Corner is one end of the interpolation bracket.
type Corner struct {
	Address   int     `json:"address" yaml:"address"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Result holds the geocoding output for an address.
type Result struct {
	ID            string  `json:"id,omitempty" yaml:"id,omitempty"`
	Input         string  `json:"input" yaml:"input"`
	Matched       bool    `json:"matched" yaml:"matched"`
	Source        string  `json:"source,omitempty" yaml:"source,omitempty"`
	Quality       string  `json:"quality,omitempty" yaml:"quality,omitempty"` // "control_point" or "interpolated"
	Latitude      float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	HouseNumber   int     `json:"house_number,omitempty" yaml:"house_number,omitempty"`
	Street        string  `json:"street,omitempty" yaml:"street,omitempty"`
	City          string  `json:"city,omitempty" yaml:"city,omitempty"`
	State         string  `json:"state,omitempty" yaml:"state,omitempty"`
	ZipCode       int     `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	Side          string  `json:"side,omitempty" yaml:"side,omitempty"`
	Geohash       string  `json:"geohash,omitempty" yaml:"geohash,omitempty"`
	SegmentMeters float64 `json:"segment_meters,omitempty" yaml:"segment_meters,omitempty"`
	Before        *Corner `json:"before,omitempty" yaml:"before,omitempty"`
	After         *Corner `json:"after,omitempty" yaml:"after,omitempty"`
	// Error is set by batch geocoding when the lookup failed, such as on a
	// corrupt index. Such results are never Matched.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// formatOneLine renders addr as a single line of text for the parser.
func formatOneLine(addr AddressInput) string {
	if line := strings.TrimSpace(addr.Line); line != "" {
		return line
	}
	var parts []string
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.ZipCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
