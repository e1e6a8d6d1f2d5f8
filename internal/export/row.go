// Package export reads address lists and writes geocode results as CSV,
// GeoJSON, point shapefiles, JSON or YAML.
package export

import (
	"github.com/sells-group/addrmap/pkg/geocode"
)

// Row is the flat, one-line-per-address form of a geocode result.
type Row struct {
	ID            string  `csv:"id" yaml:"id"`
	Input         string  `csv:"input" yaml:"input"`
	Matched       bool    `csv:"matched" yaml:"matched"`
	Quality       string  `csv:"quality,omitempty" yaml:"quality,omitempty"`
	Latitude      float64 `csv:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude     float64 `csv:"longitude,omitempty" yaml:"longitude,omitempty"`
	HouseNumber   int     `csv:"house_number,omitempty" yaml:"house_number,omitempty"`
	Street        string  `csv:"street,omitempty" yaml:"street,omitempty"`
	City          string  `csv:"city,omitempty" yaml:"city,omitempty"`
	State         string  `csv:"state,omitempty" yaml:"state,omitempty"`
	ZipCode       int     `csv:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	Side          string  `csv:"side,omitempty" yaml:"side,omitempty"`
	Geohash       string  `csv:"geohash,omitempty" yaml:"geohash,omitempty"`
	SegmentMeters float64 `csv:"segment_meters,omitempty" yaml:"segment_meters,omitempty"`
	Source        string  `csv:"source,omitempty" yaml:"source,omitempty"`
	Error         string  `csv:"error,omitempty" yaml:"error,omitempty"`
}

// NewRow flattens r.
func NewRow(r geocode.Result) Row {
	return Row{
		ID:            r.ID,
		Input:         r.Input,
		Matched:       r.Matched,
		Quality:       r.Quality,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		HouseNumber:   r.HouseNumber,
		Street:        r.Street,
		City:          r.City,
		State:         r.State,
		ZipCode:       r.ZipCode,
		Side:          r.Side,
		Geohash:       r.Geohash,
		SegmentMeters: r.SegmentMeters,
		Source:        r.Source,
		Error:         r.Error,
	}
}

// NewRows flattens results in order.
func NewRows(results []geocode.Result) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = NewRow(r)
	}
	return rows
}
