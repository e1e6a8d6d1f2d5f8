package geocode

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"

	"github.com/sells-group/addrmap/internal/geofind"
)

// earthRadiusMeters is the mean Earth radius.
const earthRadiusMeters = 6371008.8

// Result quality values.
const (
	QualityControlPoint = "control_point"
	QualityInterpolated = "interpolated"
)

func newResult(source, input string, loc geofind.Location, precision int) *Result {
	r := &Result{
		Input:       input,
		Matched:     true,
		Source:      source,
		Quality:     QualityInterpolated,
		Latitude:    loc.At.Latitude,
		Longitude:   loc.At.Longitude,
		HouseNumber: loc.At.Address,
		Street:      loc.StreetName,
		City:        loc.CityName,
		State:       loc.StateName,
		ZipCode:     loc.ZipCode,
		Side:        loc.SideName(),
		Before:      corner(loc.Before),
		After:       corner(loc.After),
	}
	if loc.At.Latitude == loc.Before.Latitude && loc.At.Longitude == loc.Before.Longitude {
		r.Quality = QualityControlPoint
	}
	if precision > 0 {
		r.Geohash = geohash.EncodeWithPrecision(r.Latitude, r.Longitude, precision)
	}
	r.SegmentMeters = distanceMeters(loc.Before, loc.After)
	return r
}

func corner(c geofind.Corner) *Corner {
	return &Corner{Address: c.Address, Latitude: c.Latitude, Longitude: c.Longitude}
}

// distanceMeters is the great-circle distance between two corners.
func distanceMeters(a, b geofind.Corner) float64 {
	pa := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	pb := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return pa.Distance(pb).Radians() * earthRadiusMeters
}
