// Package geofind resolves free-form street addresses against an address
// map.
//
// An address is read as a house number, up to two ignored words, a street
// name and then, optionally, a city, state and zip code. Each recognised
// name contributes a range list; a parse is accepted only when every active
// range list overlaps on a street segment whose control points bracket the
// house number. The location is then interpolated between those control
// points.
package geofind

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/addrindex"
)

// ErrAliasLoop is returned when alias records keep rewriting the same word.
var ErrAliasLoop = eris.New("geofind: alias expansion does not terminate")

// Corner is a point along a street with its house number.
type Corner struct {
	Address   int     `json:"address" yaml:"address"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Location is a resolved address. Before and After are the control points
// bracketing the house number; At is interpolated between them.
type Location struct {
	Before     Corner `json:"before" yaml:"before"`
	After      Corner `json:"after" yaml:"after"`
	At         Corner `json:"at" yaml:"at"`
	ZipCode    int    `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	Side       byte   `json:"-" yaml:"-"`
	StreetName string `json:"street" yaml:"street"`
	CityName   string `json:"city,omitempty" yaml:"city,omitempty"`
	StateName  string `json:"state,omitempty" yaml:"state,omitempty"`
}

// SideName returns the side of the street as a one-letter string.
func (l Location) SideName() string {
	if l.Side == 0 {
		return ""
	}
	return string(l.Side)
}

// Engine answers address queries against one index. It is not safe for
// concurrent use.
type Engine struct {
	ix *addrindex.Index
}

// New returns an Engine reading ix. The caller keeps ownership of ix.
func New(ix *addrindex.Index) *Engine {
	return &Engine{ix: ix}
}

// Open opens the address map at path and returns an Engine that owns it.
func Open(path string) (*Engine, error) {
	ix, err := addrindex.Open(path)
	if err != nil {
		return nil, err
	}
	return &Engine{ix: ix}, nil
}

// Index returns the underlying index.
func (e *Engine) Index() *addrindex.Index { return e.ix }

// Close closes the underlying index.
func (e *Engine) Close() error {
	return e.ix.Close()
}

// Find resolves address. ok is false with a nil error when the address
// cannot be matched; a non-nil error reports I/O failure, a corrupt index or
// a runaway alias chain.
func (e *Engine) Find(address string) (Location, bool, error) {
	s := newState(e.ix, address)
	ok := s.address()
	if s.err != nil {
		zap.L().Debug("geofind: lookup failed",
			zap.String("address", address),
			zap.Error(s.err),
		)
		return Location{}, false, s.err
	}
	if !ok {
		return Location{}, false, nil
	}
	return s.out, true, nil
}
