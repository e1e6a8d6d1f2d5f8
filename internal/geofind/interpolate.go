package geofind

import (
	"github.com/sells-group/addrmap/internal/addrindex"
)

// fixedScale converts stored 1e-5 degree units to degrees.
const fixedScale = 100000.0

// bracket is the last control point at or below the target address.
type bracket struct {
	side byte
	addr int
	lat  int
	lon  int
}

// interpolate walks the segments in [begin, end) looking for consecutive
// control points that bracket the halved house number. The point below
// carries over from one segment to the next; a segment whose first point is
// already above the target, with nothing below it yet, is skipped.
func (s *state) interpolate(begin, end int64) bool {
	target := s.number / 2
	before := bracket{side: addrindex.SideEnd}

	cur := begin
	for cur < end {
		h, err := s.ix.ReadSegmentHeader(cur)
		if err != nil {
			s.fail(err)
			return false
		}
		cur += addrindex.SegmentHeaderSize
		next := int64(h.Next)

		for cur < next {
			p, err := s.ix.ReadControlPoint(cur)
			if err != nil {
				s.fail(err)
				return false
			}
			cur += addrindex.ControlPointSize

			addr := int(h.Addr) + int(p.AddrDelta)
			if addr <= target {
				before = bracket{
					side: p.Side,
					addr: addr,
					lat:  int(h.Lat) + int(p.LatDelta),
					lon:  int(h.Lon) + int(p.LonDelta),
				}
				continue
			}
			if before.side == addrindex.SideEnd {
				cur = next
				break
			}

			if p.Side == addrindex.SideEnd {
				// The terminal point's address is one past the range.
				addr--
			}
			s.locate(before, addr, int(h.Lat)+int(p.LatDelta), int(h.Lon)+int(p.LonDelta))
			return true
		}
	}
	return false
}

// locate fills the output from the bracketing points.
func (s *state) locate(before bracket, afterAddr, afterLat, afterLon int) {
	parity := s.number % 2
	target := s.number / 2

	s.out.Side = before.side
	s.out.Before = Corner{
		Address:   2*before.addr + parity,
		Latitude:  float64(before.lat) / fixedScale,
		Longitude: float64(before.lon) / fixedScale,
	}
	s.out.After = Corner{
		Address:   2*afterAddr + parity,
		Latitude:  float64(afterLat) / fixedScale,
		Longitude: float64(afterLon) / fixedScale,
	}

	lat, lon := before.lat, before.lon
	if span := afterAddr - before.addr; span != 0 {
		lat += (afterLat - before.lat) * (target - before.addr) / span
		lon += (afterLon - before.lon) * (target - before.addr) / span
	}
	s.out.At = Corner{
		Address:   s.number,
		Latitude:  float64(lat) / fixedScale,
		Longitude: float64(lon) / fixedScale,
	}
}
