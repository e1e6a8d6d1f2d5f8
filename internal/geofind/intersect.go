package geofind

import (
	"github.com/sells-group/addrmap/internal/addrindex"
)

// valid intersects the active range lists and looks for a segment inside
// the intersection whose control points bracket the house number.
func (s *state) valid() bool {
	if s.err != nil || s.nrange == 0 {
		return false
	}
	x := newIntersection(s.ranges[:s.nrange], s.ix.ReadRangeEntry, s.ix.Size())
	for {
		begin, end, ok, err := x.next()
		if err != nil {
			s.fail(err)
			return false
		}
		if !ok {
			return false
		}
		if s.interpolate(begin, end) {
			return true
		}
		if s.err != nil {
			return false
		}
	}
}

// intersection walks the ranges of the segment area covered by a metarange
// of every list.
//
// Each list holds metaranges ordered by position. One cursor per list is
// moved round-robin past metaranges that end at or before the current best
// begin. A metarange that starts later than the best begin takes over the
// best range; one that ends earlier narrows it. A round ends when the scan
// comes back to the list that set the best begin, at which point every list
// overlaps [bestBegin, bestEnd). The list whose metarange ended first is then
// advanced so the next round looks at the following candidate.
type intersection struct {
	lists []addrindex.RangeList
	pos   [maxFacets]int64
	read  func(pos int64) (addrindex.RangeEntry, error)
	size  int64
}

func newIntersection(lists []addrindex.RangeList, read func(int64) (addrindex.RangeEntry, error), size int64) *intersection {
	x := &intersection{lists: lists, read: read, size: size}
	for i, l := range lists {
		x.pos[i] = l.Begin
	}
	return x
}

// next returns the next common range. ok is false once any list runs out.
func (x *intersection) next() (begin, end int64, ok bool, err error) {
	n := len(x.lists)
	if n == 0 {
		return 0, 0, false, nil
	}

	iBegin, iEnd := 1, 1
	var bestBegin, bestEnd int64 = 1, 1

	for i := 0; i != iBegin; i = (i + 1) % n {
		var r addrindex.RangeEntry
		for {
			if x.pos[i] >= x.lists[i].End {
				return 0, 0, false, nil
			}
			e, err := x.read(x.pos[i])
			if err != nil {
				return 0, 0, false, err
			}
			if int64(e.End) > bestBegin && !e.Empty() {
				r = e
				break
			}
			x.pos[i] += addrindex.RangeEntrySize
		}

		if r.Begin < addrindex.HeaderSize {
			// Segments never start inside the header.
			return 0, 0, false, corruptRange(x.pos[i], x.size)
		}

		switch {
		case int64(r.Begin) > bestBegin:
			bestBegin, bestEnd = int64(r.Begin), int64(r.End)
			iBegin, iEnd = i, i
		case int64(r.End) < bestEnd:
			bestEnd = int64(r.End)
			iEnd = i
		}
	}

	x.pos[iEnd] += addrindex.RangeEntrySize
	return bestBegin, bestEnd, true, nil
}

func corruptRange(offset, size int64) error {
	return &addrindex.CorruptError{What: "metarange starts inside header", Offset: offset, Size: size}
}
