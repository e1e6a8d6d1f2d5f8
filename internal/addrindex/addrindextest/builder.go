// Package addrindextest builds small address-map files for tests.
package addrindextest

import (
	"math"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrmap/internal/addrindex"
	"github.com/sells-group/addrmap/internal/pagedfile"
)

// Point is a control point along a segment. Address is the full house
// number; the file stores it halved.
type Point struct {
	Address int
	Lat     float64
	Lon     float64
	Side    byte
}

// Segment is one street segment and the names that index it.
type Segment struct {
	Street string
	City   string
	State  string
	Zip    int
	// Parity selects the street tag, addrindex.TagEven or TagOdd. Zero
	// derives it from the first point's address.
	Parity byte
	Points []Point
}

// Layout reports where the builder placed things.
type Layout struct {
	Header addrindex.Header
	// Segments holds the file offset of each segment, in the order the
	// segments were added.
	Segments []int64
	// SegmentsEnd is the offset just past the last segment.
	SegmentsEnd int64
}

type alias struct {
	from, to string
}

// Builder collects segments and aliases and lays them out as an address
// map.
type Builder struct {
	segments []Segment
	aliases  []alias
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// AddSegment adds a street segment.
func (b *Builder) AddSegment(s Segment) *Builder {
	b.segments = append(b.segments, s)
	return b
}

// AddAlias adds an alias record rewriting the word(s) from into to.
func (b *Builder) AddAlias(from, to string) *Builder {
	b.aliases = append(b.aliases, alias{from: from, to: to})
	return b
}

// WriteTemp writes the map into a test temp dir and returns its path.
func (b *Builder) WriteTemp(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addrmap.idx")
	_, err := b.Write(path)
	require.NoError(t, err)
	return path
}

type nameKey struct {
	tag  byte
	text string
}

// Write lays the map out at path, replacing any existing file.
func (b *Builder) Write(path string) (*Layout, error) {
	f, err := pagedfile.OpenWritable(path)
	if err != nil {
		return nil, err
	}
	layout, werr := b.write(f)
	if cerr := f.Close(); cerr != nil && werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, eris.Wrapf(werr, "addrindextest: write %s", path)
	}
	return layout, nil
}

func (b *Builder) write(f *pagedfile.File) (*Layout, error) {
	order := make([]int, len(b.segments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return b.segments[order[i]].Zip < b.segments[order[j]].Zip
	})

	layout := &Layout{Segments: make([]int64, len(b.segments))}

	// Header placeholder; rewritten in place once offsets are known.
	pos, err := f.Write(0, make([]byte, addrindex.HeaderSize))
	if err != nil {
		return nil, err
	}

	zipOffset := pos
	segBegin := zipOffset + int64(addrindex.MaxZip+2)*addrindex.ZipEntrySize

	// Segments, sorted by zip, with their offsets by sorted position.
	starts := make([]int64, len(order)+1)
	cur := segBegin
	for k, idx := range order {
		starts[k] = cur
		layout.Segments[idx] = cur
		cur, err = writeSegment(f, cur, b.segments[idx])
		if err != nil {
			return nil, err
		}
	}
	starts[len(order)] = cur
	layout.SegmentsEnd = cur

	// Zip table: slot z holds the start of the first segment with zip >= z.
	c := f.At(zipOffset)
	k := 0
	for z := 0; z <= addrindex.MaxZip+1; z++ {
		for k < len(order) && b.segments[order[k]].Zip < z {
			k++
		}
		c.PutInt32(int32(starts[k]))
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	// Names and the sorted positions of the segments they cover.
	covered := map[nameKey][]int{}
	for k, idx := range order {
		s := b.segments[idx]
		parity := s.Parity
		if parity == 0 {
			parity = addrindex.TagEven
			if len(s.Points) > 0 && s.Points[0].Address%2 != 0 {
				parity = addrindex.TagOdd
			}
		}
		for _, n := range []nameKey{
			{parity, s.Street},
			{addrindex.TagCity, s.City},
			{addrindex.TagState, s.State},
		} {
			if n.text == "" {
				continue
			}
			covered[n] = append(covered[n], k)
		}
	}
	for _, a := range b.aliases {
		covered[nameKey{addrindex.TagAlias, a.from + " " + string(addrindex.AliasMark) + a.to}] = nil
	}

	keys := make([]nameKey, 0, len(covered))
	for n := range covered {
		if len(n.text) > addrindex.NameTextSize {
			return nil, eris.Errorf("addrindextest: name %q longer than %d bytes", n.text, addrindex.NameTextSize)
		}
		keys = append(keys, n)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].tag != keys[j].tag {
			return keys[i].tag < keys[j].tag
		}
		return sortText(keys[i].text) < sortText(keys[j].text)
	})

	// Range lists: maximal runs of consecutive segments, in name order.
	c = f.At(cur)
	offsets := make([]uint32, len(keys))
	for i, n := range keys {
		offsets[i] = uint32(c.Pos())
		for _, run := range runs(covered[n]) {
			c.PutInt32(int32(starts[run[0]])).PutInt32(int32(starts[run[1]+1]))
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	listsEnd := uint32(c.Pos())

	namesBegin := c.Pos()
	var rec [addrindex.NameRecordSize]byte
	for i, n := range keys {
		addrindex.NewNameRecord(n.tag, n.text, offsets[i]).Marshal(rec[:])
		c.PutBytes(rec[:])
	}
	addrindex.NewNameRecord(addrindex.TagSentry, "", listsEnd).Marshal(rec[:])
	c.PutBytes(rec[:])
	if err := c.Err(); err != nil {
		return nil, err
	}

	layout.Header = addrindex.Header{
		ZipOffset:  uint32(zipOffset),
		NamesBegin: uint32(namesBegin),
		NamesEnd:   uint32(c.Pos()),
	}
	var hdr [addrindex.HeaderSize]byte
	layout.Header.Marshal(hdr[:])
	if _, err := f.Write(0, hdr[:]); err != nil {
		return nil, err
	}
	return layout, nil
}

func writeSegment(f *pagedfile.File, pos int64, s Segment) (int64, error) {
	if len(s.Points) == 0 {
		return pos, eris.Errorf("addrindextest: segment %q has no points", s.Street)
	}
	base := s.Points[0]
	h := addrindex.SegmentHeader{
		Next: uint32(pos + addrindex.SegmentHeaderSize + int64(len(s.Points))*addrindex.ControlPointSize),
		Lon:  fixed(base.Lon),
		Lat:  fixed(base.Lat),
		Addr: int32(base.Address / 2),
	}
	var buf [addrindex.SegmentHeaderSize]byte
	h.Marshal(buf[:])
	c := f.At(pos).PutBytes(buf[:])

	var pb [addrindex.ControlPointSize]byte
	for _, p := range s.Points {
		da := int64(p.Address/2) - int64(h.Addr)
		dln := int64(fixed(p.Lon)) - int64(h.Lon)
		dlt := int64(fixed(p.Lat)) - int64(h.Lat)
		if da < math.MinInt16 || da > math.MaxInt16 || dln < math.MinInt8 || dln > math.MaxInt8 || dlt < math.MinInt8 || dlt > math.MaxInt8 {
			return pos, eris.Errorf("addrindextest: point %d of %q too far from segment start", p.Address, s.Street)
		}
		addrindex.ControlPoint{
			AddrDelta: int16(da),
			LonDelta:  int8(dln),
			LatDelta:  int8(dlt),
			Side:      p.Side,
		}.Marshal(pb[:])
		c.PutBytes(pb[:])
	}
	return c.Pos(), c.Err()
}

func fixed(deg float64) int32 {
	return int32(math.Round(deg * 1e5))
}

func sortText(s string) string {
	return strings.ToLower(s + strings.Repeat(" ", addrindex.NameTextSize-len(s)))
}

// runs groups sorted segment positions into inclusive [first, last] runs.
func runs(ks []int) [][2]int {
	var out [][2]int
	for _, k := range ks {
		if n := len(out); n > 0 && out[n-1][1]+1 == k {
			out[n-1][1] = k
			continue
		}
		out = append(out, [2]int{k, k})
	}
	return out
}
