// Package addrindex reads address-map files: the binary index that maps
// street, city, state and zip names to ranges of street-segment records.
//
// Layout (all integers big-endian):
//
//	header      {zip_offset, names_begin, names_end}            12 bytes
//	zip table   int32 per zip code at zip_offset                 4 bytes each
//	segments    header {next, lon, lat, addr} + control points  16 + 5n bytes
//	range lists {begin, end} metaranges into the segment area    8 bytes each
//	name table  {tag, text[40], range list offset}               45 bytes each
//
// The name table is sorted by (tag, case-insensitive text) and ends with a
// sentinel slot that only supplies the end offset of the last real slot.
package addrindex

import (
	"bytes"
	"encoding/binary"
)

// Record sizes in bytes.
const (
	HeaderSize        = 12
	NameRecordSize    = 45
	NameTextSize      = 40
	RangeEntrySize    = 8
	SegmentHeaderSize = 16
	ControlPointSize  = 5
	ZipEntrySize      = 4
)

// MaxZip is the largest valid zip code.
const MaxZip = 99999

// Name record tags.
const (
	TagEven   byte = 'E'
	TagOdd    byte = 'O'
	TagCity   byte = 'C'
	TagState  byte = 'S'
	TagAlias  byte = 'A'
	TagSentry byte = 0x7f
)

// Control point sides. SideEnd marks the terminal point of a segment.
const (
	SideLeft  byte = 'L'
	SideRight byte = 'R'
	SideEnd   byte = 'X'
)

// AliasMark separates an alias key from its replacement in a name record.
const AliasMark = '='

var encoding = binary.BigEndian

// Header is the fixed file header.
type Header struct {
	ZipOffset  uint32 `json:"zip_offset" yaml:"zip_offset"`
	NamesBegin uint32 `json:"names_begin" yaml:"names_begin"`
	NamesEnd   uint32 `json:"names_end" yaml:"names_end"`
}

// Marshal encodes h into dst, which must hold HeaderSize bytes.
func (h Header) Marshal(dst []byte) {
	encoding.PutUint32(dst[0:], h.ZipOffset)
	encoding.PutUint32(dst[4:], h.NamesBegin)
	encoding.PutUint32(dst[8:], h.NamesEnd)
}

// Unmarshal decodes src into h.
func (h *Header) Unmarshal(src []byte) {
	h.ZipOffset = encoding.Uint32(src[0:])
	h.NamesBegin = encoding.Uint32(src[4:])
	h.NamesEnd = encoding.Uint32(src[8:])
}

// NameRecord is one slot of the name table.
type NameRecord struct {
	Tag    byte
	Text   [NameTextSize]byte
	Offset uint32
}

// NewNameRecord builds a record with text padded by spaces. Text longer
// than NameTextSize is truncated.
func NewNameRecord(tag byte, text string, offset uint32) NameRecord {
	r := NameRecord{Tag: tag, Offset: offset}
	n := copy(r.Text[:], text)
	for i := n; i < NameTextSize; i++ {
		r.Text[i] = ' '
	}
	return r
}

// TrimmedText returns the record text without trailing padding.
func (r NameRecord) TrimmedText() string {
	return string(bytes.TrimRight(r.Text[:], " "))
}

// Marshal encodes r into dst, which must hold NameRecordSize bytes.
func (r NameRecord) Marshal(dst []byte) {
	dst[0] = r.Tag
	copy(dst[1:1+NameTextSize], r.Text[:])
	encoding.PutUint32(dst[1+NameTextSize:], r.Offset)
}

// Unmarshal decodes src into r.
func (r *NameRecord) Unmarshal(src []byte) {
	r.Tag = src[0]
	copy(r.Text[:], src[1:1+NameTextSize])
	r.Offset = encoding.Uint32(src[1+NameTextSize:])
}

// RangeEntry is a metarange [Begin, End) into the segment area.
type RangeEntry struct {
	Begin uint32
	End   uint32
}

// Marshal encodes e into dst, which must hold RangeEntrySize bytes.
func (e RangeEntry) Marshal(dst []byte) {
	encoding.PutUint32(dst[0:], e.Begin)
	encoding.PutUint32(dst[4:], e.End)
}

// Unmarshal decodes src into e.
func (e *RangeEntry) Unmarshal(src []byte) {
	e.Begin = encoding.Uint32(src[0:])
	e.End = encoding.Uint32(src[4:])
}

// Empty reports whether the metarange covers nothing.
func (e RangeEntry) Empty() bool { return e.Begin >= e.End }

// SegmentHeader starts a street segment. Lon and Lat are in 1e-5 degrees;
// Addr is the halved house number of the first control point base.
type SegmentHeader struct {
	Next uint32
	Lon  int32
	Lat  int32
	Addr int32
}

// Marshal encodes h into dst, which must hold SegmentHeaderSize bytes.
func (h SegmentHeader) Marshal(dst []byte) {
	encoding.PutUint32(dst[0:], h.Next)
	encoding.PutUint32(dst[4:], uint32(h.Lon))
	encoding.PutUint32(dst[8:], uint32(h.Lat))
	encoding.PutUint32(dst[12:], uint32(h.Addr))
}

// Unmarshal decodes src into h.
func (h *SegmentHeader) Unmarshal(src []byte) {
	h.Next = encoding.Uint32(src[0:])
	h.Lon = int32(encoding.Uint32(src[4:]))
	h.Lat = int32(encoding.Uint32(src[8:]))
	h.Addr = int32(encoding.Uint32(src[12:]))
}

// ControlPoint is a point along a segment, stored as deltas from the
// segment header.
type ControlPoint struct {
	AddrDelta int16
	LonDelta  int8
	LatDelta  int8
	Side      byte
}

// Marshal encodes p into dst, which must hold ControlPointSize bytes.
func (p ControlPoint) Marshal(dst []byte) {
	encoding.PutUint16(dst[0:], uint16(p.AddrDelta))
	dst[2] = byte(p.LonDelta)
	dst[3] = byte(p.LatDelta)
	dst[4] = p.Side
}

// Unmarshal decodes src into p.
func (p *ControlPoint) Unmarshal(src []byte) {
	p.AddrDelta = int16(encoding.Uint16(src[0:]))
	p.LonDelta = int8(src[2])
	p.LatDelta = int8(src[3])
	p.Side = src[4]
}

// RangeList is a run of RangeEntry values in the file, [Begin, End) in bytes.
type RangeList struct {
	Begin int64
	End   int64
}

// Len returns the number of entries in the list.
func (l RangeList) Len() int {
	if l.End <= l.Begin {
		return 0
	}
	return int((l.End - l.Begin) / RangeEntrySize)
}
