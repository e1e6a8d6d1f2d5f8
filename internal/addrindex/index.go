package addrindex

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/pagedfile"
)

// Index is a read view over an address-map file. It is not safe for
// concurrent use.
type Index struct {
	f      *pagedfile.File
	header Header
	size   int64
}

// Open opens and validates the address map at path.
func Open(path string) (*Index, error) {
	f, err := pagedfile.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "addrindex: open")
	}
	ix, err := OpenFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	zap.L().Debug("addrindex: opened",
		zap.String("path", path),
		zap.Int64("size", ix.size),
		zap.Int("names", ix.NameCount()),
	)
	return ix, nil
}

// OpenFile wraps an already open paged file. The Index takes ownership of f.
func OpenFile(f *pagedfile.File) (*Index, error) {
	ix := &Index{f: f, size: f.Size()}
	if ix.size < HeaderSize {
		return nil, corrupt("file shorter than header", 0, ix.size)
	}
	var buf [HeaderSize]byte
	if _, err := f.Read(0, buf[:]); err != nil {
		return nil, eris.Wrap(err, "addrindex: read header")
	}
	ix.header.Unmarshal(buf[:])

	h := ix.header
	switch {
	case int64(h.NamesBegin) < HeaderSize:
		return nil, corrupt("name table overlaps header", int64(h.NamesBegin), ix.size)
	case h.NamesEnd < h.NamesBegin, int64(h.NamesEnd) > ix.size:
		return nil, corrupt("name table out of range", int64(h.NamesEnd), ix.size)
	case (h.NamesEnd-h.NamesBegin)%NameRecordSize != 0:
		return nil, corrupt("name table not a whole number of records", int64(h.NamesBegin), ix.size)
	case int64(h.ZipOffset) < HeaderSize, int64(h.ZipOffset) >= ix.size:
		return nil, corrupt("zip table out of range", int64(h.ZipOffset), ix.size)
	}
	return ix, nil
}

// Close releases the underlying file.
func (ix *Index) Close() error {
	return ix.f.Close()
}

// Path returns the file path of the index.
func (ix *Index) Path() string { return ix.f.Path() }

// Header returns the decoded file header.
func (ix *Index) Header() Header { return ix.header }

// Size returns the file size in bytes.
func (ix *Index) Size() int64 { return ix.size }

// NameCount returns the number of name records, excluding the sentinel.
func (ix *Index) NameCount() int {
	n := int((ix.header.NamesEnd - ix.header.NamesBegin) / NameRecordSize)
	if n > 0 {
		n--
	}
	return n
}

// NameAt returns the i-th name record.
func (ix *Index) NameAt(i int) (NameRecord, error) {
	if i < 0 || i >= ix.NameCount() {
		return NameRecord{}, eris.Errorf("addrindex: name %d out of range [0,%d)", i, ix.NameCount())
	}
	return ix.ReadNameRecord(int64(ix.header.NamesBegin) + int64(i)*NameRecordSize)
}

// ReadNameRecord decodes the name record at pos.
func (ix *Index) ReadNameRecord(pos int64) (NameRecord, error) {
	var (
		r   NameRecord
		buf [NameRecordSize]byte
	)
	if err := ix.read(pos, buf[:], "name record"); err != nil {
		return r, err
	}
	r.Unmarshal(buf[:])
	return r, nil
}

// ReadRangeEntry decodes the metarange at pos.
func (ix *Index) ReadRangeEntry(pos int64) (RangeEntry, error) {
	var (
		e   RangeEntry
		buf [RangeEntrySize]byte
	)
	if err := ix.read(pos, buf[:], "range entry"); err != nil {
		return e, err
	}
	e.Unmarshal(buf[:])
	return e, nil
}

// ReadSegmentHeader decodes the segment header at pos.
func (ix *Index) ReadSegmentHeader(pos int64) (SegmentHeader, error) {
	var (
		h   SegmentHeader
		buf [SegmentHeaderSize]byte
	)
	if err := ix.read(pos, buf[:], "segment header"); err != nil {
		return h, err
	}
	h.Unmarshal(buf[:])
	return h, nil
}

// ReadControlPoint decodes the control point at pos.
func (ix *Index) ReadControlPoint(pos int64) (ControlPoint, error) {
	var (
		p   ControlPoint
		buf [ControlPointSize]byte
	)
	if err := ix.read(pos, buf[:], "control point"); err != nil {
		return p, err
	}
	p.Unmarshal(buf[:])
	return p, nil
}

// ZipRange returns the one-entry range list of the zip table slot for zip.
// The slot and its successor form the metarange of segments in that zip.
func (ix *Index) ZipRange(zip int) RangeList {
	begin := int64(ix.header.ZipOffset) + int64(ZipEntrySize)*int64(zip)
	return RangeList{Begin: begin, End: begin + RangeEntrySize}
}

func (ix *Index) read(pos int64, dst []byte, what string) error {
	if pos < 0 || pos+int64(len(dst)) > ix.size {
		return corrupt(what, pos, ix.size)
	}
	if _, err := ix.f.Read(pos, dst); err != nil {
		return eris.Wrapf(err, "addrindex: read %s at %d", what, pos)
	}
	return nil
}
