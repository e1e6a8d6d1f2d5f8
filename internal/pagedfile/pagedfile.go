// Package pagedfile provides random access to a file through a sliding
// memory-mapped window and a small append buffer.
//
// Integers are stored big-endian. A File is not safe for concurrent use;
// callers that need parallelism open one handle per goroutine.
package pagedfile

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// BufferSize is the capacity of the append buffer used for writes at or
// past the end of the file.
const BufferSize = 4096

var (
	// ErrPastEOF is returned when a read extends past the end of the file.
	ErrPastEOF = eris.New("pagedfile: read past end of file")
	// ErrClosed is returned by operations on a closed File.
	ErrClosed = eris.New("pagedfile: file closed")
	// ErrBadPosition is returned for negative positions.
	ErrBadPosition = eris.New("pagedfile: negative position")
	// ErrReadOnly is returned by writes to a File opened with Open.
	ErrReadOnly = eris.New("pagedfile: file opened read-only")
)

var order = binary.BigEndian

// File is a paged view of an on-disk file.
type File struct {
	f        *os.File
	path     string
	writable bool
	pageSize int64

	// size is the on-disk size, excluding unflushed buffer bytes.
	size int64

	window    mmap.MMap
	mapOffset int64

	buf       []byte
	bufOffset int64

	closed bool
}

// Open opens path read-only.
func Open(path string) (*File, error) {
	return open(path, os.O_RDONLY, false)
}

// OpenWritable opens path for reading and writing, creating it if missing.
func OpenWritable(path string) (*File, error) {
	return open(path, os.O_RDWR|os.O_CREATE, true)
}

func open(path string, flag int, writable bool) (*File, error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "pagedfile: open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, eris.Wrapf(err, "pagedfile: stat %s", path)
	}
	return &File{
		f:        f,
		path:     path,
		writable: writable,
		pageSize: int64(unix.Getpagesize()),
		size:     st.Size(),
		buf:      make([]byte, 0, BufferSize),
	}, nil
}

// Path returns the path the file was opened with.
func (p *File) Path() string { return p.path }

// Size returns the logical size of the file, including buffered writes.
func (p *File) Size() int64 {
	if end := p.bufOffset + int64(len(p.buf)); len(p.buf) > 0 && end > p.size {
		return end
	}
	return p.size
}

// Close flushes pending writes, releases the mapped window and closes the
// underlying file. Close is idempotent.
func (p *File) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var first error
	if err := p.flush(); err != nil {
		first = err
	}
	if err := p.unmap(); err != nil && first == nil {
		first = err
	}
	if err := p.f.Close(); err != nil && first == nil {
		first = eris.Wrapf(err, "pagedfile: close %s", p.path)
	}
	return first
}

// Skip returns pos+n without transferring data.
func (p *File) Skip(pos int64, n int) (int64, error) {
	if err := p.check(pos); err != nil {
		return pos, err
	}
	return pos + int64(n), nil
}

// Read fills dst with the bytes at pos and returns the position just after
// them. A read that would extend past the end of the file fails with
// ErrPastEOF and transfers nothing.
func (p *File) Read(pos int64, dst []byte) (int64, error) {
	if err := p.check(pos); err != nil {
		return pos, err
	}
	if len(dst) == 0 {
		return pos, nil
	}
	if err := p.flush(); err != nil {
		return pos, err
	}

	end := pos + int64(len(dst))
	if end > p.size {
		if err := p.restat(); err != nil {
			return pos, err
		}
		if end > p.size {
			return pos, eris.Wrapf(ErrPastEOF, "pagedfile: read %d bytes at %d (size %d)", len(dst), pos, p.size)
		}
	}

	cur := pos
	for len(dst) > 0 {
		if err := p.ensureMapped(cur); err != nil {
			return pos, err
		}
		n := copy(dst, p.window[cur-p.mapOffset:])
		dst = dst[n:]
		cur += int64(n)
	}
	return cur, nil
}

// Write stores src at pos and returns the position just after it. Bytes that
// fall inside the file go through the mapped window; bytes at or past the end
// of the file are collected in the append buffer.
func (p *File) Write(pos int64, src []byte) (int64, error) {
	if err := p.check(pos); err != nil {
		return pos, err
	}
	if !p.writable {
		return pos, ErrReadOnly
	}

	cur := pos
	for len(src) > 0 {
		var (
			n   int
			err error
		)
		if cur < p.size {
			n, err = p.writeMapped(cur, src)
		} else {
			n, err = p.appendBuffered(cur, src)
		}
		if err != nil {
			return pos, err
		}
		src = src[n:]
		cur += int64(n)
	}
	return cur, nil
}

// writeMapped copies the part of src that lies inside the file and inside
// the current window. Pending appends are flushed first so the mapped bytes
// and the file on disk agree on size.
func (p *File) writeMapped(pos int64, src []byte) (int, error) {
	if err := p.flush(); err != nil {
		return 0, err
	}
	if rest := p.size - pos; int64(len(src)) > rest {
		src = src[:rest]
	}
	if err := p.ensureMapped(pos); err != nil {
		return 0, err
	}
	return copy(p.window[pos-p.mapOffset:], src), nil
}

// appendBuffered copies as much of src as fits into the append buffer at pos,
// flushing first if pos is not contiguous with the buffered run.
func (p *File) appendBuffered(pos int64, src []byte) (int, error) {
	bufEnd := p.bufOffset + int64(len(p.buf))
	inBuffer := len(p.buf) > 0 && pos >= p.bufOffset && pos <= bufEnd
	if !inBuffer || pos-p.bufOffset >= BufferSize {
		if err := p.flush(); err != nil {
			return 0, err
		}
		if pos < p.size {
			// The flush grew the file past pos.
			return 0, nil
		}
		p.bufOffset = pos
	}

	at := int(pos - p.bufOffset)
	room := BufferSize - at
	n := len(src)
	if n > room {
		n = room
	}
	if need := at + n; need > len(p.buf) {
		p.buf = p.buf[:need]
	}
	copy(p.buf[at:], src[:n])
	return n, nil
}

// flush writes the append buffer to disk.
func (p *File) flush() error {
	if len(p.buf) == 0 {
		return nil
	}
	if _, err := p.f.WriteAt(p.buf, p.bufOffset); err != nil {
		return eris.Wrapf(err, "pagedfile: flush %d bytes at %d", len(p.buf), p.bufOffset)
	}
	if end := p.bufOffset + int64(len(p.buf)); end > p.size {
		p.size = end
	}
	p.buf = p.buf[:0]
	return nil
}

func (p *File) restat() error {
	st, err := p.f.Stat()
	if err != nil {
		return eris.Wrapf(err, "pagedfile: stat %s", p.path)
	}
	p.size = st.Size()
	return nil
}

func (p *File) check(pos int64) error {
	if p.closed {
		return ErrClosed
	}
	if pos < 0 {
		return eris.Wrapf(ErrBadPosition, "pagedfile: position %d", pos)
	}
	return nil
}

// ensureMapped makes sure pos (which must be < size) lies inside the window.
//
// On a miss the window grows to cover both the old window and the page
// holding pos, extended symmetrically away from the old window. If that
// mapping fails only the needed page is mapped.
func (p *File) ensureMapped(pos int64) error {
	if p.window != nil && pos >= p.mapOffset && pos < p.mapOffset+int64(len(p.window)) {
		return nil
	}

	b1 := pos / p.pageSize * p.pageSize
	e1 := b1 + p.pageSize
	b2, e2 := b1, e1
	if p.window != nil {
		b2, e2 = p.mapOffset, p.mapOffset+int64(len(p.window))
		if b2 > b1 {
			b2 = b1 - (b2 - b1)
		}
		if e2 < e1 {
			e2 = e1 + (e1 - e2)
		}
	}
	if b2 < 0 {
		b2 = 0
	}
	if e2 > p.size {
		e2 = p.size
	}
	if e1 > p.size {
		e1 = p.size
	}

	if err := p.unmap(); err != nil {
		return err
	}
	if err := p.mapRegion(b2, e2); err != nil {
		zap.L().Debug("pagedfile: wide remap failed, mapping single page",
			zap.String("path", p.path),
			zap.Int64("offset", b2),
			zap.Int64("length", e2-b2),
			zap.Error(err),
		)
		if err := p.mapRegion(b1, e1); err != nil {
			return err
		}
	}
	return nil
}

func (p *File) mapRegion(begin, end int64) error {
	prot := mmap.RDONLY
	if p.writable {
		prot = mmap.RDWR
	}
	m, err := mmap.MapRegion(p.f, int(end-begin), prot, 0, begin)
	if err != nil {
		return eris.Wrapf(err, "pagedfile: map [%d,%d) of %s", begin, end, p.path)
	}
	// Best effort; lookups are random access.
	_ = unix.Madvise(m, unix.MADV_RANDOM)
	p.window = m
	p.mapOffset = begin
	return nil
}

func (p *File) unmap() error {
	if p.window == nil {
		return nil
	}
	if p.writable {
		if err := p.window.Flush(); err != nil {
			return eris.Wrap(err, "pagedfile: msync window")
		}
	}
	err := p.window.Unmap()
	p.window = nil
	p.mapOffset = 0
	if err != nil {
		return eris.Wrap(err, "pagedfile: unmap window")
	}
	return nil
}

// ReadAt implements io.ReaderAt on top of Read.
func (p *File) ReadAt(dst []byte, off int64) (int, error) {
	if off >= p.Size() {
		return 0, io.EOF
	}
	n := len(dst)
	if rest := p.Size() - off; int64(n) > rest {
		n = int(rest)
	}
	if _, err := p.Read(off, dst[:n]); err != nil {
		return 0, err
	}
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}
