package pagedfile

// Chain is a cursor over a File that remembers the first error. Once an
// operation fails every later call is a no-op, so a sequence of reads can be
// checked once at the end:
//
//	c := f.At(pos)
//	c.Int32(&next).Int32(&lon).Int32(&lat)
//	if err := c.Err(); err != nil { ... }
type Chain struct {
	f   *File
	pos int64
	err error
}

// At returns a Chain positioned at pos.
func (p *File) At(pos int64) *Chain {
	return &Chain{f: p, pos: pos}
}

// Pos returns the current position. After an error it is the position of
// the failed operation.
func (c *Chain) Pos() int64 { return c.pos }

// Err returns the first error encountered, if any.
func (c *Chain) Err() error { return c.err }

func (c *Chain) step(fn func(pos int64) (int64, error)) *Chain {
	if c.err != nil {
		return c
	}
	next, err := fn(c.pos)
	if err != nil {
		c.err = err
		return c
	}
	c.pos = next
	return c
}

// Int32 reads a big-endian int32; a nil v skips four bytes.
func (c *Chain) Int32(v *int32) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.ReadInt32(pos, v) })
}

// Int16 reads a big-endian int16; a nil v skips two bytes.
func (c *Chain) Int16(v *int16) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.ReadInt16(pos, v) })
}

// Int8 reads a signed byte; a nil v skips one byte.
func (c *Chain) Int8(v *int8) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.ReadInt8(pos, v) })
}

// Bytes fills dst.
func (c *Chain) Bytes(dst []byte) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.Read(pos, dst) })
}

// Skip advances n bytes.
func (c *Chain) Skip(n int) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.Skip(pos, n) })
}

// PutInt32 writes v big-endian.
func (c *Chain) PutInt32(v int32) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.WriteInt32(pos, v) })
}

// PutInt16 writes v big-endian.
func (c *Chain) PutInt16(v int16) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.WriteInt16(pos, v) })
}

// PutInt8 writes v.
func (c *Chain) PutInt8(v int8) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.WriteInt8(pos, v) })
}

// PutBytes writes src.
func (c *Chain) PutBytes(src []byte) *Chain {
	return c.step(func(pos int64) (int64, error) { return c.f.Write(pos, src) })
}
