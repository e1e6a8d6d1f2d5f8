package pagedfile

// ReadInt32 decodes a big-endian int32 at pos into v. A nil v skips the
// item without reading it.
func (p *File) ReadInt32(pos int64, v *int32) (int64, error) {
	if v == nil {
		return p.Skip(pos, 4)
	}
	var b [4]byte
	next, err := p.Read(pos, b[:])
	if err != nil {
		return pos, err
	}
	*v = int32(order.Uint32(b[:]))
	return next, nil
}

// ReadInt16 decodes a big-endian int16 at pos into v. A nil v skips.
func (p *File) ReadInt16(pos int64, v *int16) (int64, error) {
	if v == nil {
		return p.Skip(pos, 2)
	}
	var b [2]byte
	next, err := p.Read(pos, b[:])
	if err != nil {
		return pos, err
	}
	*v = int16(order.Uint16(b[:]))
	return next, nil
}

// ReadInt8 reads one signed byte at pos into v. A nil v skips.
func (p *File) ReadInt8(pos int64, v *int8) (int64, error) {
	if v == nil {
		return p.Skip(pos, 1)
	}
	var b [1]byte
	next, err := p.Read(pos, b[:])
	if err != nil {
		return pos, err
	}
	*v = int8(b[0])
	return next, nil
}

// WriteInt32 encodes v big-endian at pos.
func (p *File) WriteInt32(pos int64, v int32) (int64, error) {
	var b [4]byte
	order.PutUint32(b[:], uint32(v))
	return p.Write(pos, b[:])
}

// WriteInt16 encodes v big-endian at pos.
func (p *File) WriteInt16(pos int64, v int16) (int64, error) {
	var b [2]byte
	order.PutUint16(b[:], uint16(v))
	return p.Write(pos, b[:])
}

// WriteInt8 stores v at pos.
func (p *File) WriteInt8(pos int64, v int8) (int64, error) {
	return p.Write(pos, []byte{byte(v)})
}
