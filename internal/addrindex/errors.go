package addrindex

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrCorrupt reports an index whose header, name table or offsets point
// outside the file or are otherwise inconsistent.
var ErrCorrupt = eris.New("addrindex: corrupt index")

// CorruptError describes where corruption was detected.
type CorruptError struct {
	What   string
	Offset int64
	Size   int64
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("addrindex: corrupt index: %s at offset %d (file size %d)", e.What, e.Offset, e.Size)
}

// Unwrap lets errors.Is match ErrCorrupt.
func (e *CorruptError) Unwrap() error { return ErrCorrupt }

func corrupt(what string, offset, size int64) error {
	return &CorruptError{What: what, Offset: offset, Size: size}
}

// IsCorrupt reports whether err (or any error in its chain) is index
// corruption rather than an I/O failure.
func IsCorrupt(err error) bool {
	if err == nil {
		return false
	}
	var ce *CorruptError
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, ErrCorrupt)
}
