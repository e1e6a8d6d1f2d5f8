package addrindex

import (
	"bytes"
)

// NameMatch is a name record that starts with a looked-up key.
type NameMatch struct {
	Record NameRecord
	// Pos is the file offset of the record.
	Pos int64
	// Ranges is the record's range list: from its own offset to the offset
	// of the following slot.
	Ranges RangeList
}

// Exact reports whether the record text is exactly the first n key bytes
// followed by padding.
func (m NameMatch) Exact(n int) bool {
	for _, c := range m.Record.Text[min(n, NameTextSize):] {
		if c != ' ' {
			return false
		}
	}
	return true
}

// Alias returns the replacement text when the record is an alias whose key
// is the first n bytes. The replacement has surrounding padding removed and
// keeps one trailing space as a word terminator when the record has room
// for it.
func (m NameMatch) Alias(n int) ([]byte, bool) {
	if n >= NameTextSize || m.Record.Text[n] != AliasMark {
		return nil, false
	}
	text := m.Record.Text[:]
	begin := n + 1
	for begin < NameTextSize && text[begin] == ' ' {
		begin++
	}
	end := NameTextSize
	for end > begin && text[end-1] == ' ' {
		end--
	}
	if end < NameTextSize {
		end++
	}
	out := make([]byte, end-begin)
	copy(out, text[begin:end])
	return out, true
}

// Name returns the index's spelling of the first n bytes, without the
// trailing word separator.
func (m NameMatch) Name(n int) string {
	return string(bytes.TrimRight(m.Record.Text[:min(n, NameTextSize)], " "))
}

// FindName looks up the first record with tag whose text starts with key,
// compared case-insensitively. A key longer than a record's text never
// matches. ok is false when no record qualifies.
func (ix *Index) FindName(tag byte, key []byte) (NameMatch, bool, error) {
	if len(key) == 0 || len(key) > NameTextSize {
		return NameMatch{}, false, nil
	}
	namesEnd := int64(ix.header.NamesEnd)

	pos, err := ix.lowerBound(tag, key)
	if err != nil {
		return NameMatch{}, false, err
	}
	if pos == namesEnd {
		return NameMatch{}, false, nil
	}
	rec, err := ix.ReadNameRecord(pos)
	if err != nil {
		return NameMatch{}, false, err
	}
	if pos+NameRecordSize == namesEnd {
		// Sentinel slot.
		return NameMatch{}, false, nil
	}
	if rec.Tag != tag || compareFold(rec.Text[:len(key)], key) != 0 {
		return NameMatch{}, false, nil
	}
	next, err := ix.ReadNameRecord(pos + NameRecordSize)
	if err != nil {
		return NameMatch{}, false, err
	}

	ranges := RangeList{Begin: int64(rec.Offset), End: int64(next.Offset)}
	if ranges.End < ranges.Begin || ranges.End > ix.size {
		return NameMatch{}, false, corrupt("range list out of range", ranges.End, ix.size)
	}
	return NameMatch{Record: rec, Pos: pos, Ranges: ranges}, true, nil
}

// lowerBound bisects the name table. At each step it reads the record just
// left of the midpoint and keeps the upper half when (tag, key) sorts after
// it.
func (ix *Index) lowerBound(tag byte, key []byte) (int64, error) {
	begin, end := int64(ix.header.NamesBegin), int64(ix.header.NamesEnd)
	for {
		count := (end - begin) / NameRecordSize
		if count <= 1 {
			return begin, nil
		}
		mid := begin + NameRecordSize*(count/2)
		rec, err := ix.ReadNameRecord(mid - NameRecordSize)
		if err != nil {
			return 0, err
		}
		if tag > rec.Tag || (tag == rec.Tag && compareFold(key, rec.Text[:len(key)]) > 0) {
			begin = mid
		} else {
			end = mid
		}
	}
}

// compareFold compares ASCII byte strings of equal length ignoring case.
func compareFold(a, b []byte) int {
	for i := range a {
		ca, cb := lower(a[i]), lower(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
