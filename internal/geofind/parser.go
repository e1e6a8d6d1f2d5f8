package geofind

import (
	"github.com/sells-group/addrmap/internal/addrindex"
)

const (
	// maxLeadingWords is how many words may sit between the house number
	// and the street name ("123 REAR MAIN ST").
	maxLeadingWords = 2
	// maxFiller is how many unrecognised words may follow the street before
	// the city or zip code.
	maxFiller = 7
)

// address := NUMBER [WORD [WORD]] street
func (s *state) address() bool {
	begin := s.next
	next := s.nextWord(begin)
	if next == begin {
		return false
	}
	s.number = parseNumber(s.buf[begin:next])
	if s.number <= 0 {
		return false
	}

	s.next = next
	for skipped := 0; ; skipped++ {
		if s.street() {
			s.next = begin
			return true
		}
		if s.err != nil || skipped == maxLeadingWords {
			break
		}
		s.next = s.nextWord(s.next)
	}
	s.next = begin
	return false
}

// street := NAME(E|O) filler
func (s *state) street() bool {
	tag := addrindex.TagEven
	if s.number%2 != 0 {
		tag = addrindex.TagOdd
	}
	return s.name(tag, s.filler)
}

// filler := WORD{0..7} city | ε
//
// The street-only form applies only when no city, state or zip code follows
// the street. A recognised facet that does not intersect the street is a
// no-match.
func (s *state) filler() bool {
	begin := s.next
	defer func() { s.next = begin }()

	s.facetSeen = false
	for skipped := 0; skipped < maxFiller; skipped++ {
		if s.city() {
			return true
		}
		if s.err != nil {
			return false
		}
		// A state without a city is not part of the grammar, but it still
		// rules out the street-only form.
		if !s.facetSeen {
			s.name(addrindex.TagState, reject)
		}
		if s.err != nil {
			return false
		}
		next := s.nextWord(s.next)
		if next == s.next {
			break
		}
		s.next = next
	}
	if s.err != nil || s.facetSeen {
		return false
	}
	return s.valid()
}

func reject() bool { return false }

// city := NAME(C) stateOrZip | zip
func (s *state) city() bool {
	return s.name(addrindex.TagCity, s.stateOrZip) || s.zip()
}

// stateOrZip := NAME(S) optionalZip | optionalZip
func (s *state) stateOrZip() bool {
	return s.name(addrindex.TagState, s.optionalZip) || s.optionalZip()
}

// optionalZip := zip | ε
func (s *state) optionalZip() bool {
	return s.zip() || s.valid()
}

// zip reads a zip code and adds its slot of the zip table as a facet.
func (s *state) zip() bool {
	if s.err != nil {
		return false
	}
	next := s.nextWord(s.next)
	if next == s.next {
		return false
	}
	code := parseNumber(s.buf[s.next:next])
	if code <= 0 || code > addrindex.MaxZip {
		return false
	}
	s.facetSeen = true

	s.push(s.ix.ZipRange(code))
	if s.valid() {
		s.out.ZipCode = code
		return true
	}
	s.pop()
	return false
}

// name matches the next word(s) against records with tag and continues with
// cont.
func (s *state) name(tag byte, cont func() bool) bool {
	if s.err != nil {
		return false
	}
	next := s.nextWord(s.next)
	if next == s.next {
		return false
	}
	return s.nameAt(tag, cont, next)
}

// nameAt matches the span starting at s.next and ending at last, and the
// longer spans made by appending following words, against records with tag.
// Longer spans are tried first. A span is accepted when its record matches
// exactly and cont succeeds with the span consumed.
//
// For alias records (cont == nil) the first matching alias rewrites the
// buffer and nameAt reports true.
func (s *state) nameAt(tag byte, cont func() bool, last int) bool {
	type candidate struct {
		last  int
		match addrindex.NameMatch
	}
	var spans []candidate

	for {
		key := s.buf[s.next:last]
		m, ok, err := s.ix.FindName(tag, key)
		if err != nil {
			s.fail(err)
			return false
		}
		if !ok {
			break
		}
		if tag == addrindex.TagAlias {
			if text, isAlias := m.Alias(len(key)); isAlias {
				s.replace(s.next, last, text)
				return true
			}
		}
		spans = append(spans, candidate{last: last, match: m})

		var more int
		if tag == addrindex.TagAlias {
			more = s.inputWord(last)
		} else {
			more = s.nextWord(last)
			if s.err != nil {
				return false
			}
		}
		if more == last {
			break
		}
		last = more
	}
	if cont == nil {
		return false
	}

	save := s.next
	for i := len(spans) - 1; i >= 0; i-- {
		c := spans[i]
		n := c.last - save
		if !c.match.Exact(n) {
			continue
		}
		if tag == addrindex.TagCity || tag == addrindex.TagState {
			s.facetSeen = true
		}
		s.push(c.match.Ranges)
		s.next = c.last
		if cont() {
			s.next = save
			s.record(tag, c.match.Name(n))
			return true
		}
		s.pop()
		s.next = save
		if s.err != nil {
			return false
		}
	}
	return false
}

func (s *state) record(tag byte, name string) {
	switch tag {
	case addrindex.TagEven, addrindex.TagOdd:
		s.out.StreetName = name
	case addrindex.TagCity:
		s.out.CityName = name
	case addrindex.TagState:
		s.out.StateName = name
	}
}

func (s *state) push(r addrindex.RangeList) {
	s.ranges[s.nrange] = r
	s.nrange++
}

func (s *state) pop() {
	s.nrange--
}
