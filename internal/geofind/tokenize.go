package geofind

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/addrmap/internal/addrindex"
)

const (
	// bufferCap bounds the normalised word buffer of one query.
	bufferCap = 100
	// maxFacets is the number of range lists that can be active at once:
	// street, city, state and zip.
	maxFacets = 4
	// maxAliasHops bounds consecutive alias rewrites at one buffer position.
	maxAliasHops = 8
)

// state is the per-query parse context.
//
// Input is tokenised lazily into buf as space-terminated words. next is the
// start of the word the grammar is looking at; frontier is how far words
// have been checked against alias records.
type state struct {
	ix *addrindex.Index

	input []byte
	in    int
	depth int

	buf      []byte
	next     int
	frontier int

	aliasPos  int
	aliasHops int

	number int
	ranges [maxFacets]addrindex.RangeList
	nrange int

	// facetSeen is set when a city, state or zip was recognised after the
	// street, whether or not it intersected.
	facetSeen bool

	out Location
	err error
}

func newState(ix *addrindex.Index, address string) *state {
	return &state{
		ix:       ix,
		input:    foldASCII(address),
		buf:      make([]byte, 0, bufferCap),
		aliasPos: -1,
	}
}

// foldASCII strips diacritics so that "Peña" reads as "Pena".
func foldASCII(s string) []byte {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return []byte(s)
	}
	return []byte(out)
}

func (s *state) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// inputWord returns the start of the word after the one at pos. When pos is
// the end of the buffer, the next input word is copied in first: text in
// parentheses and non-alphanumerics are skipped, a letter directly after a
// digit is dropped ("123A" reads as "123"), and the word is terminated with
// a space while the buffer has room.
func (s *state) inputWord(pos int) int {
	if pos != len(s.buf) {
		for pos < len(s.buf) && s.buf[pos] != ' ' {
			pos++
		}
		for pos < len(s.buf) && s.buf[pos] == ' ' {
			pos++
		}
		return pos
	}

	for s.in < len(s.input) && (s.depth > 0 || !isAlnum(s.input[s.in])) {
		switch s.input[s.in] {
		case '(':
			s.depth++
		case ')':
			if s.depth > 0 {
				s.depth--
			}
		}
		s.in++
	}

	for s.in < len(s.input) && len(s.buf) < bufferCap && isAlnum(s.input[s.in]) {
		c := s.input[s.in]
		if len(s.buf) == 0 || !isDigit(s.buf[len(s.buf)-1]) || !isAlpha(c) {
			s.buf = append(s.buf, c)
		}
		s.in++
	}

	if pos != len(s.buf) && len(s.buf) < bufferCap {
		s.buf = append(s.buf, ' ')
	}
	return len(s.buf)
}

// nextWord is inputWord plus alias expansion: the first time a word is
// reached at the frontier it is looked up among the alias records and, if
// it matches, rewritten in place before being returned.
func (s *state) nextWord(pos int) int {
	next := s.inputWord(pos)
	if s.err != nil || pos != s.frontier || next == pos {
		return next
	}

	save := s.next
	s.next = pos
	s.frontier = next
	rewritten := s.nameAt(addrindex.TagAlias, nil, next)
	s.next = save
	if !rewritten {
		return next
	}

	if pos == s.aliasPos {
		s.aliasHops++
	} else {
		s.aliasPos, s.aliasHops = pos, 1
	}
	if s.aliasHops > maxAliasHops {
		s.fail(ErrAliasLoop)
		return pos
	}
	s.frontier = pos
	return s.nextWord(pos)
}

// replace rewrites buf[begin:end] with text. If the result would not fit
// the buffer, text is cut to the length of the span it replaces.
func (s *state) replace(begin, end int, text []byte) {
	if len(s.buf)-(end-begin)+len(text) > bufferCap && len(text) > end-begin {
		text = text[:end-begin]
	}
	tail := append([]byte(nil), s.buf[end:]...)
	s.buf = append(append(s.buf[:begin], text...), tail...)
}

// parseNumber reads an integer like strtol over buf[begin:end]: leading
// spaces, an optional sign, then digits. Overflow reads as zero.
func parseNumber(b []byte) int {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	sign := 1
	if i < len(b) && b[i] == '-' {
		sign = -1
		i++
	}
	if i < len(b) && b[i] == '+' {
		i++
	}
	n := 0
	for ; i < len(b) && isDigit(b[i]); i++ {
		n = n*10 + int(b[i]-'0')
		if n > 1<<31-1 {
			return 0
		}
	}
	return n * sign
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isAlpha(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }

func isAlnum(c byte) bool { return isDigit(c) || isAlpha(c) }
