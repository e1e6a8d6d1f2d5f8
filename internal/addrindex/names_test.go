package addrindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrmap/internal/addrindex"
)

func TestFindName(t *testing.T) {
	ix, layout := openSpringfield(t)

	tests := []struct {
		name  string
		tag   byte
		key   string
		found bool
		exact bool
		text  string
	}{
		{"exact street", addrindex.TagOdd, "MAIN ST ", true, true, "MAIN ST"},
		{"case insensitive", addrindex.TagOdd, "main st ", true, true, "MAIN ST"},
		{"prefix of street", addrindex.TagOdd, "MAIN ", true, false, "MAIN ST"},
		{"wrong parity tag", addrindex.TagEven, "ELM ST ", false, false, ""},
		{"city", addrindex.TagCity, "Springfield ", true, true, "SPRINGFIELD"},
		{"other city", addrindex.TagCity, "SHELBYVILLE ", true, true, "SHELBYVILLE"},
		{"state", addrindex.TagState, "IL ", true, true, "IL"},
		{"absent", addrindex.TagCity, "CHICAGO ", false, false, ""},
		{"past last record", addrindex.TagState, "ZZ ", false, false, ""},
		{"before first record", addrindex.TagAlias, "A ", false, false, ""},
		{"empty key", addrindex.TagCity, "", false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := ix.FindName(tt.tag, []byte(tt.key))
			require.NoError(t, err)
			require.Equal(t, tt.found, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.exact, m.Exact(len(tt.key)))
			assert.Equal(t, tt.text, m.Record.TrimmedText())
			assert.Positive(t, m.Ranges.Len())
			assert.GreaterOrEqual(t, m.Pos, int64(layout.Header.NamesBegin))
		})
	}
}

func TestFindName_RangeList(t *testing.T) {
	ix, layout := openSpringfield(t)

	m, ok, err := ix.FindName(addrindex.TagCity, []byte("SPRINGFIELD "))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, m.Ranges.Len())

	e, err := ix.ReadRangeEntry(m.Ranges.Begin)
	require.NoError(t, err)
	// The three Springfield segments are contiguous after SHELBYVILLE.
	assert.Equal(t, uint32(layout.Segments[0]), e.Begin)
	assert.Equal(t, uint32(layout.SegmentsEnd), e.End)
}

func TestFindName_KeyTooLong(t *testing.T) {
	ix, _ := openSpringfield(t)

	key := make([]byte, addrindex.NameTextSize+1)
	for i := range key {
		key[i] = 'A'
	}
	_, ok, err := ix.FindName(addrindex.TagCity, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNameMatch_Alias(t *testing.T) {
	ix, _ := openSpringfield(t)

	m, ok, err := ix.FindName(addrindex.TagAlias, []byte("STREET "))
	require.NoError(t, err)
	require.True(t, ok)
	repl, isAlias := m.Alias(len("STREET "))
	require.True(t, isAlias)
	assert.Equal(t, "ST ", string(repl))
	assert.Equal(t, 0, m.Ranges.Len())

	m, ok, err = ix.FindName(addrindex.TagAlias, []byte("e "))
	require.NoError(t, err)
	require.True(t, ok)
	repl, isAlias = m.Alias(2)
	require.True(t, isAlias)
	assert.Equal(t, "ELM ", string(repl))

	// A street record is never an alias.
	m, ok, err = ix.FindName(addrindex.TagOdd, []byte("MAIN ST "))
	require.NoError(t, err)
	require.True(t, ok)
	_, isAlias = m.Alias(len("MAIN ST "))
	assert.False(t, isAlias)
}

func TestNameMatch_Name(t *testing.T) {
	m := addrindex.NameMatch{Record: addrindex.NewNameRecord(addrindex.TagCity, "SPRINGFIELD", 0)}
	assert.Equal(t, "SPRINGFIELD", m.Name(len("springfield ")))

	long := addrindex.NameMatch{Record: addrindex.NewNameRecord(addrindex.TagCity, string(make40('Q')), 0)}
	assert.Equal(t, string(make40('Q')), long.Name(addrindex.NameTextSize))
}

func TestNameMatch_AliasFillsRecord(t *testing.T) {
	text := "X =" + string(make40('Y'))
	m := addrindex.NameMatch{Record: addrindex.NewNameRecord(addrindex.TagAlias, text, 0)}
	repl, ok := m.Alias(2)
	require.True(t, ok)
	// No room for a trailing separator.
	assert.Len(t, repl, addrindex.NameTextSize-3)
	assert.NotEqual(t, byte(' '), repl[len(repl)-1])
}

func make40(c byte) []byte {
	b := make([]byte, addrindex.NameTextSize)
	for i := range b {
		b[i] = c
	}
	return b
}
