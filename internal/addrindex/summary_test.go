package addrindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrmap/internal/addrindex"
)

func TestSummarize(t *testing.T) {
	ix, layout := openSpringfield(t)

	s, err := ix.Summarize()
	require.NoError(t, err)

	assert.Equal(t, ix.Path(), s.Path)
	assert.Equal(t, ix.Size(), s.Size)
	assert.Equal(t, layout.Header, s.Header)
	assert.Equal(t, 8, s.Names)
	assert.Equal(t, map[string]int{"A": 2, "C": 2, "E": 1, "O": 2, "S": 1}, s.NamesByTag)
	assert.Equal(t, 3, s.Zips)
}

func TestZips(t *testing.T) {
	ix, layout := openSpringfield(t)

	var zips []int
	var first addrindex.RangeEntry
	require.NoError(t, ix.Zips(func(zip int, r addrindex.RangeEntry) bool {
		if zips == nil {
			first = r
		}
		zips = append(zips, zip)
		return true
	}))
	assert.Equal(t, []int{62565, 62701, 62702}, zips)
	assert.Less(t, int64(first.Begin), layout.Segments[0])

	var n int
	require.NoError(t, ix.Zips(func(int, addrindex.RangeEntry) bool {
		n++
		return false
	}))
	assert.Equal(t, 1, n)
}
