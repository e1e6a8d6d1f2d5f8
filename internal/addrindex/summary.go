package addrindex

// Summary describes the contents of an index file.
type Summary struct {
	Path       string         `json:"path" yaml:"path"`
	Size       int64          `json:"size" yaml:"size"`
	Header     Header         `json:"header" yaml:"header"`
	Names      int            `json:"names" yaml:"names"`
	NamesByTag map[string]int `json:"names_by_tag" yaml:"names_by_tag"`
	Zips       int            `json:"zips" yaml:"zips"`
}

// Summarize counts the name records per tag and the populated zip codes.
func (ix *Index) Summarize() (Summary, error) {
	s := Summary{
		Path:       ix.Path(),
		Size:       ix.size,
		Header:     ix.header,
		Names:      ix.NameCount(),
		NamesByTag: make(map[string]int),
	}
	for i := 0; i < s.Names; i++ {
		r, err := ix.NameAt(i)
		if err != nil {
			return Summary{}, err
		}
		s.NamesByTag[string(r.Tag)]++
	}
	err := ix.Zips(func(int, RangeEntry) bool {
		s.Zips++
		return true
	})
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

// Zips calls fn for each populated zip code in ascending order with its
// metarange, stopping early when fn returns false.
func (ix *Index) Zips(fn func(zip int, r RangeEntry) bool) error {
	for zip := 1; zip <= MaxZip; zip++ {
		e, err := ix.ReadRangeEntry(ix.ZipRange(zip).Begin)
		if err != nil {
			return err
		}
		if !e.Empty() && !fn(zip, e) {
			return nil
		}
	}
	return nil
}
