package addrindextest

import "github.com/sells-group/addrmap/internal/addrindex"

// Springfield returns a builder holding a few Illinois street segments:
//
//	MAIN ST  SPRINGFIELD IL 62701  odd 101-199, even 100-198
//	ELM ST   SPRINGFIELD IL 62702  odd 1-99
//	MAIN ST  SHELBYVILLE IL 62565  odd 101-199
//
// plus the aliases STREET -> ST and E -> ELM.
func Springfield() *Builder {
	return New().
		AddSegment(Segment{
			Street: "MAIN ST", City: "SPRINGFIELD", State: "IL", Zip: 62701,
			Parity: addrindex.TagOdd,
			Points: []Point{
				{Address: 101, Lat: 39.80000, Lon: -89.65000, Side: addrindex.SideLeft},
				{Address: 199, Lat: 39.80100, Lon: -89.64900, Side: addrindex.SideEnd},
			},
		}).
		AddSegment(Segment{
			Street: "MAIN ST", City: "SPRINGFIELD", State: "IL", Zip: 62701,
			Parity: addrindex.TagEven,
			Points: []Point{
				{Address: 100, Lat: 39.80000, Lon: -89.65000, Side: addrindex.SideRight},
				{Address: 198, Lat: 39.80100, Lon: -89.64900, Side: addrindex.SideEnd},
			},
		}).
		AddSegment(Segment{
			Street: "ELM ST", City: "SPRINGFIELD", State: "IL", Zip: 62702,
			Parity: addrindex.TagOdd,
			Points: []Point{
				{Address: 1, Lat: 39.81000, Lon: -89.66000, Side: addrindex.SideLeft},
				{Address: 51, Lat: 39.81050, Lon: -89.66000, Side: addrindex.SideLeft},
				{Address: 99, Lat: 39.81100, Lon: -89.66000, Side: addrindex.SideEnd},
			},
		}).
		AddSegment(Segment{
			Street: "MAIN ST", City: "SHELBYVILLE", State: "IL", Zip: 62565,
			Parity: addrindex.TagOdd,
			Points: []Point{
				{Address: 101, Lat: 39.40000, Lon: -88.80000, Side: addrindex.SideLeft},
				{Address: 199, Lat: 39.40080, Lon: -88.80000, Side: addrindex.SideEnd},
			},
		}).
		AddAlias("STREET", "ST").
		AddAlias("E", "ELM")
}
