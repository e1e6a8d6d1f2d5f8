package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrmap/pkg/geocode"
)

func sampleResults() []geocode.Result {
	return []geocode.Result{
		{
			ID: "a1", Input: "123 Main St Springfield IL 62701", Matched: true, Source: "addrmap",
			Quality: geocode.QualityInterpolated, Latitude: 39.80022, Longitude: -89.64978,
			HouseNumber: 123, Street: "MAIN ST", City: "SPRINGFIELD", State: "IL", ZipCode: 62701,
			Side: "L", Geohash: "dp04rvrj0", SegmentMeters: 140.2,
		},
		{ID: "a2", Input: "9 Nowhere Rd", Matched: false, Source: "addrmap"},
		{
			ID: "a3", Input: "51 Elm St", Matched: true, Source: "addrmap",
			Quality: geocode.QualityControlPoint, Latitude: 39.8105, Longitude: -89.66,
			HouseNumber: 51, Street: "ELM ST",
		},
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	rows := NewRows(sampleResults())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "id,input,matched,quality,latitude,longitude,"))

	var got []Row
	require.NoError(t, csvutil.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, rows, got)
}

func TestWriteCSV_ErrorColumn(t *testing.T) {
	rows := NewRows([]geocode.Result{
		{ID: "b1", Input: "123 Main St 62701", Source: "addrmap", Error: "addrindex: corrupt index"},
	})
	require.Equal(t, "addrindex: corrupt index", rows[0].Error)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.Contains(t, strings.SplitN(buf.String(), "\n", 2)[0], ",error")

	var got []Row
	require.NoError(t, csvutil.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.False(t, got[0].Matched)
	assert.Equal(t, "addrindex: corrupt index", got[0].Error)
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.True(t, strings.HasPrefix(buf.String(), "id,input,matched"))
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleResults()))

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "a1", f.ID)
	p, ok := f.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -89.64978, p.X(), 1e-9)
	assert.InDelta(t, 39.80022, p.Y(), 1e-9)
	assert.Equal(t, "MAIN ST", f.Properties["street"])
	assert.Equal(t, "SPRINGFIELD", f.Properties["city"])
	assert.InDelta(t, 62701, f.Properties["zip_code"], 0)

	// Empty optional fields are left out.
	_, hasCity := fc.Features[1].Properties["city"]
	assert.False(t, hasCity)
}

func TestWriteGeoJSON_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, []geocode.Result{{Matched: false}}))
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, NewRows(sampleResults()[:1])))

	var got []Row
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "MAIN ST", got[0].Street)
	assert.Contains(t, buf.String(), "  street: MAIN ST")
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]string{
		"out.csv":     FormatCSV,
		"OUT.GeoJSON": FormatGeoJSON,
		"out.shp":     FormatShapefile,
		"out.json":    FormatJSON,
		"out.yml":     FormatYAML,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFromPath("out.kml")
	assert.ErrorContains(t, err, `unsupported output format ".kml"`)
}

func TestWriteFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, WriteFile(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []geocode.Result
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sampleResults(), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFile_UnsupportedKeepsOld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.Error(t, WriteFile(path, sampleResults()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestWriteShapefile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.shp")
	require.NoError(t, WriteFile(path, sampleResults()))

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		assert.FileExists(t, filepath.Join(dir, "points"+ext))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	fields := r.Fields()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.String()] = i
	}

	var ids, streets []string
	var points []*shp.Point
	for r.Next() {
		_, shape := r.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok)
		points = append(points, p)
		ids = append(ids, strings.TrimSpace(r.Attribute(idx["ID"])))
		streets = append(streets, strings.TrimSpace(r.Attribute(idx["STREET"])))
	}
	assert.Equal(t, []string{"a1", "a3"}, ids)
	assert.Equal(t, []string{"MAIN ST", "ELM ST"}, streets)
	require.Len(t, points, 2)
	assert.InDelta(t, -89.64978, points[0].X, 1e-9)
	assert.InDelta(t, 39.80022, points[0].Y, 1e-9)
}

func TestReadCSV(t *testing.T) {
	in := "ID, Address ,extra\n1,123 Main St Springfield,x\n2,\"51 Elm St, Springfield\",y\n"
	got, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []geocode.AddressInput{
		{ID: "1", Line: "123 Main St Springfield"},
		{ID: "2", Line: "51 Elm St, Springfield"},
	}, got)
}

func TestReadCSV_Structured(t *testing.T) {
	in := "street,city,state,zip\n123 Main St,Springfield,IL,62701\n"
	got, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []geocode.AddressInput{
		{Street: "123 Main St", City: "Springfield", State: "IL", ZipCode: "62701"},
	}, got)
}

func TestReadCSV_Errors(t *testing.T) {
	got, err := ReadCSV(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadCSV(context.Background(), strings.NewReader("id,name\n1,x\n"))
	assert.ErrorIs(t, err, ErrNoAddressColumn)
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadInput_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Address", "ID"},
		{"123 Main St Springfield", "1"},
		{"", ""},
		{"51 Elm St", "2"},
	})

	got, err := ReadInput(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []geocode.AddressInput{
		{ID: "1", Line: "123 Main St Springfield"},
		{ID: "2", Line: "51 Elm St"},
	}, got)
}

func TestReadInput_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,address\n7,150 Main St\n"), 0o644))

	got, err := ReadInput(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []geocode.AddressInput{{ID: "7", Line: "150 Main St"}}, got)
}

func TestReadInput_Unsupported(t *testing.T) {
	_, err := ReadInput(context.Background(), "in.txt")
	assert.ErrorContains(t, err, "unsupported input format")
}
