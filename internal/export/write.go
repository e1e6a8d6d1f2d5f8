package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"github.com/jonas-p/go-shp"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrmap/pkg/geocode"
)

// Output formats.
const (
	FormatCSV       = "csv"
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shp"
	FormatJSON      = "json"
	FormatYAML      = "yaml"
)

// FormatFromPath picks the output format from the file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".geojson":
		return FormatGeoJSON, nil
	case ".shp":
		return FormatShapefile, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unsupported output format %q", filepath.Ext(path))
	}
}

// WriteFile writes results to path in the format its extension names. The
// file is replaced atomically.
func WriteFile(path string, results []geocode.Result) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format == FormatShapefile {
		return WriteShapefile(path, results)
	}
	return writeAtomic(path, func(w io.Writer) error {
		return Encode(w, format, results)
	})
}

// Encode writes results to w in format. Shapefiles need a path and are not
// supported here.
func Encode(w io.Writer, format string, results []geocode.Result) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, NewRows(results))
	case FormatGeoJSON:
		return WriteGeoJSON(w, results)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(results), "export: encode json")
	case FormatYAML:
		return WriteYAML(w, NewRows(results))
	default:
		return eris.Errorf("export: unsupported format %q", format)
	}
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	var err error
	if len(rows) == 0 {
		err = enc.EncodeHeader(Row{})
	} else {
		err = enc.Encode(rows)
	}
	if err != nil {
		return eris.Wrap(err, "export: encode csv")
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteYAML writes v as a YAML document.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml")
}

// FeatureCollection builds a GeoJSON feature collection with one point per
// matched result.
func FeatureCollection(results []geocode.Result) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, r := range results {
		if !r.Matched {
			continue
		}
		fc.Features = append(fc.Features, Feature(r))
	}
	return fc
}

// Feature builds the GeoJSON point feature for a matched result.
func Feature(r geocode.Result) *geojson.Feature {
	props := map[string]interface{}{
		"input":        r.Input,
		"house_number": r.HouseNumber,
		"street":       r.Street,
		"quality":      r.Quality,
	}
	for k, v := range map[string]string{
		"city":    r.City,
		"state":   r.State,
		"side":    r.Side,
		"geohash": r.Geohash,
		"source":  r.Source,
	} {
		if v != "" {
			props[k] = v
		}
	}
	if r.ZipCode != 0 {
		props["zip_code"] = r.ZipCode
	}
	if r.SegmentMeters != 0 {
		props["segment_meters"] = r.SegmentMeters
	}
	return &geojson.Feature{
		ID:         r.ID,
		Geometry:   geom.NewPointFlat(geom.XY, []float64{r.Longitude, r.Latitude}),
		Properties: props,
	}
}

// WriteGeoJSON writes matched results as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, results []geocode.Result) error {
	data, err := json.Marshal(FeatureCollection(results))
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

// shapeFields are the DBF columns of a point shapefile, in write order.
var shapeFields = []shp.Field{
	shp.StringField("ID", 32),
	shp.FloatField("LAT", 13, 7),
	shp.FloatField("LON", 13, 7),
	shp.NumberField("HOUSENUM", 9),
	shp.StringField("STREET", 40),
	shp.StringField("CITY", 40),
	shp.StringField("STATE", 40),
	shp.NumberField("ZIP", 5),
	shp.StringField("SIDE", 1),
	shp.StringField("QUALITY", 13),
	shp.StringField("GEOHASH", 12),
}

// WriteShapefile writes matched results as a point shapefile at path (with
// the .shx and .dbf files beside it). The three files are written to a
// temporary directory and then renamed into place.
func WriteShapefile(path string, results []geocode.Result) error {
	dir, err := os.MkdirTemp(filepath.Dir(path), ".addrmap-shp-")
	if err != nil {
		return eris.Wrap(err, "export: shapefile temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmp := filepath.Join(dir, base+".shp")

	w, err := shp.Create(tmp, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	if err := w.SetFields(shapeFields); err != nil {
		w.Close()
		return eris.Wrap(err, "export: shapefile fields")
	}

	var written int
	for _, r := range results {
		if !r.Matched {
			continue
		}
		row := int(w.Write(&shp.Point{X: r.Longitude, Y: r.Latitude}))
		values := []interface{}{
			r.ID, r.Latitude, r.Longitude, r.HouseNumber,
			r.Street, r.City, r.State, r.ZipCode,
			r.Side, r.Quality, r.Geohash,
		}
		for field, v := range values {
			if s, ok := v.(string); ok {
				v = truncate(s, int(shapeFields[field].Size))
			}
			if err := w.WriteAttribute(row, field, v); err != nil {
				w.Close()
				return eris.Wrapf(err, "export: shapefile attribute %s", shapeFields[field])
			}
		}
		written++
	}
	w.Close()

	dst := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if err := os.Rename(filepath.Join(dir, base+ext), dst+ext); err != nil {
			return eris.Wrapf(err, "export: move %s", dst+ext)
		}
	}
	zap.L().Debug("export: wrote shapefile", zap.String("path", path), zap.Int("points", written))
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// writeAtomic writes path through a temporary file that replaces it only
// when fn succeeds.
func writeAtomic(path string, fn func(io.Writer) error) error {
	pf, err := renameio.TempFile("", path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer pf.Cleanup() //nolint:errcheck

	if err := fn(pf); err != nil {
		return err
	}
	return eris.Wrapf(pf.CloseAtomicallyReplace(), "export: replace %s", path)
}
