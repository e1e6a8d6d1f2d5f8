package export

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/addrmap/pkg/geocode"
)

// ErrNoAddressColumn is returned when an input has neither an address nor a
// street column.
var ErrNoAddressColumn = eris.New("export: input needs an address or street column")

// inputRow is one line of an address list. Either Address or the
// structured columns are filled.
type inputRow struct {
	ID      string `csv:"id"`
	Address string `csv:"address"`
	Street  string `csv:"street"`
	City    string `csv:"city"`
	State   string `csv:"state"`
	Zip     string `csv:"zip"`
}

func (r inputRow) addressInput() geocode.AddressInput {
	return geocode.AddressInput{
		ID:      r.ID,
		Line:    r.Address,
		Street:  r.Street,
		City:    r.City,
		State:   r.State,
		ZipCode: r.Zip,
	}
}

// ReadInput reads an address list from a .csv or .xlsx file. The first row
// is a header naming the columns id, address, street, city, state and zip;
// other columns are ignored.
func ReadInput(ctx context.Context, path string) ([]geocode.AddressInput, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "export: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f)
	case ".xlsx":
		return ReadXLSX(ctx, path)
	default:
		return nil, eris.Errorf("export: unsupported input format %q", filepath.Ext(path))
	}
}

// ReadCSV reads an address list in CSV form.
func ReadCSV(ctx context.Context, r io.Reader) ([]geocode.AddressInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "export: read csv header")
	}
	header = normalizeHeader(header)
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, eris.Wrap(err, "export: csv decoder")
	}

	var out []geocode.AddressInput
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "export: read csv")
		}
		var row inputRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, eris.Wrapf(err, "export: decode csv line %d", len(out)+2)
		}
		out = append(out, row.addressInput())
	}
}

// ReadXLSX reads an address list from the first sheet of an XLSX workbook.
func ReadXLSX(ctx context.Context, path string) ([]geocode.AddressInput, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("export: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := normalizeHeader(rowToStrings(sheet.Rows[0]))
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	cell := func(cells []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	var out []geocode.AddressInput
	for _, row := range sheet.Rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "export: read xlsx")
		}
		cells := rowToStrings(row)
		r := inputRow{
			ID:      cell(cells, "id"),
			Address: cell(cells, "address"),
			Street:  cell(cells, "street"),
			City:    cell(cells, "city"),
			State:   cell(cells, "state"),
			Zip:     cell(cells, "zip"),
		}
		if r == (inputRow{}) {
			continue
		}
		out = append(out, r.addressInput())
	}
	return out, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return out
}

func checkHeader(header []string) error {
	for _, h := range header {
		if h == "address" || h == "street" {
			return nil
		}
	}
	return ErrNoAddressColumn
}
