package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrmap/internal/export"
	"github.com/sells-group/addrmap/internal/geofind"
	"github.com/sells-group/addrmap/pkg/geocode"
)

var findFormat string

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Geocode addresses read line by line from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("find"); err != nil {
			return err
		}

		client := newClient(1)
		defer client.Close() //nolint:errcheck

		ctx := cmd.Context()
		if err := client.Ping(ctx); err != nil {
			return eris.Wrap(err, "find: open index")
		}
		return runFind(ctx, client, cmd.InOrStdin(), cmd.OutOrStdout(), findFormat)
	},
}

func init() {
	findCmd.Flags().StringVar(&findFormat, "format", "text", "output format: text, json, yaml or geojson")
	rootCmd.AddCommand(findCmd)
}

// runFind answers each input line. Lookup errors are logged and reported as
// failures for that line.
func runFind(ctx context.Context, client *geocode.AddrMapClient, in io.Reader, out io.Writer, format string) error {
	var emit func(line string) error
	var finish func() error

	switch format {
	case "text":
		emit = func(line string) error {
			loc, ok, err := client.Find(ctx, line)
			if err != nil {
				zap.L().Error("find: lookup failed", zap.String("address", line), zap.Error(err))
			}
			return writeText(out, line, loc, ok && err == nil)
		}
	case "json":
		enc := json.NewEncoder(out)
		emit = func(line string) error {
			return enc.Encode(geocodeLine(ctx, client, line))
		}
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		emit = func(line string) error {
			return enc.Encode(geocodeLine(ctx, client, line))
		}
		finish = enc.Close
	case "geojson":
		var results []geocode.Result
		emit = func(line string) error {
			results = append(results, *geocodeLine(ctx, client, line))
			return nil
		}
		finish = func() error {
			return export.WriteGeoJSON(out, results)
		}
	default:
		return eris.Errorf("find: unknown format %q", format)
	}

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if err := emit(line); err != nil {
			return eris.Wrap(err, "find: write")
		}
	}
	if err := sc.Err(); err != nil {
		return eris.Wrap(err, "find: read input")
	}
	if finish != nil {
		return finish()
	}
	return nil
}

func geocodeLine(ctx context.Context, client *geocode.AddrMapClient, line string) *geocode.Result {
	r, err := client.Geocode(ctx, geocode.AddressInput{Line: line})
	if err != nil {
		zap.L().Error("find: lookup failed", zap.String("address", line), zap.Error(err))
		return &geocode.Result{Input: line, Matched: false, Source: client.Name(), Error: err.Error()}
	}
	return r
}

// writeText prints one result in the SUCCESS/FAILURE report format.
func writeText(w io.Writer, line string, loc geofind.Location, ok bool) error {
	if !ok {
		_, err := fmt.Fprintf(w, "FAILURE: %s\n", line)
		return err
	}
	_, err := fmt.Fprintf(w,
		"SUCCESS: %d/%s/%s/%s/%d\n"+
			"   Side = %c\n"+
			"  Start = %d @ %.8g, %.8g\n"+
			"     At = %d @ %.8g, %.8g\n"+
			"    End = %d @ %.8g, %.8g\n",
		loc.At.Address, loc.StreetName, loc.CityName, loc.StateName, loc.ZipCode,
		loc.Side,
		loc.Before.Address, loc.Before.Longitude, loc.Before.Latitude,
		loc.At.Address, loc.At.Longitude, loc.At.Latitude,
		loc.After.Address, loc.After.Longitude, loc.After.Latitude,
	)
	return err
}
