package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/config"
	"github.com/sells-group/addrmap/internal/export"
	"github.com/sells-group/addrmap/internal/store"
	"github.com/sells-group/addrmap/pkg/geocode"
)

var (
	batchIn          string
	batchOut         string
	batchConcurrency int
	batchCache       bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Geocode a CSV or XLSX address list",
	Long:  "Reads addresses from a CSV or XLSX file with an id,address header, geocodes them in parallel and writes CSV, GeoJSON, JSON, YAML or a shapefile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}
		return runBatch(cmd.Context(), cfg, batchIn, batchOut, batchCache)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchIn, "in", "", "input file (.csv or .xlsx)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output file (.csv, .geojson, .json, .yaml or .shp)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel lookups (default from config)")
	batchCmd.Flags().BoolVar(&batchCache, "cache", false, "cache results in the configured store")
	_ = batchCmd.MarkFlagRequired("in")
	_ = batchCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(batchCmd)
}

// runBatch geocodes every address in the input file and writes the results.
func runBatch(ctx context.Context, c *config.Config, in, out string, useCache bool) error {
	if _, err := export.FormatFromPath(out); err != nil {
		return err
	}

	addrs, err := export.ReadInput(ctx, in)
	if err != nil {
		return err
	}
	zap.L().Info("batch: loaded addresses", zap.String("input", in), zap.Int("count", len(addrs)))

	client := geocode.NewAddrMapClient(c.Index.Path,
		geocode.WithPoolSize(c.Batch.Concurrency),
		geocode.WithGeohashPrecision(c.Geocode.GeohashPrecision),
	)
	defer client.Close() //nolint:errcheck

	if err := client.Ping(ctx); err != nil {
		return eris.Wrap(err, "batch: open index")
	}

	opts := []geocode.CascadeOption{geocode.WithBatchConcurrency(c.Batch.Concurrency)}
	if useCache {
		st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if n, err := st.DeleteExpiredGeocodes(ctx); err != nil {
			zap.L().Warn("batch: prune cache", zap.Error(err))
		} else if n > 0 {
			zap.L().Info("batch: pruned expired cache entries", zap.Int("count", n))
		}

		ttl := time.Duration(c.Batch.CacheTTLHours) * time.Hour
		opts = append(opts, geocode.WithCache(geocode.NewStoreCache(st, ttl)))
	}

	start := time.Now()
	results, err := geocode.NewCascadeClient([]geocode.Provider{client}, opts...).BatchGeocode(ctx, addrs)
	if err != nil {
		return eris.Wrap(err, "batch: geocode")
	}

	matched, failed := 0, 0
	for _, r := range results {
		switch {
		case r.Matched:
			matched++
		case r.Error != "":
			failed++
		}
	}

	if err := export.WriteFile(out, results); err != nil {
		return err
	}

	zap.L().Info("batch: complete",
		zap.String("output", out),
		zap.Int("total", len(results)),
		zap.Int("matched", matched),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
