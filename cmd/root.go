package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/config"
	"github.com/sells-group/addrmap/pkg/geocode"
)

var (
	cfg       *config.Config
	indexFlag string
)

var rootCmd = &cobra.Command{
	Use:   "addrmap",
	Short: "Offline street address geocoder",
	Long:  "Resolves free-form postal addresses to coordinates using a prebuilt TIGER/Line address map, from the command line, in batch, or over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if indexFlag != "" {
			c.Index.Path = indexFlag
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&indexFlag, "index", "", "address map file (default from config)")
}

// newClient returns a geocode client over the configured address map.
func newClient(poolSize int) *geocode.AddrMapClient {
	return geocode.NewAddrMapClient(cfg.Index.Path,
		geocode.WithPoolSize(poolSize),
		geocode.WithGeohashPrecision(cfg.Geocode.GeohashPrecision),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
