package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/addrmap/internal/addrindex"
	"github.com/sells-group/addrmap/internal/export"
)

var (
	inspectNames  int
	inspectFormat string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize an address map file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("inspect"); err != nil {
			return err
		}
		ix, err := addrindex.Open(cfg.Index.Path)
		if err != nil {
			return err
		}
		defer ix.Close() //nolint:errcheck

		return runInspect(ix, cmd.OutOrStdout(), inspectNames, inspectFormat)
	},
}

func init() {
	inspectCmd.Flags().IntVar(&inspectNames, "names", 10, "number of leading name records to list")
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "output format: text or yaml")
	rootCmd.AddCommand(inspectCmd)
}

type inspectReport struct {
	addrindex.Summary `yaml:",inline"`
	FirstNames        []string `yaml:"first_names"`
}

func runInspect(ix *addrindex.Index, w io.Writer, names int, format string) error {
	s, err := ix.Summarize()
	if err != nil {
		return err
	}

	rep := inspectReport{Summary: s}
	for i := 0; i < names && i < s.Names; i++ {
		r, err := ix.NameAt(i)
		if err != nil {
			return err
		}
		rep.FirstNames = append(rep.FirstNames, fmt.Sprintf("%c %s", r.Tag, r.TrimmedText()))
	}

	switch format {
	case "yaml":
		return export.WriteYAML(w, rep)
	case "text":
	default:
		return eris.Errorf("inspect: unknown format %q", format)
	}

	fmt.Fprintf(w, "path:        %s\n", s.Path)
	fmt.Fprintf(w, "size:        %d\n", s.Size)
	fmt.Fprintf(w, "zip offset:  %d\n", s.Header.ZipOffset)
	fmt.Fprintf(w, "names:       %d-%d (%d records)\n", s.Header.NamesBegin, s.Header.NamesEnd, s.Names)

	tags := make([]string, 0, len(s.NamesByTag))
	for tag := range s.NamesByTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(w, "  %s %d\n", tag, s.NamesByTag[tag])
	}
	fmt.Fprintf(w, "zip codes:   %d\n", s.Zips)

	if len(rep.FirstNames) > 0 {
		fmt.Fprintln(w, "first names:")
		for _, n := range rep.FirstNames {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	return nil
}
