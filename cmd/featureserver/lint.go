package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson/hint"
)

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint FILE...",
		Short: "Report structural GeoJSON problems in source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := lintFiles(cmd.OutOrStdout(), args)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%d problem(s) found", n)
			}
			return nil
		},
	}
}

// lintFiles prints one line per diagnostic and returns the total count.
func lintFiles(out io.Writer, paths []string) (int, error) {
	l := hint.New()
	total := 0
	for _, p := range paths {
		b, err := os.ReadFile(filepath.Clean(p))
		if err != nil {
			return total, fmt.Errorf("read %s: %w", p, err)
		}
		fc, err := geojson.Decode(b)
		if err != nil {
			_, _ = fmt.Fprintf(out, "%s: $: %v\n", p, err)
			total++
			continue
		}
		for _, d := range l.Hint(fc) {
			_, _ = fmt.Fprintf(out, "%s: %s\n", p, d)
			total++
		}
	}
	return total, nil
}
