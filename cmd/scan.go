package cmd

import (
	"fmt"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/shelffs/shelffs/internal/config"
	"github.com/shelffs/shelffs/internal/scan"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan [library-root]",
	Short: "Scan a library and report its books without mounting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		res, err := scan.New(cfg.Logger()).Scan(args[0])
		if err != nil {
			return err
		}

		if scanJSON {
			return printScanJSON(res)
		}

		for _, b := range res.Books {
			line := fmt.Sprintf("%s - %s", b.Authors[0], b.Title)
			if b.Series != "" {
				if b.HasIndex {
					line += fmt.Sprintf(" (%s #%g)", b.Series, b.SeriesIndex)
				} else {
					line += fmt.Sprintf(" (%s)", b.Series)
				}
			}
			fmt.Println(line)
		}
		fmt.Printf("%d books, %d skipped, %v\n", len(res.Books), len(res.Skipped), res.Duration.Round(time.Millisecond))
		return nil
	},
}

func printScanJSON(res *scan.Result) error {
	books := make([]map[string]any, 0, len(res.Books))
	for _, b := range res.Books {
		e := map[string]any{
			"title":      b.Title,
			"authors":    b.Authors,
			"source_dir": b.SourceDir,
			"files":      len(b.ContentFiles),
		}
		if b.Series != "" {
			e["series"] = b.Series
			if b.HasIndex {
				e["series_index"] = b.SeriesIndex
			}
		}
		books = append(books, e)
	}

	skipped := make([]map[string]any, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, map[string]any{
			"dir":    s.Dir,
			"reason": s.Err.Error(),
		})
	}

	report := map[string]any{
		"books":       books,
		"skipped":     skipped,
		"duration_ms": res.Duration.Milliseconds(),
	}
	fmt.Println(oj.JSON(report, 2))
	return nil
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Emit the report as JSON")
	rootCmd.AddCommand(scanCmd)
}
