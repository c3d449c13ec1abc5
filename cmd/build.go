package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelffs/shelffs/internal/catalog"
	"github.com/shelffs/shelffs/internal/config"
	"github.com/shelffs/shelffs/internal/scan"
)

var buildCmd = &cobra.Command{
	Use:   "build [library-root] [output.db]",
	Short: "Scan a library and persist the result to a catalog database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output := args[1]

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := scan.New(cfg.Logger()).Scan(source)
		if err != nil {
			return err
		}

		_ = os.Remove(output) // Overwrite
		if err := catalog.Save(output, res.Books); err != nil {
			return err
		}

		fmt.Printf("Wrote %d books to %s in %v (%d skipped).\n",
			len(res.Books), output, time.Since(start).Round(time.Millisecond), len(res.Skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
