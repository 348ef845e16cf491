package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [root]",
	Short: "Print the effective configuration for a tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cfg)
		}

		source := cfg.Source
		if source == "" {
			source = "(built-in defaults)"
		}
		PrintLabelValue("Source", source)
		PrintLabelValue("Snapshot", cfg.SnapshotPath(root))
		_, _ = fmt.Fprintf(stdout, "\n%s", cfg.String())
		return nil
	},
}
