package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/usercode/internal/engine"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract [root]",
	Short: "Save the USER CODE sections of a tree to a snapshot",
	Long: `Harvest the USER CODE sections of every source file under root (default: the
current directory) and save them to a snapshot file. Run this before the code
generator, then run 'usercode insert' afterwards.

The snapshot goes to --output, or the 'snapshot' path of the config
(default: .usercode/sections.yaml under root).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}

		out := extractOutput
		if out == "" {
			out = cfg.SnapshotPath(root)
		}

		result, err := newEngine().Extract(cmd.Context(), &engine.ExtractRequest{
			Root:         root,
			Config:       cfg,
			SnapshotPath: out,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		PrintSuccess(fmt.Sprintf("Extracted %s from %s",
			PrintCount(result.Tree.SectionCount(), "section", "sections"),
			PrintCount(result.Tree.Len(), "file", "files")))

		rows := make([][]string, 0, result.Tree.Len())
		for _, f := range result.Tree.Files() {
			rows = append(rows, []string{f.Path, strconv.Itoa(len(f.Sections))})
		}
		PrintTable([]string{"FILE", "SECTIONS"}, rows)

		PrintLabelValue("Scanned", PrintCount(result.Scanned, "file", "files"))
		PrintLabelValue("Snapshot", result.SnapshotPath)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Snapshot file to write")
}
