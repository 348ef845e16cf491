package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/usercode/internal/engine"
)

var (
	carrySnapshot string
	carryNoBackup bool
	carryDryRun   bool
)

var carryCmd = &cobra.Command{
	Use:   "carry <from> <to>",
	Short: "Move sections from one tree into another",
	Long: `Extract the USER CODE sections of the tree <from> and insert them into the
tree <to> in one step, for example from your working project into a freshly
generated copy. <from> is only read, unless it is the same directory as
<to>, in which case that tree is rewritten in place. With --dry-run nothing is
written, not even the snapshot.

The config is read from <to>.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args[1])
		if err != nil {
			return err
		}

		result, err := newEngine().Carry(cmd.Context(), &engine.CarryRequest{
			From:         args[0],
			To:           args[1],
			Config:       cfg,
			SnapshotPath: carrySnapshot,
			Backup:       cfg.Backup && !carryNoBackup,
			DryRun:       carryDryRun,
		})
		if result == nil || result.Insert == nil {
			return err
		}

		if jsonOutput {
			if jerr := outputJSON(result); jerr != nil {
				return jerr
			}
			return err
		}

		PrintInfo(fmt.Sprintf("Extracted %s from %s",
			PrintCount(result.Extract.Scanned, "file", "files"), result.Extract.Root))
		if result.Extract.SnapshotPath != "" {
			PrintLabelValue("Snapshot", result.Extract.SnapshotPath)
		}
		printInsertResult(result.Insert)
		return err
	},
}

func init() {
	carryCmd.Flags().StringVarP(&carrySnapshot, "output", "o", "", "Also save the extracted sections to this snapshot file")
	carryCmd.Flags().BoolVar(&carryNoBackup, "no-backup", false, "Rewrite files without keeping a backup")
	carryCmd.Flags().BoolVar(&carryDryRun, "dry-run", false, "Show the changes without writing anything")
}
