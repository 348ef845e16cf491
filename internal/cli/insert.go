package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/usercode/internal/engine"
)

var (
	insertInput    string
	insertNoBackup bool
	insertDryRun   bool
)

var insertCmd = &cobra.Command{
	Use:   "insert [root]",
	Short: "Splice sections from a snapshot back into a tree",
	Long: `Merge the sections saved by 'usercode extract' into the source files under
root (default: the current directory).

Each rewritten file is first renamed to a hidden backup (.main.c.1, .main.c.2,
...) unless --no-backup is given or the config disables backups. Sections the
new files have no place for are written to standalone files so that nothing
is lost. If any file is malformed, nothing is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}

		result, err := newEngine().Insert(cmd.Context(), &engine.InsertRequest{
			Root:         root,
			Config:       cfg,
			SnapshotPath: insertInput,
			Backup:       cfg.Backup && !insertNoBackup,
			DryRun:       insertDryRun,
		})
		if result == nil {
			return err
		}

		if jsonOutput {
			if jerr := outputJSON(result); jerr != nil {
				return jerr
			}
			return err
		}

		printInsertResult(result)
		return err
	},
}

func init() {
	insertCmd.Flags().StringVarP(&insertInput, "input", "i", "", "Snapshot file to read (default: from config)")
	insertCmd.Flags().BoolVar(&insertNoBackup, "no-backup", false, "Rewrite files without keeping a backup")
	insertCmd.Flags().BoolVar(&insertDryRun, "dry-run", false, "Show the changes without writing anything")
}

// printInsertResult prints the per-file outcome of an insert pass.
func printInsertResult(r *engine.InsertResult) {
	if r.DryRun {
		PrintInfo("Dry run - no files were written")
	}

	changed := 0
	for _, f := range r.Files {
		if f.Unchanged {
			continue
		}
		changed++

		title := f.Path
		if f.Regenerated {
			title += " (regenerated)"
		}
		PrintSection(title)

		if len(f.Inserted) > 0 {
			names := make([]string, len(f.Inserted))
			for i, s := range f.Inserted {
				names[i] = s.Name
			}
			PrintLabelValue("Inserted", strings.Join(names, ", "))
		}
		if f.BackupPath != "" {
			PrintLabelValue("Backup", filepath.Base(f.BackupPath))
		}
		for _, s := range f.NotFound {
			PrintWarning(fmt.Sprintf("Section '%s' (line %d) had no stored content", s.Name, s.Line))
		}
		for _, s := range f.Orphaned {
			PrintWarning(fmt.Sprintf("Section '%s' not inserted, no matching markers", s.Name))
		}
		if f.UnifiedDiff != "" {
			_, _ = dimColor.Fprintf(stdout, "  +%d -%d\n", f.Additions, f.Deletions)
			printUnifiedDiff(f.UnifiedDiff)
		}
	}

	if len(r.Fallbacks) > 0 {
		PrintSection("Orphaned sections")
		for _, fb := range r.Fallbacks {
			rel, err := filepath.Rel(r.Root, fb.Path)
			if err != nil {
				rel = fb.Path
			}
			PrintWarning(fmt.Sprintf("%s -> %s", fb.Source, rel))
			PrintList(fb.Sections, 1)
		}
	}

	for _, fe := range r.Errors {
		PrintError(fe.Error())
	}

	verb := "Updated"
	if r.DryRun {
		verb = "Would update"
	}
	summary := fmt.Sprintf("%s %s, %s inserted",
		verb,
		PrintCount(changed, "file", "files"),
		PrintCount(r.InsertedCount(), "section", "sections"))
	if unchanged := len(r.Files) - changed; unchanged > 0 {
		summary += fmt.Sprintf(", %d unchanged", unchanged)
	}
	if len(r.Errors) > 0 {
		PrintWarning(summary)
		return
	}
	PrintSuccess(summary)
}
