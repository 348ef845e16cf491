package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/usercode/internal/engine"
)

var dumpAll bool

var dumpCmd = &cobra.Command{
	Use:   "dump [root]",
	Short: "Print every USER CODE section in a tree",
	Long: `Print the USER CODE sections of every source file under root (default: the
current directory), each under the line it starts at.

Sections that hold only whitespace are hidden unless --all is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}

		result, err := newEngine().Extract(cmd.Context(), &engine.ExtractRequest{
			Root:   root,
			Config: cfg,
		})
		if err != nil {
			return err
		}

		if !dumpAll {
			result.Tree.DropBlank()
		}

		if jsonOutput {
			return outputJSON(result.Tree)
		}

		if result.Tree.Len() == 0 {
			PrintEmptyState("No USER CODE sections found")
			return nil
		}

		for _, f := range result.Tree.Files() {
			_, _ = headerColor.Fprintln(stdout, banner(f.Path))
			for _, s := range f.Sections {
				_, _ = labelColor.Fprintf(stdout, ">%d: USER CODE '%s'\n", s.StartLine, s.Name)
				_, _ = fmt.Fprint(stdout, s.Content)
				if s.Content != "" && !strings.HasSuffix(s.Content, "\n") {
					_, _ = fmt.Fprintln(stdout)
				}
			}
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().BoolVarP(&dumpAll, "all", "a", false, "Include sections that hold only whitespace")
}
