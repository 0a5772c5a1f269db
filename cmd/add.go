package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	addWorkspace string
	addKind      string
)

var addCmd = &cobra.Command{
	Use:   "add <files...>",
	Short: "Add spreadsheets to a workspace",
	Long: `Validate, parse and store one or more files in a workspace. Without --kind each
file's domain (sales, metrics, costs, financial) is detected from its header.
A rejected file is reported and the rest are still added.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := optionalKind(addKind)
		if err != nil {
			return err
		}
		w, err := openWorkspace(addWorkspace)
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		added := 0
		for _, file := range args {
			d, err := w.AddDataset(file, kind, svc)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %s skipped: %v\n", filepath.Base(file), err)
				continue
			}
			added++
			fmt.Printf("✓ Dataset added: %s (%s, %d rows) [%s]\n", d.Name, d.Kind, d.Rows, shortID(d.ID))
		}
		if added == 0 {
			return fmt.Errorf("no datasets added")
		}
		return w.Save()
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addWorkspace, "workspace", "w", "", "workspace name")
	addCmd.Flags().StringVarP(&addKind, "kind", "k", "", "dataset domain: sales|metrics|costs|financial (detected if omitted)")
}
