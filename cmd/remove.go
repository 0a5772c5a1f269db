package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeWorkspace string

var removeCmd = &cobra.Command{
	Use:   "remove <dataset-id>",
	Short: "Remove a dataset from a workspace (id or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace(removeWorkspace)
		if err != nil {
			return err
		}
		d, err := w.RemoveDataset(args[0])
		if err != nil {
			return err
		}
		if err := w.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Dataset removed: %s\n", d.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removeWorkspace, "workspace", "w", "", "workspace name")
}
