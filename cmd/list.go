package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/workspace"
)

var (
	listWorkspaces bool
	listWorkspace  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces or the datasets of one workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listWorkspaces {
			return listAllWorkspaces()
		}
		w, err := openWorkspace(listWorkspace)
		if err != nil {
			return err
		}
		ds := w.List()
		if len(ds) == 0 {
			fmt.Println("(no datasets)")
			return nil
		}
		for _, d := range ds {
			fmt.Printf("- %s: %s [%s] %d rows x %d cols, added %s\n",
				shortID(d.ID), d.Name, d.Kind, d.Rows, d.Columns, humanize.Time(d.AddedAt))
		}
		return nil
	},
}

func listAllWorkspaces() error {
	root, err := defaultWorkspacesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), workspace.ManifestName)); err == nil {
			fmt.Printf("- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Println("(no workspaces)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listWorkspaces, "workspaces", false, "list workspaces")
	listCmd.Flags().StringVarP(&listWorkspace, "workspace", "w", "", "workspace whose datasets to list")
}

// shortID abbreviates a dataset id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
