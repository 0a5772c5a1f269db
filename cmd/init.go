package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
	"github.com/KaramelBytes/datahub-cli/internal/workspace"
)

var (
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init <workspace-name>",
	Short: "Initialize a new DataHub workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		root, err := defaultWorkspacesDir()
		if err != nil {
			return err
		}
		wsDir := filepath.Join(root, name)
		// Refuse to overwrite an existing workspace.
		if info, err := os.Stat(wsDir); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(wsDir, workspace.ManifestName)); err == nil {
				return fmt.Errorf("workspace already exists at %s", wsDir)
			}
			entries, err := os.ReadDir(wsDir)
			if err != nil {
				return fmt.Errorf("inspect workspace directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize workspace", wsDir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat workspace directory: %w", err)
		}
		w := workspace.New(name, initDescription, wsDir)
		if err := w.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Workspace initialized: %s\n", wsDir)
		fmt.Printf("  Drop files into %s for 'datahub watch' to pick up.\n", w.InboxDir())
		return nil
	},
}

func defaultWorkspacesDir() (string, error) {
	c, err := settings()
	if err != nil {
		return "", err
	}
	dir := c.WorkspacesDir
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveWorkspaceDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("workspace name is required")
	}
	root, err := defaultWorkspacesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// openWorkspace loads a workspace by name, or the one enclosing the current
// directory when name is empty.
func openWorkspace(name string) (*workspace.Workspace, error) {
	if name == "" {
		dir, err := workspace.Find("")
		if err != nil {
			return nil, fmt.Errorf("--workspace is required outside a workspace directory")
		}
		return workspace.Load(dir)
	}
	dir, err := resolveWorkspaceDirByName(name)
	if err != nil {
		return nil, err
	}
	return workspace.Load(dir)
}

// newService builds an ingestion service from the effective configuration.
func newService() (*ingest.Service, error) {
	c, err := settings()
	if err != nil {
		return nil, err
	}
	return ingest.NewService(c.Policy(), c.TableOptions(), newLogger()), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "workspace description")
}
