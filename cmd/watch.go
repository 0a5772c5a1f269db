package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
	"github.com/KaramelBytes/datahub-cli/internal/watch"
	"github.com/KaramelBytes/datahub-cli/internal/workspace"
)

var (
	watchWorkspace string
	watchKind      string
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Add files dropped into a workspace's inbox folder",
	Long: `Watch <workspace>/inbox and add every supported file that appears there. Files
already waiting are added first. Processed files move to inbox/processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := optionalKind(watchKind)
		if err != nil {
			return err
		}
		w, err := openWorkspace(watchWorkspace)
		if err != nil {
			return err
		}
		if err := w.Save(); err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		wt := watch.New(w.InboxDir(), inboxHandler(w, svc, kind, nil), watchDebounce, newLogger())
		if err := wt.Backfill(ctx); err != nil {
			return err
		}
		fmt.Printf("✓ Watching %s (Ctrl+C to stop)\n", w.InboxDir())
		return wt.Run(ctx)
	},
}

// inboxHandler adds a dropped file to w, saves the manifest and archives the
// original. after, when set, runs once the dataset is retained by svc.
func inboxHandler(w *workspace.Workspace, svc *ingest.Service, kind fields.Kind, after func(context.Context)) watch.Handler {
	var mu sync.Mutex
	return func(ctx context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		d, err := w.AddDataset(path, kind, svc)
		if err != nil {
			return err
		}
		if err := w.Save(); err != nil {
			return err
		}
		archived := filepath.Join(w.InboxDir(), "processed", shortID(d.ID)+"-"+d.Name)
		if err := utils.CopyFile(path, archived); err != nil {
			return fmt.Errorf("archive %s: %w", d.Name, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("clear inbox: %w", err)
		}
		if after != nil {
			after(ctx)
		}
		return nil
	}
}

func optionalKind(s string) (fields.Kind, error) {
	if s == "" {
		return "", nil
	}
	return fields.ParseKind(s)
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchWorkspace, "workspace", "w", "", "workspace name")
	watchCmd.Flags().StringVarP(&watchKind, "kind", "k", "", "domain for every dropped file (detected if omitted)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a file is read")
}
