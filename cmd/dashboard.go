package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/store"
	"github.com/KaramelBytes/datahub-cli/internal/table"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
)

var (
	dashWorkspace string
	dashFiles     []string
	dashOutput    string
	dashSummary   bool
	dashSave      bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Compose the dashboard payload from a workspace or ad-hoc files",
	Long: `Aggregate every dataset of a workspace, plus any --file kind=path entries, into
the dashboard payload and print it as JSON. Domains without data use reference
values. A domain whose file cannot be read or parsed also falls back and is
reported under "falhas".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := dashboardSources(dashWorkspace, dashFiles)
		if err != nil {
			return err
		}
		p := dashboard.NewComposer(newLogger()).ComposeFrom(cmd.Context(), src)

		if dashSave {
			if err := saveSnapshot(cmd, p); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: snapshot not saved: %v\n", err)
			}
		}
		if dashSummary {
			fmt.Println(p.String())
			return nil
		}
		b, err := utils.PrettyJSON(p)
		if err != nil {
			return err
		}
		if dashOutput != "" {
			if err := utils.SafeWriteFile(dashOutput, b); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote dashboard to %s\n", dashOutput)
			return nil
		}
		fmt.Println(string(b))
		return nil
	},
}

// dashboardSources gathers one loader per domain from the named workspace
// (when given or when run inside one) and from --file arguments. A kind=path
// file is read when its domain is composed, so an unreadable file falls back
// and lands under falhas. A bare path must be read up front to detect its
// domain and is skipped with a warning when that fails.
func dashboardSources(wsName string, fileArgs []string) (map[fields.Kind]dashboard.Source, error) {
	topt, err := tableOptions("", "")
	if err != nil {
		return nil, err
	}
	loaders := map[fields.Kind][]dashboard.Source{}
	if wsName != "" || len(fileArgs) == 0 {
		w, err := openWorkspace(wsName)
		if err != nil {
			return nil, err
		}
		for k, src := range w.Sources(topt) {
			loaders[k] = append(loaders[k], src)
		}
	}
	if len(fileArgs) > 0 {
		svc, err := newService()
		if err != nil {
			return nil, err
		}
		for _, arg := range fileArgs {
			kind, path, err := parseFileArg(arg)
			if err != nil {
				return nil, err
			}
			if kind == "" {
				d, err := readFileArg(svc, "", path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "⚠ Warning: %s skipped: %v\n", path, err)
					continue
				}
				tables := []table.Table{d.Table}
				loaders[d.Kind] = append(loaders[d.Kind], func(context.Context) ([]table.Table, error) { return tables, nil })
				continue
			}
			loaders[kind] = append(loaders[kind], func(context.Context) ([]table.Table, error) {
				d, err := readFileArg(svc, kind, path)
				if err != nil {
					return nil, err
				}
				return []table.Table{d.Table}, nil
			})
		}
	}
	src := make(map[fields.Kind]dashboard.Source, len(loaders))
	for k, ls := range loaders {
		src[k] = dashboard.Join(ls...)
	}
	return src, nil
}

func readFileArg(svc *ingest.Service, kind fields.Kind, path string) (*ingest.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return svc.Parse(filepath.Base(path), kind, data)
}

// parseFileArg splits "kind=path". A bare path has its kind detected.
func parseFileArg(arg string) (fields.Kind, string, error) {
	k, path, ok := strings.Cut(arg, "=")
	if !ok {
		return "", arg, nil
	}
	kind, err := fields.ParseKind(k)
	if err != nil {
		return "", "", err
	}
	if path == "" {
		return "", "", fmt.Errorf("missing path in --file %q", arg)
	}
	return kind, path, nil
}

func saveSnapshot(cmd *cobra.Command, p *dashboard.Payload) error {
	c, err := settings()
	if err != nil {
		return err
	}
	st, err := store.Open(c.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	id, err := st.SaveSnapshot(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Snapshot %d saved\n", id)
	return nil
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVarP(&dashWorkspace, "workspace", "w", "", "workspace to aggregate")
	dashboardCmd.Flags().StringArrayVarP(&dashFiles, "file", "f", nil, "extra input as kind=path or path (repeatable)")
	dashboardCmd.Flags().StringVarP(&dashOutput, "output", "o", "", "write JSON to this path")
	dashboardCmd.Flags().BoolVar(&dashSummary, "summary", false, "print a one-line summary instead of JSON")
	dashboardCmd.Flags().BoolVar(&dashSave, "save", false, "record the payload in the snapshot history")
}
