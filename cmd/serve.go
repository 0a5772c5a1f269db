package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/httpapi"
	"github.com/KaramelBytes/datahub-cli/internal/live"
	"github.com/KaramelBytes/datahub-cli/internal/store"
	"github.com/KaramelBytes/datahub-cli/internal/watch"
)

var (
	serveAddr      string
	serveDB        string
	serveNoStore   bool
	serveWorkspace string
	serveWatch     bool
	serveLive      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve uploads, the dashboard and live updates over HTTP",
	Long: `Start the HTTP API. Uploads are kept in the SQLite store for cache_ttl_sec and
restored on restart. With --workspace its datasets are served too, and --watch
adds files dropped into its inbox while the server runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		log := newLogger()
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}
		addr := c.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		svc, err := newService()
		if err != nil {
			return err
		}

		var st *store.Store
		if !serveNoStore {
			path := c.DBPath
			if serveDB != "" {
				path = serveDB
			}
			st, err = store.Open(path)
			if err != nil {
				return err
			}
			defer st.Close()
		}
		srv := httpapi.New(httpapi.Config{
			Ingest:       svc,
			Composer:     dashboard.NewComposer(log),
			Simulator:    live.New(nil, live.WithLogger(log)),
			Store:        st,
			CacheTTL:     c.CacheTTL(),
			LiveInterval: c.LiveInterval(),
			Log:          log,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Preload(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: some stored uploads could not be restored: %v\n", err)
		}

		g, ctx := errgroup.WithContext(ctx)
		if serveWorkspace != "" {
			w, err := openWorkspace(serveWorkspace)
			if err != nil {
				return err
			}
			if err := w.Hydrate(svc, c.TableOptions()); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
			}
			srv.Refresh(ctx)
			if serveWatch {
				if err := w.Save(); err != nil {
					return err
				}
				handler := inboxHandler(w, svc, "", func(ctx context.Context) { srv.Refresh(ctx) })
				wt := watch.New(w.InboxDir(), handler, watch.DefaultDebounce, log)
				g.Go(func() error {
					if err := wt.Backfill(ctx); err != nil {
						return err
					}
					return wt.Run(ctx)
				})
			}
		} else if serveWatch {
			return fmt.Errorf("--watch requires --workspace")
		}
		if serveLive {
			srv.StartSimulation(ctx)
		}
		g.Go(func() error { return srv.Run(ctx, addr) })
		fmt.Printf("✓ Listening on http://%s\n", addr)
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from http_addr)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite path (default from db_path)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "keep uploads in memory only")
	serveCmd.Flags().StringVarP(&serveWorkspace, "workspace", "w", "", "also serve this workspace's datasets")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "add files dropped into the workspace inbox")
	serveCmd.Flags().BoolVar(&serveLive, "live", false, "start live updates immediately")
}
