package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/live"
)

var (
	liveWorkspace string
	liveFiles     []string
	liveTicks     int
	liveInterval  time.Duration
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Print simulated live KPI updates in the terminal",
	Long: `Compose the dashboard, then perturb active users, conversion and satisfaction on
every tick, printing one line per update. Runs until --ticks updates were shown
or the process is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := dashboardSources(liveWorkspace, liveFiles)
		if err != nil {
			return err
		}
		log := newLogger()
		p := dashboard.NewComposer(log).ComposeFrom(cmd.Context(), src)
		for _, f := range p.Falhas {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %s using reference values: %s\n", f.Domain, f.Error)
		}

		interval := liveInterval
		if interval <= 0 {
			c, err := settings()
			if err != nil {
				return err
			}
			interval = c.LiveInterval()
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sim := live.New(p, live.WithLogger(log))
		updates := make(chan *dashboard.Payload, 1)
		unsubscribe := sim.Subscribe(func(p *dashboard.Payload) {
			select {
			case updates <- p:
			default:
			}
		})
		defer unsubscribe()
		printTick(0, sim.Current())
		sim.Start(nil, interval)
		defer sim.Stop()

		for n := 1; liveTicks <= 0 || n <= liveTicks; n++ {
			select {
			case <-ctx.Done():
				return nil
			case p := <-updates:
				printTick(n, p)
			}
		}
		return nil
	},
}

func printTick(n int, p *dashboard.Payload) {
	k := p.KPIsExecutivos
	fmt.Printf("[%03d %s] usuarios=%d conversao=%.2f%% satisfacao=%.2f receita=%.2f\n",
		n, p.LastUpdate, k.UsuariosAtivos, k.TaxaConversao, k.Satisfaction, k.ReceitaTotal)
}

func init() {
	rootCmd.AddCommand(liveCmd)
	liveCmd.Flags().StringVarP(&liveWorkspace, "workspace", "w", "", "workspace to aggregate")
	liveCmd.Flags().StringArrayVarP(&liveFiles, "file", "f", nil, "extra input as kind=path or path (repeatable)")
	liveCmd.Flags().IntVarP(&liveTicks, "ticks", "n", 0, "stop after this many updates (0 = until interrupted)")
	liveCmd.Flags().DurationVar(&liveInterval, "interval", 0, "time between updates (default from live_interval_ms)")
}
