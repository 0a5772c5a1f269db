package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded dashboard snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		st, err := store.Open(c.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		snaps, err := st.ListSnapshots(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("(no snapshots)")
			return nil
		}
		for _, s := range snaps {
			var p dashboard.Payload
			if err := json.Unmarshal(s.Payload, &p); err != nil {
				fmt.Printf("- #%d %s: unreadable payload\n", s.ID, humanize.Time(s.CreatedAt))
				continue
			}
			fmt.Printf("- #%d %s: %s\n", s.ID, humanize.Time(s.CreatedAt), p.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of snapshots to show")
}
