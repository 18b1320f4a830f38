package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wasumayan/SorryIMissedThis-sub001/garden"
	"github.com/wasumayan/SorryIMissedThis-sub001/internal/logutil"
)

func newSyncCmd() *cobra.Command {
	var handles []string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass over the conversation set",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			policy, err := policyFromViper()
			if err != nil {
				return err
			}

			svc, _, err := serviceFromViper(logger)
			if err != nil {
				return err
			}
			var rawHandles []string
			for _, handle := range handles {
				if handle = strings.TrimSpace(handle); handle != "" {
					rawHandles = append(rawHandles, handle)
				}
			}

			report, err := svc.SyncAll(cmd.Context(), rawHandles, policy)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "run_id: %s\nplanned: %d\nsucceeded: %d\nfailed: %d\nelapsed: %s\n",
				report.RunID, report.Planned, report.Succeeded, report.Failed,
				report.EndedAt.Sub(report.StartedAt).Round(time.Millisecond),
			)
			failed := make([]string, 0, report.Failed)
			for handle, result := range report.Results {
				if result.Err != nil {
					failed = append(failed, fmt.Sprintf("%s\t%v", handle, result.Err))
				}
			}
			sort.Strings(failed)
			for _, line := range failed {
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().String("mode", "", "Sync policy: all|recent|selected (defaults to config sync.mode).")
	cmd.Flags().Int("recent-n", 0, "Conversation count for --mode recent.")
	cmd.Flags().StringArrayVar(&handles, "handle", nil, "Restrict the pass to these handles (repeatable).")
	cmd.Flags().StringArray("select", nil, "Handle for --mode selected (repeatable).")
	cmd.Flags().Int("workers", 0, "Concurrent chat workers.")
	cmd.Flags().Int("fetch-limit", 0, "Messages fetched per chat.")

	_ = viper.BindPFlag("sync.mode", cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("sync.recent_n", cmd.Flags().Lookup("recent-n"))
	_ = viper.BindPFlag("sync.selected", cmd.Flags().Lookup("select"))
	_ = viper.BindPFlag("sync.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("sync.fetch_limit", cmd.Flags().Lookup("fetch-limit"))

	return cmd
}

func policyFromViper() (garden.SyncPolicy, error) {
	mode := strings.ToLower(strings.TrimSpace(viper.GetString("sync.mode")))
	switch garden.SyncMode(mode) {
	case garden.ModeAll, "":
		return garden.SyncPolicy{Mode: garden.ModeAll}, nil
	case garden.ModeRecent:
		return garden.SyncPolicy{Mode: garden.ModeRecent, RecentN: viper.GetInt("sync.recent_n")}, nil
	case garden.ModeSelected:
		return garden.SyncPolicy{Mode: garden.ModeSelected, Selected: viper.GetStringSlice("sync.selected")}, nil
	default:
		return garden.SyncPolicy{}, fmt.Errorf("unknown sync.mode: %s", mode)
	}
}
