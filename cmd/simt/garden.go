package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/wasumayan/SorryIMissedThis-sub001/internal/logutil"
)

func newGardenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "garden",
		Short: "Inspect and curate the persisted garden",
	}
	cmd.AddCommand(newGardenListCmd())
	cmd.AddCommand(newGardenPinCmd())
	return cmd
}

func newGardenListCmd() *cobra.Command {
	var outputJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations with health and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			svc, _, err := serviceFromViper(logger)
			if err != nil {
				return err
			}
			records, err := svc.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no conversations")
				return nil
			}
			now := time.Now().UTC()
			for _, item := range records {
				days := item.Metrics.DaysSinceLastContact(now)
				daysText := "never"
				if !math.IsInf(days, 1) {
					daysText = fmt.Sprintf("%.0fd", days)
				}
				_, _ = fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s\t%s\t%s\t%.2f\t%s\n",
					item.CanonicalID,
					item.Name.Name,
					item.Health,
					item.Metrics.Reciprocity,
					daysText,
				)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print as JSON")
	return cmd
}

func newGardenPinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <canonical-id> <name>",
		Short: "Pin an explicit display name on a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			svc, _, err := serviceFromViper(logger)
			if err != nil {
				return err
			}
			record, err := svc.PinName(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "canonical_id: %s\nname: %s\nprovenance: %s\n",
				record.CanonicalID, record.Name.Name, record.Name.Provenance)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
