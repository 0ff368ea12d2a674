package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"overlay/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var renderer string
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent renderer launch attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			if path == "" {
				return fmt.Errorf("launch history is disabled (history.enabled = false)")
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneDays > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return fmt.Errorf("prune history: %w", err)
				}
				fmt.Fprintf(out, "Removed %d attempts older than %d days\n", removed, pruneDays)
				return nil
			}

			attempts, err := store.List(cmd.Context(), strings.TrimSpace(renderer), limit)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No launch attempts recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(attempts))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of attempts to show")
	cmd.Flags().StringVar(&renderer, "renderer", "", "Only show attempts for this renderer name")
	cmd.Flags().IntVar(&pruneDays, "prune", 0, "Delete attempts older than this many days instead of listing")
	return cmd
}

func renderHistoryTable(attempts []history.Attempt) string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		pid := "-"
		if a.PID > 0 {
			pid = strconv.Itoa(a.PID)
		}
		rows = append(rows, []string{
			a.StartedAt.Local().Format("2006-01-02 15:04:05"),
			a.Renderer,
			string(a.Outcome),
			a.Duration().Round(time.Millisecond).String(),
			pid,
			strconv.Itoa(a.ErrorTimes),
			a.Detail,
		})
	}
	return renderTable(
		[]string{"Started", "Renderer", "Outcome", "Duration", "PID", "Errors", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}
