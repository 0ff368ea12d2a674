package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"overlay/internal/logs"
)

const followWait = time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var process string
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display launcher or renderer logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			switch process {
			case "overlay", "overlayd":
			default:
				return fmt.Errorf("unknown process %q (want overlay or overlayd)", process)
			}
			path := filepath.Join(cfg.Paths.LogDir, process+".log")

			opts := logs.TailOptions{Offset: -1, Limit: max(lines, 0)}
			if opts.Limit == 0 {
				opts.Offset = 0
			}
			out := cmd.OutOrStdout()
			printed := false
			for {
				result, err := logs.Tail(cmd.Context(), path, opts)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range filter.Apply(result.Lines) {
					fmt.Fprintln(out, line)
					printed = true
				}
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				if cmd.Context().Err() != nil {
					return nil
				}
				opts = logs.TailOptions{Offset: result.Offset, Follow: true, Wait: followWait}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&process, "process", "overlay", "Which log to read: overlay or overlayd")
	cmd.Flags().StringVar(&filter.Renderer, "renderer", "", "Only show lines for this renderer name")
	cmd.Flags().StringVar(&filter.AttemptID, "attempt", "", "Only show lines for this launch attempt id")
	cmd.Flags().StringVar(&filter.EventType, "event", "", "Only show lines with this event_type")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}
