package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"eraser/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		jobFlag    string
		levelFlag  string
		linesFlag  int
		followFlag bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show records from the eraser log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var level slog.Level
			if err := level.UnmarshalText([]byte(levelFlag)); err != nil {
				return fmt.Errorf("invalid --level %q", levelFlag)
			}
			query := logs.Query{JobID: jobFlag, MinLevel: level, Limit: linesFlag}

			path := cfg.LogFilePath()
			entries, offset, err := logs.Read(path, query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range entries {
				fmt.Fprintln(out, entry.Format())
			}
			if !followFlag {
				if len(entries) == 0 {
					fmt.Fprintf(out, "No log records in %s\n", path)
				}
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = logs.Follow(followCtx, path, offset, logs.Query{JobID: jobFlag, MinLevel: level}, 0, func(entry logs.Entry) {
				fmt.Fprintln(out, entry.Format())
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&jobFlag, "job", "j", "", "Only records for this job ID or prefix")
	cmd.Flags().StringVar(&levelFlag, "level", "info", "Minimum level (debug, info, warn, error)")
	cmd.Flags().IntVarP(&linesFlag, "lines", "n", 50, "Records to show before following (0 for all)")
	cmd.Flags().BoolVarP(&followFlag, "follow", "f", false, "Keep printing new records until interrupted")
	return cmd
}
