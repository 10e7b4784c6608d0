package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"eraser/internal/jobstore"
	"eraser/internal/logs"
)

const recentLogLines = 10

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect job history",
	}
	cmd.AddCommand(newJobsListCommand(ctx))
	cmd.AddCommand(newJobsShowCommand(ctx))
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		stateFlags []string
		limitFlag  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make([]jobstore.State, 0, len(stateFlags))
			for _, value := range stateFlags {
				state, ok := jobstore.ParseState(value)
				if !ok {
					return fmt.Errorf("unknown state %q", value)
				}
				states = append(states, state)
			}

			return ctx.withStore(func(store *jobstore.Store) error {
				jobs, err := store.ListJobs(cmd.Context(), limitFlag, states...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						stateLabel(string(job.State)),
						fmt.Sprintf("%d/%d", job.FramesDone, job.FramesTotal),
						fallback(job.Quality, "-"),
						fallback(job.User, "-"),
						humanize.Time(job.CreatedAt),
						job.InputPath,
					})
				}
				columns := []column{
					{title: "ID"}, {title: "State"}, {title: "Frames", numeric: true},
					{title: "Quality"}, {title: "User"}, {title: "Created"}, {title: "Input"},
				}
				fmt.Fprintln(out, renderTable(columns, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&stateFlags, "state", "s", nil, "Filter by state (repeatable)")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum jobs to show (0 for all)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				job, err := store.FindJob(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					if errors.Is(err, jobstore.ErrAmbiguousID) {
						return fmt.Errorf("job id %q matches more than one job", args[0])
					}
					return err
				}
				if job == nil {
					return fmt.Errorf("job %q not found", args[0])
				}

				finished := "-"
				if job.FinishedAt != nil {
					finished = formatTimestamp(*job.FinishedAt)
				}
				fields := [][2]string{
					{"ID", job.ID},
					{"State", stateLabel(string(job.State))},
					{"Input", job.InputPath},
					{"Output", fallback(job.OutputPath, "-")},
					{"Region", fallback(job.RegionKind, "-")},
					{"Quality", fallback(job.Quality, "-")},
					{"User", fallback(job.User, "-")},
					{"Frames", fmt.Sprintf("%d/%d (%s%%)", job.FramesDone, job.FramesTotal, strconv.FormatFloat(job.Progress()*100, 'f', 1, 64))},
					{"Created", formatTimestamp(job.CreatedAt)},
					{"Finished", finished},
					{"Duration", formatElapsed(job.Duration())},
				}
				if job.ErrorKind != "" || job.ErrorMessage != "" {
					fields = append(fields,
						[2]string{"Error kind", fallback(job.ErrorKind, "-")},
						[2]string{"Error", fallback(job.ErrorMessage, "-")},
					)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderFields(fields))

				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				entries, _, err := logs.Read(cfg.LogFilePath(), logs.Query{JobID: job.ID, Limit: recentLogLines})
				if err != nil || len(entries) == 0 {
					return nil
				}
				fmt.Fprintln(out, "\nRecent log records:")
				for _, entry := range entries {
					fmt.Fprintln(out, "  "+entry.Format())
				}
				return nil
			})
		},
	}
}
