package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"eraser/internal/access"
	"eraser/internal/jobstore"
	"eraser/internal/pipeline"
	"eraser/internal/preflight"
	"eraser/internal/region"
)

const passwordEnv = "ERASER_PASSWORD"

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		regionFlag  string
		qualityFlag string
		outputFlag  string
		userFlag    string
		workersFlag int
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Reconstruct the selected regions of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if failed := preflight.Failed(preflight.RunQuick(cfg)); len(failed) > 0 {
				return preflightError(failed)
			}
			spec, err := region.Load(regionFlag)
			if err != nil {
				return fmt.Errorf("load region: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			creds := access.Credentials{User: strings.TrimSpace(userFlag)}
			if cfg.Access.Enabled {
				if creds.User == "" {
					return errors.New("access control is enabled; pass --user")
				}
				password, err := readPassword(cmd, fmt.Sprintf("Password for %s: ", creds.User))
				if err != nil {
					return err
				}
				creds.Password = password
			}

			return ctx.withStore(func(store *jobstore.Store) error {
				errOut := cmd.ErrOrStderr()
				observer := newProgressObserver(errOut, !noProgress && shouldColorize(errOut))
				orch, err := pipeline.New(cfg,
					pipeline.WithLogger(logger),
					pipeline.WithAuthorizer(access.New(cfg, store)),
					pipeline.WithRecorder(store),
					pipeline.WithObserver(observer),
				)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				result, err := orch.Run(runCtx, pipeline.Request{
					InputPath:   args[0],
					OutputPath:  outputFlag,
					Region:      spec,
					Quality:     qualityFlag,
					Credentials: creds,
					Workers:     workersFlag,
				})
				if err != nil {
					return fmt.Errorf("job %s failed: %w", shortID(result.JobID), err)
				}

				size := "-"
				if info, statErr := os.Stat(result.OutputPath); statErr == nil {
					size = humanize.Bytes(uint64(info.Size()))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d frames, %s) in %s [job %s]\n",
					result.OutputPath, result.Frames, size, formatElapsed(result.Elapsed), shortID(result.JobID))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&regionFlag, "region", "r", "", "Region JSON or path to a region file")
	cmd.Flags().StringVarP(&qualityFlag, "quality", "q", "", "Quality tier (standard or high; default from config)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default <output_dir>/<name>_erased.mp4)")
	cmd.Flags().StringVarP(&userFlag, "user", "u", "", "User name when access control is enabled")
	cmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Frames reconstructed concurrently (default from config)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

// readPassword takes the password from ERASER_PASSWORD, a terminal prompt,
// or the first line of stdin, in that order.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if value, ok := os.LookupEnv(passwordEnv); ok {
		return value, nil
	}
	if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		raw, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no password supplied; set %s or pipe it on stdin", passwordEnv)
	}
	return line, nil
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight failed (run `eraser doctor` for details): %s", strings.Join(parts, "; "))
}
