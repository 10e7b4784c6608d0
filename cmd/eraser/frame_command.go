package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/spf13/cobra"

	"eraser/internal/media/source"
)

func newFrameCommand(ctx *commandContext) *cobra.Command {
	var (
		atFlag     float64
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "frame <input>",
		Short: "Extract one frame as a PNG, for drawing a freehand region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.sourceOptions()
			if err != nil {
				return err
			}
			src, err := source.Open(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			defer src.Close()

			f, err := src.Seek(cmd.Context(), atFlag)
			if err != nil {
				return err
			}
			out := strings.TrimSpace(outputFlag)
			if out == "" {
				out = defaultImagePath(args[0], "frame", f.Index)
			}
			if err := imgio.Save(out, f.RGBA(), imgio.PNGEncoder()); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Frame %d (%.3fs) written to %s\n", f.Index, f.Timestamp, out)
			return nil
		},
	}

	cmd.Flags().Float64Var(&atFlag, "at", 0, "Timestamp in seconds")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "PNG destination (default <input>_frame<N>.png)")
	return cmd
}

// defaultImagePath places a PNG next to the input, e.g. clip_frame42.png.
func defaultImagePath(input, label string, index int) string {
	ext := filepath.Ext(input)
	return fmt.Sprintf("%s_%s%d.png", strings.TrimSuffix(input, ext), label, index)
}
