package main

import (
	"fmt"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/spf13/cobra"

	"eraser/internal/mask"
	"eraser/internal/media/source"
	"eraser/internal/region"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var (
		regionFlag string
		atFlag     float64
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "preview <input>",
		Short: "Render the resolved mask over one frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			spec, err := region.Load(regionFlag)
			if err != nil {
				return fmt.Errorf("load region: %w", err)
			}
			opts, err := ctx.sourceOptions()
			if err != nil {
				return err
			}
			src, err := source.Open(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			defer src.Close()
			info := src.Info()

			at := atFlag
			if fh, ok := spec.(region.Freehand); ok && !cmd.Flags().Changed("at") {
				at = fh.ReferenceTimestamp
			}

			timeline, err := mask.NewResolver(cfg).Resolve(spec, mask.Geometry{
				Width:    info.Width,
				Height:   info.Height,
				Duration: info.DurationSeconds,
			})
			if err != nil {
				return err
			}
			f, err := src.Seek(cmd.Context(), at)
			if err != nil {
				return err
			}
			m := timeline.At(f.Timestamp)

			out := strings.TrimSpace(outputFlag)
			if out == "" {
				out = defaultImagePath(args[0], "preview", f.Index)
			}
			if err := imgio.Save(out, mask.Overlay(f.RGBA(), m, mask.HighlightColor), imgio.PNGEncoder()); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preview of frame %d (%d masked pixels) written to %s\n", f.Index, m.Count(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&regionFlag, "region", "r", "", "Region JSON or path to a region file")
	cmd.Flags().Float64Var(&atFlag, "at", 0, "Timestamp in seconds (default: freehand reference time, else 0)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "PNG destination (default <input>_preview<N>.png)")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}
