package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"eraser/internal/media/source"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <input>",
		Short: "Show the stream properties of a video",
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

			info := src.Info()
			size := "-"
			if info.SizeBytes > 0 {
				size = humanize.Bytes(uint64(info.SizeBytes))
			}
			fields := [][2]string{
				{"Path", info.Path},
				{"Codec", fallback(info.Codec, "-")},
				{"Resolution", fmt.Sprintf("%dx%d", info.Width, info.Height)},
				{"Frame rate", fmt.Sprintf("%s (%.3f fps)", info.FrameRate.String(), info.FPS())},
				{"Duration", formatSeconds(info.DurationSeconds)},
				{"Frames", humanize.Comma(int64(info.FrameCount))},
				{"Rotation", fmt.Sprintf("%d°", info.Rotation)},
				{"Audio", yesNo(info.HasAudio)},
				{"Size", size},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(fields))
			return nil
		},
	}
}
