package config

const (
	defaultWorkDir            = "~/.local/share/eraser/work"
	defaultOutputDir          = "~/Videos/erased"
	defaultLogDir             = "~/.local/share/eraser/logs"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultDilateKernel       = 7
	defaultDilateIterations   = 3
	defaultSegmentWidthRatio  = 0.2
	defaultSegmentHeightRatio = 0.12
	defaultSegmentMarginRatio = 0.02
	defaultInpaintEngine      = "telea"
	defaultInpaintRadius      = 5
	defaultQuality            = "standard"
	defaultCodec              = "libx264"
	defaultAudioCodec         = "copy"
	defaultStandardBitrate    = "3000k"
	defaultStandardPreset     = "ultrafast"
	defaultHighBitrate        = "8000k"
	defaultHighPreset         = "medium"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Mask: Mask{
			DilateKernel:       defaultDilateKernel,
			DilateIterations:   defaultDilateIterations,
			SegmentWidthRatio:  defaultSegmentWidthRatio,
			SegmentHeightRatio: defaultSegmentHeightRatio,
			SegmentMarginRatio: defaultSegmentMarginRatio,
		},
		Inpaint: Inpaint{
			Engine: defaultInpaintEngine,
			Radius: defaultInpaintRadius,
		},
		Pipeline: Pipeline{
			Workers: 1,
		},
		Quality: Quality{
			Default: defaultQuality,
			Standard: Tier{
				Codec:      defaultCodec,
				Bitrate:    defaultStandardBitrate,
				Preset:     defaultStandardPreset,
				AudioCodec: defaultAudioCodec,
			},
			High: Tier{
				Codec:      defaultCodec,
				Bitrate:    defaultHighBitrate,
				Preset:     defaultHighPreset,
				AudioCodec: defaultAudioCodec,
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
