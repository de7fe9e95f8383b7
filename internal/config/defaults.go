package config

const (
	defaultStoriesDir = "stories"
	defaultOutputDir  = "output"
	defaultAssetsDir  = "assets"
	defaultStagingDir = "~/.local/share/storyreel/staging"
	defaultStateDir   = "~/.local/share/storyreel"
	defaultLogDir     = "~/.local/share/storyreel/logs"

	defaultFormat     = "landscape"
	defaultVideoCodec = "libx264"
	defaultAudioCodec = "aac"

	// -4.4 dB ~= 0.6 linear, the channel's background attenuation;
	// -1.4 dB ~= 0.85 linear master volume.
	defaultBackgroundVolumeDB = -4.4
	defaultMasterVolumeDB     = -1.4

	defaultParallelism       = 2
	defaultDurationTolerance = 0.25

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StoriesDir: defaultStoriesDir,
			OutputDir:  defaultOutputDir,
			AssetsDir:  defaultAssetsDir,
			StagingDir: defaultStagingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Output: Output{
			Format:     defaultFormat,
			VideoCodec: defaultVideoCodec,
			AudioCodec: defaultAudioCodec,
		},
		Audio: Audio{
			BackgroundVolumeDB: defaultBackgroundVolumeDB,
			MasterVolumeDB:     defaultMasterVolumeDB,
		},
		Pipeline: Pipeline{
			Parallelism:              defaultParallelism,
			DurationToleranceSeconds: defaultDurationTolerance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
