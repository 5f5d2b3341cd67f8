package config

const (
	defaultAPIBaseURL          = "http://localhost:8000"
	defaultRequestTimeout      = 30
	defaultPollIntervalMillis  = 2000
	minPollIntervalMillis      = 100
	defaultRetryMaxAttempts    = 1
	maxRetryAttempts           = 10
	defaultRetryInitialBackoff = 500
	defaultRetryMaxBackoff     = 5000
	defaultRetryMultiplier     = 2.0
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultReportingEnv        = "production"
	defaultConfigPath          = "~/.config/podvision/config.toml"
	projectConfigName          = "podvision.toml"
	envPrefix                  = "PODVISION"

	maleAvatarModel   = "male_avatar.glb"
	femaleAvatarModel = "female_avatar.glb"
)

func defaultAvatarModels() []string {
	return []string{maleAvatarModel, femaleAvatarModel}
}

func defaultSpeakerMapping() map[string]string {
	return map[string]string{
		"SPEAKER_00": maleAvatarModel,
		"SPEAKER_01": femaleAvatarModel,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultAPIBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Polling: Polling{
			IntervalMillis: defaultPollIntervalMillis,
		},
		Retry: Retry{
			MaxAttempts:          defaultRetryMaxAttempts,
			InitialBackoffMillis: defaultRetryInitialBackoff,
			MaxBackoffMillis:     defaultRetryMaxBackoff,
			Multiplier:           defaultRetryMultiplier,
		},
		Avatars: Avatars{
			Models:         defaultAvatarModels(),
			DefaultMapping: defaultSpeakerMapping(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Reporting: Reporting{
			Environment: defaultReportingEnv,
		},
	}
}
