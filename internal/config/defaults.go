package config

const (
	defaultConfigPath          = "~/.config/unwrapped/config.toml"
	defaultDataDir             = "~/.local/share/unwrapped"
	defaultOutputDir           = "~/.local/share/unwrapped/renders"
	defaultLogDir              = "~/.local/share/unwrapped/logs"
	defaultProfilesDir         = "~/.local/share/unwrapped/profiles"
	defaultAPIBind             = "127.0.0.1:8080"
	defaultServiceURL          = "http://127.0.0.1:8080"
	defaultPollIntervalMS      = 1000
	defaultRequestTimeout      = 15
	defaultJobTimeout          = 900
	defaultRendererCommand     = "npx"
	defaultEntryPoint          = "remotion/index.ts"
	defaultCompositionID       = "Main"
	defaultRateLimitRPS        = 2
	defaultRateLimitBurst      = 5
	defaultQueuePollInterval   = 2
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	minPollIntervalMS          = 100
)

var defaultRendererArgs = []string{"remotion", "render"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Profiles: Profiles{
			Source: ProfileSourceDir,
			Dir:    defaultProfilesDir,
		},
		Render: Render{
			ServiceURL:      defaultServiceURL,
			PollIntervalMS:  defaultPollIntervalMS,
			RequestTimeout:  defaultRequestTimeout,
			JobTimeout:      defaultJobTimeout,
			RendererCommand: defaultRendererCommand,
			RendererArgs:    append([]string(nil), defaultRendererArgs...),
			EntryPoint:      defaultEntryPoint,
			CompositionID:   defaultCompositionID,
		},
		Server: Server{
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   defaultRateLimitRPS,
			RateLimitBurst: defaultRateLimitBurst,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyTimeout,
			RenderCompleted: true,
			RenderFailed:    true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
