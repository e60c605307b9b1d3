package config

const (
	defaultServerContext     = "arcgis"
	defaultTokenExpiration   = 60
	defaultRequestTimeout    = 300
	defaultWorkers           = 2
	defaultExtension         = "sd"
	defaultPollInterval      = 2
	defaultMaxPollRounds     = 0
	defaultMaxWait           = 7200
	defaultStateDir          = "~/.local/share/sdpublish"
	defaultLogDir            = "~/.local/share/sdpublish/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	maxWorkers               = 64
	defaultRefererHostPrefix = "sdpublish"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Context:         defaultServerContext,
			TokenExpiration: defaultTokenExpiration,
			RequestTimeout:  defaultRequestTimeout,
		},
		Publish: Publish{
			Workers:       defaultWorkers,
			Extension:     defaultExtension,
			PollInterval:  defaultPollInterval,
			MaxPollRounds: defaultMaxPollRounds,
			MaxWait:       defaultMaxWait,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
