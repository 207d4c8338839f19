package config

const (
	defaultKnowledgeBase  = "~/.config/sfc/file_types.json"
	defaultStateDir       = "~/.local/share/sfc"
	defaultLogDir         = "~/.local/share/sfc/logs"
	defaultQueueDepth     = 64
	defaultPollIntervalMS = 100
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			KnowledgeBase: defaultKnowledgeBase,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
		},
		Executor: Executor{
			Workers:        0, // auto-sized from available parallelism
			QueueDepth:     defaultQueueDepth,
			PollIntervalMS: defaultPollIntervalMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
