package config

const (
	defaultDataDir     = "~/.local/share/sweep/scans"
	defaultCatalogPath = "~/.local/share/sweep/catalog.db"
	defaultLogDir      = "~/.local/share/sweep/logs"
	defaultDisplayFPS  = 5.0
	defaultLookahead   = 2
	defaultLookbehind  = 1
	defaultStreamBind  = "127.0.0.1:7433"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			CatalogPath: defaultCatalogPath,
			LogDir:      defaultLogDir,
		},
		Playback: Playback{
			SecondsPerSecond: 0,
			DisplayFPS:       defaultDisplayFPS,
			Robust:           false,
			Cyclable:         true,
		},
		Cache: Cache{
			Lookahead:  defaultLookahead,
			Lookbehind: defaultLookbehind,
		},
		Stream: Stream{
			Enabled: false,
			Listen:  defaultStreamBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
