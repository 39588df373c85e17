package config

const (
	defaultDataDir          = "~/.local/share/scribe/data"
	defaultLogDir           = "~/.local/share/scribe/logs"
	defaultBind             = "127.0.0.1:8080"
	defaultYtDlpBin         = "yt-dlp"
	defaultPlayerClient     = "web_safari"
	defaultRemoteComponents = "ejs:github"
	defaultSubLang          = "en.*"
	defaultTimeoutSec       = 180
	defaultAutoTextMaxBytes = 200000
	defaultTTLSec           = 3600
	defaultDedupWindow      = 6
	defaultInfoCacheTTLSec  = 300
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			Bind:    defaultBind,
		},
		YtDlp: YtDlp{
			Bin:              defaultYtDlpBin,
			PlayerClient:     defaultPlayerClient,
			RemoteComponents: defaultRemoteComponents,
			SubLang:          defaultSubLang,
			TimeoutSec:       defaultTimeoutSec,
		},
		Transcripts: Transcripts{
			AutoTextMaxBytes: defaultAutoTextMaxBytes,
			DefaultTTLSec:    defaultTTLSec,
			DedupWindow:      defaultDedupWindow,
		},
		InfoCache: InfoCache{
			TTLSec: defaultInfoCacheTTLSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
