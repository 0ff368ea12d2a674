package config

const (
	defaultConfigPath            = "~/.config/overlay/config.toml"
	defaultRendererName          = "renderer"
	defaultRendererBinary        = "overlayd"
	defaultSpawner               = SpawnerExec
	defaultSystemdUnit           = "overlay-renderer.service"
	defaultStateDir              = "~/.local/share/overlay"
	defaultLogDir                = "~/.local/share/overlay/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 14
	defaultNotifyRequestTimeout  = 10
	defaultHistoryFile           = "history.db"
	defaultViewWidth             = 48
	defaultViewAccentColor       = "#4CAF50"
	runtimeDirName               = "overlay"
	ntfyTopicEnv                 = "OVERLAY_NTFY_TOPIC"
	runtimeDirEnv                = "XDG_RUNTIME_DIR"
	minViewWidth                 = 20
	maxNotifyRequestTimeoutInSec = 300
)

// Spawner names accepted by renderer.spawner.
const (
	SpawnerExec    = "exec"
	SpawnerSystemd = "systemd"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Renderer: Renderer{
			Name:          defaultRendererName,
			Path:          defaultRendererBinary,
			AppendDisplay: true,
			Spawner:       defaultSpawner,
			SystemdUnit:   defaultSystemdUnit,
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
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		History: History{
			Enabled: true,
		},
		View: View{
			Width:       defaultViewWidth,
			Color:       true,
			AccentColor: defaultViewAccentColor,
		},
	}
}
