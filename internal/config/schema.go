// Package config loads wavequeue settings from TOML files and the environment.
package config

import "time"

// Library source kinds.
const (
	SourceFilesystem = "filesystem"
	SourceMPD        = "mpd"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Library  LibraryConfig  `toml:"library"`
	MPD      MPDConfig      `toml:"mpd"`
	Engine   EngineConfig   `toml:"engine"`
	Audio    AudioConfig    `toml:"audio"`
	Waveform WaveformConfig `toml:"waveform"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds HTTP and Socket.io settings.
type ServerConfig struct {
	Port               int    `toml:"port"`
	StaticDir          string `toml:"static_dir"`
	MaxExternalClients int    `toml:"max_external_clients"`
	ProgressWindow     int    `toml:"progress_window"` // milliseconds
}

// LibraryConfig selects where tracks come from and how they are cached.
type LibraryConfig struct {
	Source     string `toml:"source"` // "filesystem" or "mpd"
	MusicDir   string `toml:"music_dir"`
	CacheDB    string `toml:"cache_db"` // empty disables the snapshot cache
	ArtworkDir string `toml:"artwork_dir"`
	Watch      bool   `toml:"watch"`
	WatchDelay int    `toml:"watch_delay"` // milliseconds
}

// MPDConfig holds Music Player Daemon connection settings.
type MPDConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	MusicDir string `toml:"music_dir"` // MPD's music_directory, for opening streams
}

// EngineConfig tunes the queue engine.
type EngineConfig struct {
	TickInterval     int     `toml:"tick_interval"` // milliseconds
	RestartThreshold float64 `toml:"restart_threshold"`
	MailboxSize      int     `toml:"mailbox_size"`
}

// AudioConfig holds speaker output settings.
type AudioConfig struct {
	SampleRate      int     `toml:"sample_rate"`
	ResampleQuality int     `toml:"resample_quality"`
	Volume          float64 `toml:"volume"`
}

// WaveformConfig holds amplitude extraction settings.
type WaveformConfig struct {
	Disabled         bool `toml:"disabled"`
	BucketsPerSecond int  `toml:"buckets_per_second"`
	Scale            int  `toml:"scale"`
}

// LogConfig holds logging settings. File enables rotating file output.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// ProgressWindowDuration returns ProgressWindow as a time.Duration.
func (c ServerConfig) ProgressWindowDuration() time.Duration {
	return time.Duration(c.ProgressWindow) * time.Millisecond
}

// WatchDelayDuration returns WatchDelay as a time.Duration.
func (c LibraryConfig) WatchDelayDuration() time.Duration {
	return time.Duration(c.WatchDelay) * time.Millisecond
}

// TickDuration returns TickInterval as a time.Duration.
func (c EngineConfig) TickDuration() time.Duration {
	return time.Duration(c.TickInterval) * time.Millisecond
}
