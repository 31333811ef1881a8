package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               3001,
			MaxExternalClients: 4,
			ProgressWindow:     1000,
		},
		Library: LibraryConfig{
			Source:     SourceFilesystem,
			MusicDir:   "music",
			ArtworkDir: "data/artwork",
			WatchDelay: 2000,
		},
		MPD: MPDConfig{
			Host: "localhost",
			Port: 6600,
		},
		Engine: EngineConfig{
			TickInterval:     100,
			RestartThreshold: 0.10,
			MailboxSize:      256,
		},
		Audio: AudioConfig{
			SampleRate:      44100,
			ResampleQuality: 4,
		},
		Waveform: WaveformConfig{
			BucketsPerSecond: 10,
			Scale:            100,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Server
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxExternalClients == 0 {
		c.Server.MaxExternalClients = d.Server.MaxExternalClients
	}
	if c.Server.ProgressWindow == 0 {
		c.Server.ProgressWindow = d.Server.ProgressWindow
	}

	// Library
	if c.Library.Source == "" {
		c.Library.Source = d.Library.Source
	}
	if c.Library.MusicDir == "" && c.Library.Source == SourceFilesystem {
		c.Library.MusicDir = d.Library.MusicDir
	}
	if c.Library.ArtworkDir == "" {
		c.Library.ArtworkDir = d.Library.ArtworkDir
	}
	if c.Library.WatchDelay == 0 {
		c.Library.WatchDelay = d.Library.WatchDelay
	}

	// MPD
	if c.MPD.Host == "" {
		c.MPD.Host = d.MPD.Host
	}
	if c.MPD.Port == 0 {
		c.MPD.Port = d.MPD.Port
	}

	// Engine
	if c.Engine.TickInterval == 0 {
		c.Engine.TickInterval = d.Engine.TickInterval
	}
	if c.Engine.RestartThreshold == 0 {
		c.Engine.RestartThreshold = d.Engine.RestartThreshold
	}
	if c.Engine.MailboxSize == 0 {
		c.Engine.MailboxSize = d.Engine.MailboxSize
	}

	// Audio
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.ResampleQuality == 0 {
		c.Audio.ResampleQuality = d.Audio.ResampleQuality
	}

	// Waveform
	if c.Waveform.BucketsPerSecond == 0 {
		c.Waveform.BucketsPerSecond = d.Waveform.BucketsPerSecond
	}
	if c.Waveform.Scale == 0 {
		c.Waveform.Scale = d.Waveform.Scale
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = d.Log.MaxAgeDays
	}
}
