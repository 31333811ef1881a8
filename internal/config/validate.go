package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := c.Library.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if c.Library.Source == SourceMPD {
		if err := c.MPD.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("mpd: %w", err))
		}
	}
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if err := c.Audio.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if err := c.Waveform.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("waveform: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// Validate checks ServerConfig for errors.
func (c *ServerConfig) Validate() error {
	if !validPort(c.Port) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxExternalClients < 0 {
		return errors.New("max_external_clients must be non-negative")
	}
	if c.ProgressWindow < 0 {
		return errors.New("progress_window must be non-negative")
	}
	return nil
}

// Validate checks LibraryConfig for errors.
func (c *LibraryConfig) Validate() error {
	switch c.Source {
	case SourceFilesystem:
		if c.MusicDir == "" {
			return errors.New("music_dir is required for the filesystem source")
		}
	case SourceMPD:
	default:
		return fmt.Errorf("invalid source: %s (must be filesystem or mpd)", c.Source)
	}
	if c.WatchDelay < 0 {
		return errors.New("watch_delay must be non-negative")
	}
	return nil
}

// Validate checks MPDConfig for errors.
func (c *MPDConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if !validPort(c.Port) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Validate checks EngineConfig for errors.
func (c *EngineConfig) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("tick_interval must be positive")
	}
	if c.RestartThreshold <= 0 || c.RestartThreshold >= 1 {
		return errors.New("restart_threshold must be between 0 and 1")
	}
	if c.MailboxSize < 0 {
		return errors.New("mailbox_size must be non-negative")
	}
	return nil
}

// Validate checks AudioConfig for errors.
func (c *AudioConfig) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 384000 {
		return fmt.Errorf("invalid sample_rate: %d", c.SampleRate)
	}
	if c.ResampleQuality < 1 || c.ResampleQuality > 6 {
		return errors.New("resample_quality must be between 1 and 6")
	}
	return nil
}

// Validate checks WaveformConfig for errors.
func (c *WaveformConfig) Validate() error {
	if c.BucketsPerSecond <= 0 {
		return errors.New("buckets_per_second must be positive")
	}
	if c.Scale <= 0 {
		return errors.New("scale must be positive")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %s", c.Level)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return errors.New("rotation limits must be non-negative")
	}
	return nil
}
