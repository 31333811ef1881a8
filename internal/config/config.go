package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.wavequeuerc, $XDG_CONFIG_HOME/wavequeue/config.toml
// (XDG_CONFIG_HOME defaults to ~/.config).
func Load() (*Config, error) {
	cfg := &Config{}

	if path := findConfigFile(); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".wavequeuerc"),
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "wavequeue", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies WAVEQUEUE_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	// Server
	envInt("WAVEQUEUE_PORT", &cfg.Server.Port)
	envString("WAVEQUEUE_STATIC_DIR", &cfg.Server.StaticDir)

	// Library
	envString("WAVEQUEUE_LIBRARY_SOURCE", &cfg.Library.Source)
	envString("WAVEQUEUE_MUSIC_DIR", &cfg.Library.MusicDir)
	envString("WAVEQUEUE_CACHE_DB", &cfg.Library.CacheDB)
	if v := os.Getenv("WAVEQUEUE_LIBRARY_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Library.Watch = b
		}
	}

	// MPD
	envString("WAVEQUEUE_MPD_HOST", &cfg.MPD.Host)
	envInt("WAVEQUEUE_MPD_PORT", &cfg.MPD.Port)
	envString("WAVEQUEUE_MPD_PASSWORD", &cfg.MPD.Password)
	envString("WAVEQUEUE_MPD_MUSIC_DIR", &cfg.MPD.MusicDir)

	// Log
	envString("WAVEQUEUE_LOG_LEVEL", &cfg.Log.Level)
	envString("WAVEQUEUE_LOG_FILE", &cfg.Log.File)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
