// Package config loads the daemon settings. Values are layered: built-in
// defaults, then a JSON config file, then an env file, then the process
// environment. Command line flags are applied on top by the caller.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath  = "/etc/amplayd/config.json"
	DefaultEnvPath     = "/etc/default/amplayd"
	DefaultPlaylistDir = "/var/spool/blinken"
	DefaultDevice      = "/dev/am_usb"
	DefaultPIDFile     = "/run/amplayd.pid"
)

// Config is the daemon configuration.
type Config struct {
	// PlaylistDir is the directory the movies are played from.
	PlaylistDir string `json:"playlist_dir"`

	// Device is the display device file.
	Device string `json:"device"`

	// PIDFile is created at startup and removed on shutdown.
	PIDFile string `json:"pid_file"`

	// User to drop privileges to after startup. Empty keeps the current user.
	User string `json:"user"`

	// RetryInterval is the number of seconds between device reopen attempts.
	RetryInterval int `json:"retry_interval_sec"`

	// IdleInterval is the number of seconds to wait on an empty playlist.
	IdleInterval int `json:"idle_interval_sec"`

	Debug bool `json:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PlaylistDir:   DefaultPlaylistDir,
		Device:        DefaultDevice,
		PIDFile:       DefaultPIDFile,
		RetryInterval: 10,
		IdleInterval:  10,
	}
}

// LoadFile reads a JSON config file. Keys missing from the file keep their
// current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnvFile applies the AMPLAYD_* variables from a KEY=value env file.
func (c *Config) LoadEnvFile(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	return c.apply(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

// LoadEnv applies the AMPLAYD_* variables from the process environment.
func (c *Config) LoadEnv() error {
	return c.apply(os.LookupEnv)
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	for key, dst := range map[string]*string{
		"AMPLAYD_PLAYLIST_DIR": &c.PlaylistDir,
		"AMPLAYD_DEVICE":       &c.Device,
		"AMPLAYD_PID_FILE":     &c.PIDFile,
		"AMPLAYD_USER":         &c.User,
	} {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	for key, dst := range map[string]*int{
		"AMPLAYD_RETRY_INTERVAL": &c.RetryInterval,
		"AMPLAYD_IDLE_INTERVAL":  &c.IdleInterval,
	} {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := lookup("AMPLAYD_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AMPLAYD_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

// Validate checks that all required settings are present.
func (c Config) Validate() error {
	if c.PlaylistDir == "" {
		return fmt.Errorf("playlist directory not set")
	}
	if c.Device == "" {
		return fmt.Errorf("device not set")
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("invalid retry interval: %d", c.RetryInterval)
	}
	if c.IdleInterval <= 0 {
		return fmt.Errorf("invalid idle interval: %d", c.IdleInterval)
	}
	return nil
}

// Retry returns the device retry interval.
func (c Config) Retry() time.Duration {
	return time.Duration(c.RetryInterval) * time.Second
}

// Idle returns the empty playlist poll interval.
func (c Config) Idle() time.Duration {
	return time.Duration(c.IdleInterval) * time.Second
}
