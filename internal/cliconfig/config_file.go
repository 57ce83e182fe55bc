package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Port            string `toml:"port"`
	Baud            int    `toml:"baud"`
	ReadTimeout     string `toml:"read_timeout"`
	InitTimeout     string `toml:"init_timeout"`
	ResponseTimeout string `toml:"response_timeout"`
	QueueSize       int    `toml:"queue_size"`
	LogLevel        string `toml:"log_level"`
	StatusFile      string `toml:"status_file"`
	Watch           string `toml:"watch"`
	HTTPAddr        string `toml:"http_addr"`
	CORSOrigins     string `toml:"cors_origins"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.b42link/config.toml, or "" if there is no
// home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".b42link", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.Port)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("status-file", fc.StatusFile, &cfg.StatusFile)
	s.setString("watch", fc.Watch, &cfg.Watch)
	s.setString("http", fc.HTTPAddr, &cfg.HTTPAddr)
	s.setString("cors-origins", fc.CORSOrigins, &cfg.CORSOrigins)

	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("init-timeout", fc.InitTimeout, &cfg.InitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("response-timeout", fc.ResponseTimeout, &cfg.ResponseTimeout); err != nil {
		return err
	}

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
