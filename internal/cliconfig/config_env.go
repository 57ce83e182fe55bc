package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (B42_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", os.Getenv("B42_PORT"), &cfg.Port)
	s.setString("log-level", os.Getenv("B42_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("status-file", os.Getenv("B42_STATUS_FILE"), &cfg.StatusFile)
	s.setString("watch", os.Getenv("B42_WATCH"), &cfg.Watch)
	s.setString("http", os.Getenv("B42_HTTP_ADDR"), &cfg.HTTPAddr)
	s.setString("cors-origins", os.Getenv("B42_CORS_ORIGINS"), &cfg.CORSOrigins)

	if err := s.setDuration("read-timeout", os.Getenv("B42_READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("init-timeout", os.Getenv("B42_INIT_TIMEOUT"), &cfg.InitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("response-timeout", os.Getenv("B42_RESPONSE_TIMEOUT"), &cfg.ResponseTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("baud", os.Getenv("B42_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-size", os.Getenv("B42_QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}

	return nil
}
