package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Port:            "/dev/ttyACM0",
				Baud:            57600,
				ReadTimeout:     "100ms",
				InitTimeout:     "2s",
				ResponseTimeout: "5s",
				QueueSize:       64,
				LogLevel:        "debug",
				StatusFile:      "/tmp/status.json",
				Watch:           "frames.toml",
				HTTPAddr:        "127.0.0.1:9042",
				CORSOrigins:     "http://localhost:3000",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Port:            "/dev/ttyACM0",
				Baud:            57600,
				ReadTimeout:     100 * time.Millisecond,
				InitTimeout:     2 * time.Second,
				ResponseTimeout: 5 * time.Second,
				QueueSize:       64,
				LogLevel:        "debug",
				StatusFile:      "/tmp/status.json",
				Watch:           "frames.toml",
				HTTPAddr:        "127.0.0.1:9042",
				CORSOrigins:     "http://localhost:3000",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Port: "/dev/ttyACM0",
				Baud: 57600,
			},
			changed: map[string]bool{"baud": true},
			initial: Config{Baud: 9600},
			expected: Config{
				Port: "/dev/ttyACM0",
				Baud: 9600, // unchanged because flag was set
			},
		},
		{
			name:       "zero values leave defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{ResponseTimeout: "forever"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
port = "socket://bench-rig:10001"
baud = 9600
response_timeout = "10s"
queue_size = 32
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	want := FileConfig{
		Port:            "socket://bench-rig:10001",
		Baud:            9600,
		ResponseTimeout: "10s",
		QueueSize:       32,
	}
	if fc != want {
		t.Errorf("LoadFileConfig() = %+v, want %+v", fc, want)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
port = "/dev/ttyUSB0"
this is not valid toml
`
	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	if _, err := LoadFileConfig(configPath); err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path != "" && !strings.Contains(path, ".b42link") {
		t.Errorf("DefaultConfigPath() = %v, should contain .b42link", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}
	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
