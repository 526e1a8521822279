package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// APIKeyEnv is the environment variable holding the service credential. It
// is never written to the config file.
const APIKeyEnv = "TRANSLIVE_API_KEY"

type Config struct {
	LogLevel string        `json:"log_level"`
	Audio    AudioConfig   `json:"audio"`
	Service  ServiceConfig `json:"service"`
}

type AudioConfig struct {
	InputDeviceID  string `json:"input_device_id"`
	OutputDeviceID string `json:"output_device_id"`
	// FrameSize is the capture window in samples; 4096 at 16kHz is ~256ms
	// per outbound frame.
	FrameSize int `json:"frame_size"`
}

type ServiceConfig struct {
	URL                 string `json:"url"`
	Voice               string `json:"voice"`
	SourceLanguage      string `json:"source_language"`
	TargetLanguage      string `json:"target_language"`
	InputTranscription  bool   `json:"input_transcription"`
	OutputTranscription bool   `json:"output_transcription"`
}

// Instruction renders the natural-language system instruction sent at setup.
func (s ServiceConfig) Instruction() string {
	return fmt.Sprintf(
		"You are a live interpreter. Translate everything the speaker says from %s into %s. "+
			"Speak only the translation, nothing else.",
		s.SourceLanguage, s.TargetLanguage)
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	// Default config
	cfg := &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDeviceID:  "",
			OutputDeviceID: "",
			FrameSize:      4096,
		},
		Service: ServiceConfig{
			URL:                 "wss://api.translive.dev/v1/live",
			Voice:               "aura",
			SourceLanguage:      "English",
			TargetLanguage:      "Spanish",
			InputTranscription:  true,
			OutputTranscription: true,
		},
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Audio.FrameSize <= 0 {
		return nil, fmt.Errorf("frame_size must be positive, got %d", cfg.Audio.FrameSize)
	}

	return cfg, nil
}

// APIKey returns the service credential from the environment.
func APIKey() (string, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s must be set", APIKeyEnv)
	}
	return key, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "translive", "config.json")
}

// DataPath returns the platform-specific directory for saved transcripts
func DataPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "translive")
}
