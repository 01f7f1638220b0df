package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigPath returns the default configuration file path: ~/.lauruschat/config.json.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lauruschat/config.json"
	}
	return filepath.Join(home, ".lauruschat", "config.json")
}

// DataDir returns the lauruschat data directory: ~/.lauruschat.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lauruschat"
	}
	return filepath.Join(home, ".lauruschat")
}

// Load reads and parses the config file at path.
// If path is empty, ConfigPath() is used. A missing file yields defaults.
// Secrets may be supplied or overridden via environment variables.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(DataDir(), "conversations.db")
	}

	return &cfg, nil
}

// Save writes cfg to path as indented JSON.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides secret-bearing fields from the environment so deployments
// can keep credentials out of the config file.
func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"OPENAI_API_KEY":        &cfg.OpenAI.APIKey,
		"OPENAI_ASSISTANT_ID":   &cfg.OpenAI.AssistantID,
		"WHATSAPP_ACCESS_TOKEN": &cfg.WhatsApp.AccessToken,
		"WHATSAPP_VERIFY_TOKEN": &cfg.WhatsApp.VerifyToken,
		"PHONE_NUMBER_ID":       &cfg.WhatsApp.PhoneNumberID,
		"WHATSAPP_API_VERSION":  &cfg.WhatsApp.APIVersion,
		"GOOGLE_API_KEY":        &cfg.Search.APIKey,
		"GOOGLE_CSE_ID":         &cfg.Search.CSEID,
	}
	for name, field := range overrides {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
}
