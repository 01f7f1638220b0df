// Package config defines and loads the lauruschat configuration.
package config

// Config is the root configuration object persisted at ~/.lauruschat/config.json.
type Config struct {
	OpenAI   OpenAIConfig   `json:"openai"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Search   SearchConfig   `json:"search"`
	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
}

// OpenAIConfig holds credentials for the hosted assistant service.
type OpenAIConfig struct {
	APIKey      string `json:"apiKey"`
	AssistantID string `json:"assistantId"`
	APIBase     string `json:"apiBase"`
	// SummaryModel is the chat model used to synthesise search results.
	// It needs a large context window to hold scraped page text.
	SummaryModel string `json:"summaryModel"`
}

// WhatsAppConfig holds WhatsApp Cloud API credentials.
type WhatsAppConfig struct {
	Enabled       bool   `json:"enabled"`
	AccessToken   string `json:"accessToken"`
	VerifyToken   string `json:"verifyToken"`
	PhoneNumberID string `json:"phoneNumberId"`
	APIVersion    string `json:"apiVersion"`
}

// SearchConfig holds Google Custom Search Engine credentials.
type SearchConfig struct {
	APIKey       string `json:"apiKey"`
	CSEID        string `json:"cseId"`
	MaxResults   int    `json:"maxResults"`
	MaxPageChars int    `json:"maxPageChars"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `json:"port"`
}

// StorageConfig holds conversation store settings.
type StorageConfig struct {
	Path          string `json:"path"`
	RetentionDays int    `json:"retentionDays"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		OpenAI: OpenAIConfig{
			APIBase:      "https://api.openai.com/v1",
			SummaryModel: "gpt-4o",
		},
		WhatsApp: WhatsAppConfig{
			Enabled:    true,
			APIVersion: "v21.0",
		},
		Search: SearchConfig{
			MaxResults:   3,
			MaxPageChars: 30000,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Storage: StorageConfig{
			RetentionDays: 30,
		},
	}
}
