package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name     string       `json:"name"`
	Source   APIKeySource `json:"source"`
	IsSet    bool         `json:"is_set"`
	Masked   string       `json:"masked,omitempty"`
	Required bool         `json:"required"`
}

// CheckAPIKeys reports the status of every credential quantdesk can use.
// Yahoo Finance needs none.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	polygon := checkKey("Polygon API Key", cfg.Polygon.APIKey, EnvPrefix+"_POLYGON_API_KEY")
	polygon.Required = cfg.Data.Provider != "yahoo"
	return []KeyStatus{polygon}
}

func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{Name: name, IsSet: value != "", Source: KeySourceNone}
	if value == "" {
		return status
	}
	status.Source = KeySourceConfig
	if os.Getenv(envVar) != "" {
		status.Source = KeySourceEnv
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey shows only the first and last three characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}

// Redacted returns a copy of cfg with secrets masked.
func (c *Config) Redacted() Config {
	out := *c
	out.API.CORSOrigins = append([]string(nil), c.API.CORSOrigins...)
	if out.Polygon.APIKey != "" {
		out.Polygon.APIKey = maskKey(out.Polygon.APIKey)
	}
	return out
}
