package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ClientConfig locates the document-generation endpoint of the rendering service.
type ClientConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Path    string `mapstructure:"path"`
}

var clientEnv = map[string]string{
	"docgen.base_url": "DOCGEN_BASE_URL",
	"docgen.path":     "DOCGEN_PATH",
}

// LoadClient reads the client settings from the environment.
func LoadClient() (*ClientConfig, error) {
	v := viper.New()
	v.SetDefault("docgen.base_url", "http://localhost:8080")
	v.SetDefault("docgen.path", "/api/v1/resume/pdf")
	v.AutomaticEnv()

	if err := bindEnv(v, clientEnv); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var wrapper struct {
		Docgen ClientConfig `mapstructure:"docgen"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	cfg := wrapper.Docgen

	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return nil, errors.New("docgen base url is required")
	}
	return &cfg, nil
}
