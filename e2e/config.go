package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_BASE_URL points at a running backend; empty skips the suite.
	BaseURL string `envconfig:"E2E_BASE_URL"`
	// E2E_PASSWORD overrides the throwaway account password.
	Password string `envconfig:"E2E_PASSWORD" default:"Chatlink-e2e-1"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
