package directauth

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// defaultIdentityKey mirrors the envDefault on Config.IdentityKey for
// configs built as struct literals.
const defaultIdentityKey = "directauth.user_id"

// Config carries the credentials and scoping for one client instance.
// BackendURL and BackendKey are required for online operation; a client
// constructed without them still works in offline mode. When RedisURL is
// set, the remembered identity lives in Redis under IdentityKey instead of
// in process memory.
type Config struct {
	BackendURL  string `env:"DIRECTAUTH_URL"`
	BackendKey  string `env:"DIRECTAUTH_KEY"`
	AppSlug     string `env:"DIRECTAUTH_APP_SLUG"`
	SiteURL     string `env:"DIRECTAUTH_SITE_URL"`
	RedisURL    string `env:"DIRECTAUTH_REDIS_URL"`
	IdentityKey string `env:"DIRECTAUTH_IDENTITY_KEY" envDefault:"directauth.user_id"`
}

// LoadConfig reads the configuration from the environment, loading a .env
// file first when one is present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}
