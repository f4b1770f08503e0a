// Package config loads service configuration from the environment and
// optional yaml settings files.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the environment-driven service configuration.
type Config struct {
	HTTP struct {
		Addr            string        `env:"HTTP_ADDR,default=:8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=10s"`
	}

	Supabase struct {
		URL       string `env:"SUPABASE_URL,required"`
		AnonKey   string `env:"SUPABASE_ANON_KEY,required"`
		JWTSecret string `env:"SUPABASE_JWT_SECRET"`
		Resilient bool   `env:"SUPABASE_RESILIENT,default=true"`
	}

	// Database enables the direct-Postgres content store when set;
	// otherwise content persistence goes through Supabase.
	Database struct {
		URL           string `env:"DATABASE_URL"`
		MigrationsDir string `env:"MIGRATIONS_DIR,default=migrations"`
	}

	Auth struct {
		ResetRedirectURL string `env:"AUTH_RESET_REDIRECT_URL"`
	}

	Refresh struct {
		// Schedule is a cron expression for the periodic
		// approved-content refresh.
		Schedule string `env:"REFRESH_SCHEDULE,default=@every 5m"`
		// Realtime also refreshes on realtime row changes.
		Realtime bool `env:"REFRESH_REALTIME,default=false"`
	}

	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS,default=10"`
		Burst int     `env:"RATE_LIMIT_BURST,default=20"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,default=info"`
	}

	SettingsPath string `env:"SETTINGS_PATH,default=config/app.yaml"`
}

// Load reads the configuration from the environment. A .env file in
// the working directory is applied first when present.
func Load() (*Config, error) {
	godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
