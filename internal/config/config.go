package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	DBAcquireTimeout    time.Duration `mapstructure:"DB_ACQUIRE_TIMEOUT"`
	FacilityTokenSecret string        `mapstructure:"FACILITY_TOKEN_SECRET"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL         string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	ReportRowCap        int           `mapstructure:"REPORT_ROW_CAP"`
	BatchMaxWorkers     int           `mapstructure:"BATCH_MAX_WORKERS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_ACQUIRE_TIMEOUT", "10s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REPORT_ROW_CAP", 2000)
	v.SetDefault("BATCH_MAX_WORKERS", 8)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DB_ACQUIRE_TIMEOUT")
	v.BindEnv("FACILITY_TOKEN_SECRET")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("REPORT_ROW_CAP")
	v.BindEnv("BATCH_MAX_WORKERS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// mode the facility-token secret and an auth issuer are required so that
// opaque facility tokens and bearer tokens are actually verified.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.FacilityTokenSecret == "" {
			return fmt.Errorf("FACILITY_TOKEN_SECRET is required when ENV is not development")
		}
		if c.AuthIssuer == "" {
			return fmt.Errorf("AUTH_ISSUER is required when ENV is not development")
		}
	}
	if c.ReportRowCap <= 0 {
		return fmt.Errorf("REPORT_ROW_CAP must be positive, got %d", c.ReportRowCap)
	}
	if c.BatchMaxWorkers <= 0 {
		return fmt.Errorf("BATCH_MAX_WORKERS must be positive, got %d", c.BatchMaxWorkers)
	}
	return nil
}
