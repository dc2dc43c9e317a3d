package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir        string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS         float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst       int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit            string        `mapstructure:"BODY_LIMIT"`
	SessionSecret        string        `mapstructure:"SESSION_SECRET"`
	SessionTTL           time.Duration `mapstructure:"SESSION_TTL"`
	WalkInFallbackProfID int64         `mapstructure:"WALKIN_FALLBACK_PROFESSIONAL_ID"`
	UploadDir            string        `mapstructure:"UPLOAD_DIR"`
	BackupDir            string        `mapstructure:"BACKUP_DIR"`
	TLSEnabled           bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile          string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile           string        `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "production")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:8000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("WALKIN_FALLBACK_PROFESSIONAL_ID", 1)
	v.SetDefault("UPLOAD_DIR", "./data/uploads")
	v.SetDefault("BACKUP_DIR", "./data/backups")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("SESSION_TTL")
	v.BindEnv("WALKIN_FALLBACK_PROFESSIONAL_ID")
	v.BindEnv("UPLOAD_DIR")
	v.BindEnv("BACKUP_DIR")
	v.BindEnv("TLS_ENABLED")
	v.BindEnv("TLS_CERT_FILE")
	v.BindEnv("TLS_KEY_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
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
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests without a session are served as the dev admin.")
		log.Println("WARNING: Set ENV=production and SESSION_SECRET before going live.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey returns the HMAC key used for session tokens. Development
// without SESSION_SECRET falls back to a fixed key so restarts keep sessions.
func (c *Config) SigningKey() []byte {
	if c.SessionSecret == "" && c.IsDev() {
		return []byte("clinica-development-session-secret")
	}
	return []byte(c.SessionSecret)
}

// Validate checks that the configuration is safe to run. Outside development
// SESSION_SECRET must be set and at least 32 bytes long.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required when ENV=%q", c.Env)
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.SessionSecret))
		}
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.WalkInFallbackProfID <= 0 {
		return fmt.Errorf("WALKIN_FALLBACK_PROFESSIONAL_ID must be positive, got %d", c.WalkInFallbackProfID)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
