package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the full runtime configuration, populated from the
// environment. Every field has a default so the server can start
// against a local Postgres with nothing set but credentials.
type Config struct {
	Port string `env:"PORT" env-default:"8000"`

	DatabaseURL string `env:"DATABASE_URL" env-default:""`
	DBHost      string `env:"POSTGRES_HOST" env-default:"localhost"`
	DBPort      string `env:"POSTGRES_PORT" env-default:"5432"`
	DBUser      string `env:"POSTGRES_USER" env-default:"postgres"`
	DBPassword  string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName      string `env:"POSTGRES_DB" env-default:"tenderwatch"`
	DBSSLMode   string `env:"POSTGRES_SSLMODE" env-default:"disable"`

	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"./migrations"`

	AI     AIConfig
	SMTP   SMTPConfig
	Scrape ScrapeConfig
}

// AIConfig configures the OpenAI-compatible completion endpoint.
type AIConfig struct {
	APIKey  string `env:"GROQ_API_KEY" env-default:""`
	BaseURL string `env:"GROQ_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
	Model   string `env:"GROQ_MODEL" env-default:"llama-3.3-70b-versatile"`
}

// SMTPConfig configures the outbound mail relay.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"smtp.gmail.com"`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	User     string `env:"SMTP_USER" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:""`
}

// ScrapeConfig configures the tender source and the daily cycle.
type ScrapeConfig struct {
	BaseURL      string `env:"SCRAPE_BASE_URL" env-default:"https://www.tenders-portal.example.com"`
	Hour         int    `env:"SCRAPE_SCHEDULE_HOUR" env-default:"7"`
	PDFDir       string `env:"PDF_DIR" env-default:"./data/pdfs"`
	MaxPerSource int    `env:"SCRAPE_MAX_PER_SOURCE" env-default:"20"`
}

// Enabled reports whether outbound mail is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.User != "" && c.Password != ""
}

// DSN returns the Postgres connection string, preferring DATABASE_URL
// when set over the individual POSTGRES_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}
