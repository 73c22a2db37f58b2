package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Env struct {
	Port         string `env:"PORT" envDefault:"3000"`
	GinMode      string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"`
	PublicURL    string `env:"PUBLIC_URL" envDefault:"http://127.0.0.1:3000"`
	SecureCookie bool   `env:"SECURE_COOKIE" envDefault:"false"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"ghost_ai"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBPath     string `env:"DB_PATH" envDefault:"./data/ghost.db"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	OTPTTL         time.Duration `env:"OTP_TTL" envDefault:"10m"`
	EmailChangeTTL time.Duration `env:"EMAIL_CHANGE_TTL" envDefault:"1h"`
	StateSecret    string        `env:"STATE_SECRET"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	EmailAddress string `env:"EMAIL_ADDRESS"`
	EmailPass    string `env:"EMAIL_PASSWORD"`

	LLMAPIKey  string `env:"GROQ_API_KEY"`
	LLMBaseURL string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel   string `env:"GROQ_MODEL" envDefault:"llama3-8b-8192"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://127.0.0.1:3000/auth/google/callback"`

	GeoURL     string        `env:"GEO_URL" envDefault:"https://ipapi.co"`
	GeoTimeout time.Duration `env:"GEO_TIMEOUT" envDefault:"3s"`

	NATSURL          string `env:"NATS_URL"`
	NATSAlertSubject string `env:"NATS_ALERT_SUBJECT" envDefault:"security.new-device"`

	S3Endpoint   string        `env:"S3_ENDPOINT"`
	S3Region     string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket     string        `env:"S3_BUCKET" envDefault:"chat-exports"`
	S3AccessKey  string        `env:"S3_ACCESS_KEY"`
	S3SecretKey  string        `env:"S3_SECRET_KEY"`
	S3PresignTTL time.Duration `env:"S3_PRESIGN_TTL" envDefault:"24h"`
}

// LoadEnv reads an optional .env file and then the process environment.
func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	cfg := &Env{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (e *Env) Validate() error {
	if e.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if e.DBDriver != "postgres" && e.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", e.DBDriver)
	}
	if e.SessionTTL <= 0 || e.OTPTTL <= 0 || e.EmailChangeTTL <= 0 {
		return errors.New("SESSION_TTL, OTP_TTL and EMAIL_CHANGE_TTL must be > 0")
	}
	if e.StateSecret == "" {
		return errors.New("STATE_SECRET cannot be empty")
	}
	return nil
}

func (e *Env) MailEnabled() bool {
	return e.EmailAddress != "" && e.EmailPass != ""
}

func (e *Env) GoogleEnabled() bool {
	return e.GoogleClientID != "" && e.GoogleClientSecret != ""
}
