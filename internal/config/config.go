package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Log      LogConfig
	Security SecurityConfig
}

type AppConfig struct {
	Host            string
	Port            string
	PublicRateLimit int // request per menit per IP
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	SequenceBackend string // sql | redis
	Lanes           string // single | per_type
	SweepInterval   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	JWTSecret          string
	PublicRefSecret    string
	RecaptchaSecretKey string
}

func (c Config) Addr() string {
	return c.App.Host + ":" + c.App.Port
}

// Load builds the configuration from the environment. Call LoadEnv first to
// pick up a .env file.
func Load() (Config, error) {
	cfg := Config{
		App: AppConfig{
			Host:            GetEnv("APP_HOST", ""),
			Port:            GetEnv("APP_PORT", "8080"),
			PublicRateLimit: GetEnvInt("PUBLIC_RATE_LIMIT", 60),
		},
		DB: DBConfig{
			Host:     GetEnv("DB_HOST", "127.0.0.1"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "root"),
			Password: GetEnv("DB_PASSWORD", ""),
			Name:     GetEnv("DB_NAME", "antrian_klinik"),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		Queue: QueueConfig{
			SequenceBackend: GetEnv("SEQUENCE_BACKEND", "sql"),
			Lanes:           GetEnv("QUEUE_LANES", "single"),
			SweepInterval:   GetEnvDuration("PROJECTION_SWEEP_INTERVAL", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			JWTSecret:          GetEnv("JWT_SECRET", ""),
			PublicRefSecret:    GetEnv("PUBLIC_REF_SECRET", ""),
			RecaptchaSecretKey: GetEnv("RECAPTCHA_SECRET_KEY", ""),
		},
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET wajib diisi"))
	}
	if c.Security.PublicRefSecret == "" {
		errs = append(errs, errors.New("PUBLIC_REF_SECRET wajib diisi"))
	}
	switch c.Queue.SequenceBackend {
	case "sql", "redis":
	default:
		errs = append(errs, fmt.Errorf("SEQUENCE_BACKEND tidak dikenal: %q", c.Queue.SequenceBackend))
	}
	switch c.Queue.Lanes {
	case "single", "per_type":
	default:
		errs = append(errs, fmt.Errorf("QUEUE_LANES tidak dikenal: %q", c.Queue.Lanes))
	}
	if c.App.PublicRateLimit <= 0 {
		errs = append(errs, errors.New("PUBLIC_RATE_LIMIT harus lebih dari 0"))
	}
	return errors.Join(errs...)
}
