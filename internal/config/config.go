package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"accounts/internal/token"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultFrontendURL = "http://localhost:3000"
)

// Configはアプリ全体の設定
type Config struct {
	Port        string // サーバーポート（8080）
	DatabaseURL string // 空ならPOSTGRES_*から組み立てる
	Environment string // development / production
	LogLevel    string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTTL          time.Duration // ACCESS_EXP（15m）
	RefreshTTL         time.Duration // REFRESH_EXP（7d）
	ResetTTL           time.Duration // RESET_EXP（15m）

	PasswordHasher string // argon2id / bcrypt
	BcryptCost     int

	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFromEmail string
	SMTPUseTLS    bool

	FrontendURLDev  string
	FrontendURLProd string

	RedisURL     string // 空ならリセットチケットはメモリ保存
	CookieSecure bool
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Environment: strings.ToLower(getenv("ENVIRONMENT", EnvDevelopment)),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),

		PasswordHasher: getenv("PASSWORD_HASHER", "argon2id"),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),

		FrontendURLDev:  getenv("FRONTEND_URL_DEV", defaultFrontendURL),
		FrontendURLProd: os.Getenv("FRONTEND_URL_PROD"),

		RedisURL: os.Getenv("REDIS_URL"),
	}

	var err error

	//有効期限（m/h/d以外は起動時エラー）
	if cfg.AccessTTL, err = token.ParseExpiration(getenv("ACCESS_EXP", "15m")); err != nil {
		return Config{}, fmt.Errorf("ACCESS_EXP: %w", err)
	}
	if cfg.RefreshTTL, err = token.ParseExpiration(getenv("REFRESH_EXP", "7d")); err != nil {
		return Config{}, fmt.Errorf("REFRESH_EXP: %w", err)
	}
	if cfg.ResetTTL, err = token.ParseExpiration(getenv("RESET_EXP", "15m")); err != nil {
		return Config{}, fmt.Errorf("RESET_EXP: %w", err)
	}

	if cfg.SMTPPort, err = atoi("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = atoi("BCRYPT_COST", 12); err != nil {
		return Config{}, err
	}
	if cfg.SMTPUseTLS, err = parseBool("SMTP_USE_TLS", true); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = parseBool("COOKIE_SECURE", cfg.Environment == EnvProduction); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.AccessTokenSecret == "" {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}
	if cfg.RefreshTokenSecret == "" {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_SECRET is required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return Config{}, fmt.Errorf("ENVIRONMENT must be %s or %s", EnvDevelopment, EnvProduction)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// 環境ごとのフロントURL
func (c Config) FrontendURL() string {
	if c.IsProduction() {
		if c.FrontendURLProd != "" {
			return c.FrontendURLProd
		}
		return defaultFrontendURL
	}
	return c.FrontendURLDev
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func atoi(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be boolean: %w", key, err)
	}
	return b, nil
}
