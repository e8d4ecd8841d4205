package config

import (
	"flag"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Storage
	DatabaseDSN string `env:"DATABASE_URI"`
	StaticDir   string `env:"STATIC_DIR"`

	// Auth
	AuthSecret string `env:"AUTH_SECRET"`
	BcryptCost int    `env:"BCRYPT_COST"`

	// Server
	BaseURL         string `env:"BASE_URL"`
	EnableHTTPS     bool   `env:"ENABLE_HTTPS"`
	UploadMaxSizeMB int    `env:"UPLOAD_MAX_MB"`

	ServerURL string `env:"-"`
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (путь SQLite или postgres://...)")
	flag.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "каталог картинок пользователей и новостей")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "стоимость bcrypt")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS")
	flag.IntVar(&cfg.UploadMaxSizeMB, "upload-max-mb", cfg.UploadMaxSizeMB, "максимальный размер multipart-запроса, МБ")

	flag.Parse()

	applyDefaults(cfg)
	return cfg
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

// applyDefaults заполняет пустые поля значениями по умолчанию.
func applyDefaults(cfg *Config) {
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "news.db"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "static/img"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}
	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}
}
