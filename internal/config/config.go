package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string   `yaml:"env" env:"AGRO_ENV" env-default:"prod"`
	HTTPServer  `yaml:"http_server"`
	Storage     Storage  `yaml:"storage"`
	Remote      Remote   `yaml:"remote"`
	LegacyDump  string   `yaml:"legacy_dump" env:"LEGACY_DUMP"`
	CORSOrigins []string `yaml:"cors_origins" env-default:"http://localhost:5173"`
	FrontendDir string   `yaml:"frontend_dir" env:"FRONTEND_DIR" env-default:"./frontend-dist"`

	AdminLogin string `yaml:"admin_login" env:"ADMIN_LOGIN"`
	AdminPass  string `yaml:"admin_pass" env:"ADMIN_PASS"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Storage struct {
	// Driver is one of sqlite, mysql or redis.
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"STORAGE_DSN" env-default:"./agro.db"`

	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	RedisPrefix   string `yaml:"redis_prefix" env-default:"klp1agro:"`
}

type Remote struct {
	ScriptURL     string        `yaml:"script_url" env:"REMOTE_SCRIPT_URL" env-required:"true"`
	SheetID       string        `yaml:"sheet_id" env:"REMOTE_SHEET_ID" env-required:"true"`
	Timeout       time.Duration `yaml:"timeout" env-default:"30s"`
	RetryCount    int           `yaml:"retry_count" env-default:"0"`
	CheckInterval time.Duration `yaml:"check_interval" env-default:"30s"`
}

// SyncTimeout bounds one sync operation: a request to the script endpoint
// with all its retries, followed by the same again over the fallback
// transport.
func (r Remote) SyncTimeout() time.Duration {
	retries := time.Duration(max(r.RetryCount, 0))
	attempt := r.Timeout*(retries+1) + 5*time.Second*retries
	return 2 * attempt
}

const defaultPath = "./config/local.yaml"

func MustConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	switch cfg.Storage.Driver {
	case "sqlite", "mysql", "redis":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}
