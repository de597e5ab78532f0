package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrEmptyAdminBotToken = errors.New("admin bot token is required")
	ErrEmptyUserBotToken  = errors.New("user bot token is required")
	ErrEmptyAdminChatID   = errors.New("admin chat id is required")
	ErrEmptyDBPassword    = errors.New("database password is required")
	ErrUnknownStateStore  = errors.New("unknown state backend")
)

type Config struct {
	App      AppConfig      `yaml:"app" env-prefix:"APP_"`
	Database DatabaseConfig `yaml:"database" env-prefix:"DB_"`
	Bot      BotConfig      `yaml:"bot" env-prefix:"BOT_"`
	Server   ServerConfig   `yaml:"server" env-prefix:"SERVER_"`
	State    StateConfig    `yaml:"state" env-prefix:"STATE_"`
	Redis    RedisConfig    `yaml:"redis" env-prefix:"REDIS_"`
	NATS     NATSConfig     `yaml:"nats" env-prefix:"NATS_"`
	MiniApp  MiniAppConfig  `yaml:"miniapp" env-prefix:"MINIAPP_"`
	Health   HealthConfig   `yaml:"health" env-prefix:"HEALTH_"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"NAME" env-default:"hub-bot"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"production"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PORT" env-default:"5432"`
	User           string `yaml:"user" env:"USER" env-default:"hub"`
	Password       string `yaml:"password" env:"PASSWORD"`
	Name           string `yaml:"name" env:"NAME" env-default:"hub"`
	SSLMode        string `yaml:"ssl_mode" env:"SSL_MODE" env-default:"disable"`
	MaxConnections int    `yaml:"max_connections" env:"MAX_CONNECTIONS" env-default:"25"`
	MinConnections int    `yaml:"min_connections" env:"MIN_CONNECTIONS" env-default:"2"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// BotConfig holds both Telegram bots: the admin bot receives the webhook,
// the user bot delivers notifications to Mini-App users.
type BotConfig struct {
	AdminToken    string  `yaml:"admin_token" env:"ADMIN_TOKEN"`
	UserToken     string  `yaml:"user_token" env:"USER_TOKEN"`
	AdminChatID   int64   `yaml:"admin_chat_id" env:"ADMIN_CHAT_ID"`
	AdminIDs      []int64 `yaml:"admin_ids" env:"ADMIN_IDS" env-separator:","`
	WebhookSecret string  `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	APIURL        string  `yaml:"api_url" env:"API_URL" env-default:"https://api.telegram.org"`
	SendRetries   int     `yaml:"send_retries" env:"SEND_RETRIES" env-default:"3"`
}

// Admins returns the configured admin identities. The admin chat is always
// one of them.
func (b BotConfig) Admins() []int64 {
	ids := make([]int64, 0, len(b.AdminIDs)+1)
	ids = append(ids, b.AdminChatID)
	for _, id := range b.AdminIDs {
		if id != b.AdminChatID {
			ids = append(ids, id)
		}
	}
	return ids
}

type ServerConfig struct {
	Port        int           `yaml:"port" env:"PORT" env-default:"8080"`
	WebhookPath string        `yaml:"webhook_path" env:"WEBHOOK_PATH" env-default:"/webhook/admin"`
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"10s"`
}

type StateConfig struct {
	Backend string        `yaml:"backend" env:"BACKEND" env-default:"postgres"`
	TTL     time.Duration `yaml:"ttl" env:"TTL" env-default:"24h"`
}

type RedisConfig struct {
	URL string `yaml:"url" env:"URL" env-default:"redis://localhost:6379/0"`
}

type NATSConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED" env-default:"true"`
	URL        string `yaml:"url" env:"URL" env-default:"nats://localhost:4222"`
	StreamName string `yaml:"stream_name" env:"STREAM_NAME" env-default:"HUB"`
}

type MiniAppConfig struct {
	InitDataMaxAge time.Duration `yaml:"init_data_max_age" env:"INIT_DATA_MAX_AGE" env-default:"24h"`
	AllowOrigin    string        `yaml:"allow_origin" env:"ALLOW_ORIGIN" env-default:"*"`
}

type HealthConfig struct {
	Endpoint string `yaml:"endpoint" env:"ENDPOINT" env-default:"/healthz"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.prod.yaml"
	}

	var cfg Config

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Bot.AdminToken == "" {
		return ErrEmptyAdminBotToken
	}
	if c.Bot.UserToken == "" {
		return ErrEmptyUserBotToken
	}
	if c.Bot.AdminChatID == 0 {
		return ErrEmptyAdminChatID
	}
	if c.Database.Password == "" {
		return ErrEmptyDBPassword
	}
	switch c.State.Backend {
	case "postgres", "redis":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStateStore, c.State.Backend)
	}
	return nil
}
