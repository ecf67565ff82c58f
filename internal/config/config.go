// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token           string  `yaml:"token"`
	Mode            string  `yaml:"mode"` // polling | noop
	Username        string  `yaml:"username"`
	Workers         int     `yaml:"workers"` // dispatcher shards
	ModeratorIDs    []int64 `yaml:"moderator_ids"`
	ModeratorChatID int64   `yaml:"moderator_chat_id"` // 0: cards go to each moderator privately
	PublishChatID   int64   `yaml:"publish_chat_id"`   // 0: approved ads are not republished
}

// IsModerator reports whether the Telegram user id is on the moderator list.
func (c *BotConfig) IsModerator(id int64) bool {
	for _, m := range c.ModeratorIDs {
		if m == id {
			return true
		}
	}
	return false
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AdminConfig struct {
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ModerationConfig struct {
	MaxContentLength  int           `yaml:"max_content_length"`
	MinPrice          int64         `yaml:"min_price"`
	SellTags          []string      `yaml:"sell_tags"`
	BuyTags           []string      `yaml:"buy_tags"`
	Cooldown          time.Duration `yaml:"cooldown"`
	ClaimTimeout      time.Duration `yaml:"claim_timeout"`
	ReapInterval      time.Duration `yaml:"reap_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	DecisionLockTTL   time.Duration `yaml:"decision_lock_ttl"`
}

type DeliveryConfig struct {
	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

type I18nConfig struct {
	Lang string `yaml:"lang"`
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Admin      AdminConfig      `yaml:"admin"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Moderation ModerationConfig `yaml:"moderation"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	I18n       I18nConfig       `yaml:"i18n"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the optional YAML file at path, overlays environment variables
// (a .env file in the working directory is loaded first when present), applies
// defaults and validates required settings.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := Config{Moderation: ModerationConfig{
		// explicit 0 in the file disables each rule
		MinPrice: 3000,
		Cooldown: time.Hour,
	}}
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only deployments have no file
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.HTTP.Port = p
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MODERATOR_IDS"); v != "" {
		ids, err := parseIDList(v)
		if err != nil {
			return fmt.Errorf("MODERATOR_IDS: %w", err)
		}
		cfg.Bot.ModeratorIDs = ids
	}
	if v := os.Getenv("MODERATOR_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("MODERATOR_CHAT_ID: %w", err)
		}
		cfg.Bot.ModeratorChatID = id
	}
	if v := os.Getenv("PUBLISH_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("PUBLISH_CHAT_ID: %w", err)
		}
		cfg.Bot.PublishChatID = id
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		cfg.Admin.APIKey = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 5 * time.Second
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}
	if cfg.Admin.JWTSecret == "" {
		cfg.Admin.JWTSecret = cfg.Admin.APIKey
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}

	m := &cfg.Moderation
	if m.MaxContentLength <= 0 {
		m.MaxContentLength = 4096
	}
	if len(m.SellTags) == 0 {
		m.SellTags = []string{"#sell", "#продам"}
	}
	if len(m.BuyTags) == 0 {
		m.BuyTags = []string{"#buy", "#куплю"}
	}
	if m.ClaimTimeout <= 0 {
		m.ClaimTimeout = 15 * time.Minute
	}
	if m.ReapInterval <= 0 {
		m.ReapInterval = time.Minute
	}
	if m.ReconcileInterval <= 0 {
		m.ReconcileInterval = 10 * time.Minute
	}
	if m.DecisionLockTTL <= 0 {
		m.DecisionLockTTL = 10 * time.Second
	}

	d := &cfg.Delivery
	if d.Workers <= 0 {
		d.Workers = 4
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 5
	}
	if d.BaseBackoff <= 0 {
		d.BaseBackoff = 500 * time.Millisecond
	}
	if d.MaxBackoff <= 0 {
		d.MaxBackoff = 30 * time.Second
	}
	if d.SendTimeout <= 0 {
		d.SendTimeout = 10 * time.Second
	}

	if cfg.I18n.Lang == "" {
		cfg.I18n.Lang = "uk"
	}
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	switch c.Bot.Mode {
	case "polling":
		if c.Bot.Token == "" {
			return errors.New("bot.token is required (or TELEGRAM_BOT_TOKEN)")
		}
	case "noop":
	default:
		return fmt.Errorf("bot.mode must be polling or noop, got %q", c.Bot.Mode)
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required (or DATABASE_URL)")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required (or REDIS_URL)")
	}
	if len(c.Bot.ModeratorIDs) == 0 {
		return errors.New("bot.moderator_ids must list at least one moderator (or MODERATOR_IDS)")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	return nil
}

func parseIDList(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
