package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingEnv возвращается, если обязательная переменная окружения не задана
var ErrMissingEnv = errors.New("required environment variable is missing")

type BotConfig struct {
	Token    string
	AdminIDs []int64
	UseRedis bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// DSN собирает строку подключения к Postgres
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	return u.String()
}

type WebhookConfig struct {
	Host    string
	Port    int
	Secret  string
	BaseURL string
}

// Addr — адрес, на котором слушает HTTP-сервер
func (c WebhookConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type PayPalConfig struct {
	Mode         string
	ClientID     string
	ClientSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	Bot      BotConfig
	Database DatabaseConfig
	Webhook  WebhookConfig
	PayPal   PayPalConfig
	Redis    RedisConfig
	LogLevel string
}

// IsAdmin проверяет, входит ли пользователь в список ADMINS
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Bot.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Load читает .env (если есть) и переменные окружения.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		log.Println(".env file not found, relying on environment variables")
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv собирает конфигурацию из произвольного источника переменных.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}
	cfg := &Config{
		Bot: BotConfig{
			Token:    e.str("BOT_TOKEN"),
			AdminIDs: e.int64List("ADMINS"),
			UseRedis: e.boolean("USE_REDIS"),
		},
		Database: DatabaseConfig{
			Host:     e.str("DB_HOST"),
			Port:     e.intDefault("DB_PORT", 5432),
			User:     e.str("POSTGRES_USER"),
			Password: e.str("POSTGRES_PASSWORD"),
			Name:     e.str("POSTGRES_DB"),
		},
		Webhook: WebhookConfig{
			Host:    e.str("WEB_SERVER_HOST"),
			Port:    e.integer("WEB_SERVER_PORT"),
			Secret:  e.str("WEB_SECRET"),
			BaseURL: strings.TrimRight(e.str("BASE_WEBHOOK_URL"), "/"),
		},
		PayPal: PayPalConfig{
			Mode:         e.str("PAYPAL_MODE"),
			ClientID:     e.str("PAYPAL_CLIENT_ID"),
			ClientSecret: e.str("PAYPAL_CLIENT_SECRET"),
		},
		Redis: RedisConfig{
			Addr:     e.strDefault("REDIS_ADDR", "localhost:6379"),
			Password: e.strDefault("REDIS_PASSWORD", ""),
			DB:       e.intDefault("REDIS_DB", 0),
		},
		LogLevel: e.strDefault("LOG_LEVEL", "info"),
	}
	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}
	return cfg, nil
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) str(key string) string {
	v, ok := e.raw(key)
	if !ok {
		e.errs = append(e.errs, fmt.Errorf("%w: %s", ErrMissingEnv, key))
	}
	return v
}

func (e *env) strDefault(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *env) integer(key string) int {
	v := e.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
	}
	return n
}

func (e *env) intDefault(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e *env) boolean(key string) bool {
	v := e.str(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
	}
	return b
}

func (e *env) int64List(key string) []int64 {
	v, ok := e.raw(key)
	if !ok {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid id %q", key, part))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
