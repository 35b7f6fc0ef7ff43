package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Text        TextConfig
	Image       ImageConfig
	RedisConfig RedisConfig
	Auth        AuthConfig
	Log         LogConfig
	CacheEnable bool `env:"CACHE_ENABLE"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:"redis:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"10m"`
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Timeout         time.Duration `env:"SERVER_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ThrottleLimit   int           `env:"SERVER_THROTTLE_LIMIT" envDefault:"50"`
}

// TextConfig points at an OpenAI-compatible chat completions provider.
type TextConfig struct {
	Provider  string `env:"TEXT_PROVIDER" envDefault:"deepseek"`
	APIKey    string `env:"DEEPSEEK_API_KEY"`
	BaseURL   string `env:"TEXT_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	ChatModel string `env:"TEXT_CHAT_MODEL" envDefault:"deepseek-chat"`
	CodeModel string `env:"TEXT_CODE_MODEL" envDefault:"deepseek-coder"`
	// Timeout bounds one non-streaming completion.
	Timeout time.Duration `env:"TEXT_TIMEOUT" envDefault:"60s"`
}

type ImageConfig struct {
	Provider        string        `env:"IMAGE_PROVIDER" envDefault:"openai"`
	APIKey          string        `env:"OPENAI_API_KEY"`
	BaseURL         string        `env:"IMAGE_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model           string        `env:"IMAGE_MODEL" envDefault:"dall-e-3"`
	Timeout         time.Duration `env:"IMAGE_TIMEOUT" envDefault:"30s"`
	FallbackBaseURL string        `env:"IMAGE_FALLBACK_BASE_URL" envDefault:"https://example.com"`
}

// AuthConfig names the header an upstream identity proxy fills with the
// verified user id.
type AuthConfig struct {
	UserHeader string `env:"AUTH_USER_HEADER" envDefault:"X-User-Id"`
	Disabled   bool   `env:"AUTH_DISABLED"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY"`
}

// Load reads an optional dotenv file and then parses the environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Text.Timeout <= 0 {
		return fmt.Errorf("TEXT_TIMEOUT must be positive, got %s", c.Text.Timeout)
	}
	if c.Image.Timeout <= 0 {
		return fmt.Errorf("IMAGE_TIMEOUT must be positive, got %s", c.Image.Timeout)
	}
	// a story runs both stages inside one request
	if budget := c.Text.Timeout + c.Image.Timeout; c.Server.Timeout <= budget {
		return fmt.Errorf("SERVER_TIMEOUT (%s) must exceed TEXT_TIMEOUT + IMAGE_TIMEOUT (%s)", c.Server.Timeout, budget)
	}
	if c.Server.ThrottleLimit < 1 {
		return fmt.Errorf("SERVER_THROTTLE_LIMIT must be at least 1, got %d", c.Server.ThrottleLimit)
	}
	return nil
}
