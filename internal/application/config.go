package application

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/growthcast/internal/calibration"
	"github.com/sawpanic/growthcast/internal/events"
	"github.com/sawpanic/growthcast/internal/history"
	"github.com/sawpanic/growthcast/internal/infrastructure/cache"
	"github.com/sawpanic/growthcast/internal/infrastructure/db"
	"github.com/sawpanic/growthcast/internal/llm"
)

const DefaultConfigPath = "config/app.yaml"

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type DataConfig struct {
	Dir       string `yaml:"dir"`
	Mentions  string `yaml:"mentions"`
	Sentiment string `yaml:"sentiment"`
	Tags      string `yaml:"tags"`
}

func (d DataConfig) Files() history.Files {
	return history.Files{Mentions: d.Mentions, Sentiment: d.Sentiment, Tags: d.Tags}
}

// AppConfig is the full service configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Data        DataConfig         `yaml:"data"`
	Calibration calibration.Config `yaml:"calibration"`
	Database    db.Config          `yaml:"database"`
	Cache       cache.Config       `yaml:"cache"`
	LLM         llm.Config         `yaml:"llm"`
	Events      events.Config      `yaml:"events"`
}

func DefaultAppConfig() *AppConfig {
	files := history.DefaultFiles()
	return &AppConfig{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 10 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Data: DataConfig{
			Dir:       "data",
			Mentions:  files.Mentions,
			Sentiment: files.Sentiment,
			Tags:      files.Tags,
		},
		Database: db.DefaultConfig(),
		Cache:    cache.DefaultConfig(),
		LLM:      llm.DefaultConfig(),
		Events:   events.DefaultConfig(),
	}
}

// LoadAppConfig reads an optional .env file and an optional YAML file
// over the defaults, applies environment overrides and validates.
func LoadAppConfig(path, envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	config := DefaultAppConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv("HTTP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("GROWTHCAST_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = splitList(v)
		c.Events.Enabled = true
	}
	c.Database.ApplyEnv()
	c.LLM.ApplyEnv()
}

func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	if c.Data.Mentions == "" {
		return errors.New("data.mentions file name is required")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return errors.New("events.brokers required when events are enabled")
	}
	if c.LLM.RPS < 0 {
		return errors.New("llm.requests_per_second cannot be negative")
	}
	if c.LLM.DailyBudget < 0 {
		return errors.New("llm.daily_budget cannot be negative")
	}
	return nil
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
