package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	BrowserConfig *BrowserConfig
	HealingConfig *HealingConfig
}

type AppConfig struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	LogFile     string `envconfig:"LOG_FILE"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// AIConfig drives the semantic and visual finders. An empty APIKey disables both.
type AIConfig struct {
	APIKey  string `envconfig:"AI_API_KEY"`
	Model   string `envconfig:"AI_MODEL" default:"claude-sonnet-4-20250514"`
	BaseURL string `envconfig:"AI_BASE_URL" default:"https://api.anthropic.com"`
	Timeout int    `envconfig:"AI_TIMEOUT" default:"60000"`
}

type BrowserConfig struct {
	Headless    bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo      int    `envconfig:"BROWSER_SLOW_MO" default:"100"`
	Timeout     int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	FindTimeout int    `envconfig:"BROWSER_FIND_TIMEOUT" default:"2000"`
	UserDataDir string `envconfig:"BROWSER_USER_DATA_DIR"`
}

// HealingConfig is read once when the healer is built.
type HealingConfig struct {
	Enabled         bool `envconfig:"HEALING_ENABLED" default:"true"`
	LearningEnabled bool `envconfig:"HEALING_LEARNING_ENABLED" default:"true"`
}

func (c *AIConfig) Enabled() bool {
	return c != nil && c.APIKey != ""
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
