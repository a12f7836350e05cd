package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xaenox/relay-bot/internal/models"
)

type Config struct {
	Telegram TelegramConfig       `mapstructure:"telegram"`
	LLM      LLMConfig            `mapstructure:"llm"`
	OpenAI   OpenAIConfig         `mapstructure:"openai"`
	Log      LogConfig            `mapstructure:"log"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Commands []models.CommandSpec `mapstructure:"commands"`
}

type TelegramConfig struct {
	AppID       int    `mapstructure:"app_id"`
	AppHash     string `mapstructure:"app_hash"`
	Phone       string `mapstructure:"phone"`
	Session     string `mapstructure:"session"`
	Username    string `mapstructure:"username"`
	APIEndpoint string `mapstructure:"api_endpoint"`
	PollTimeout int    `mapstructure:"poll_timeout"`
}

type LLMConfig struct {
	ContextPath string        `mapstructure:"context_path"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type LogConfig struct {
	Dir           string        `mapstructure:"dir"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"telegram.app_id":       "TG_API_ID",
	"telegram.app_hash":     "TG_API_HASH",
	"telegram.phone":        "PHONE_NUMBER",
	"telegram.session":      "SESSION_NAME",
	"telegram.username":     "MY_USERNAME",
	"telegram.api_endpoint": "TG_API_ENDPOINT",
	"llm.context_path":      "LLM_CONTEXT_PATH",
	"llm.base_url":          "COMMAND_BASE_URL",
	"llm.timeout":           "LLM_TIMEOUT",
	"openai.api_key":        "OPENAI_API_KEY",
	"log.dir":               "LOG_DIR",
	"log.flush_interval":    "LOG_FLUSH_INTERVAL",
	"storage.driver":        "STORAGE_DRIVER",
	"storage.dsn":           "STORAGE_DSN",
}

// DefaultCommands is the vocabulary used when the config file lists none.
// Endpoints are relative to the command base URL.
func DefaultCommands() []models.CommandSpec {
	return []models.CommandSpec{
		{
			Key:      "q",
			Prefix:   "!q",
			Endpoint: "/q",
			Params: map[string]any{
				"temperature": 0.3,
				"tokens":      3000,
				"model":       "openai-next",
				"version":     "v2",
			},
		},
		{
			Key:      "b",
			Prefix:   "!cb",
			Endpoint: "/q",
			Params: map[string]any{
				"temperature": 0.92,
				"tokens":      4000,
				"format":      "fun",
				"model":       "openai-next",
				"version":     "v2",
			},
		},
	}
}

// LoadConfig reads an optional .env file and an optional config file at
// path, then applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	// A missing .env file is fine; the variables may come from the environment.
	_ = godotenv.Load()

	v := viper.New()

	// Set default values
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("llm.timeout", 0)
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 3000)
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.flush_interval", "5m")
	v.SetDefault("storage.driver", "file")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// DATABASE_URL selects PostgreSQL storage
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		config.Storage.Driver = "postgres"
		config.Storage.DSN = dbURL
	}

	if len(config.Commands) == 0 {
		config.Commands = DefaultCommands()
	}
	commands, err := resolveEndpoints(config.Commands, config.LLM.BaseURL)
	if err != nil {
		return nil, err
	}
	config.Commands = commands

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports every missing required setting in one error.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.AppID == 0 {
		missing = append(missing, "TG_API_ID")
	}
	if c.Telegram.AppHash == "" {
		missing = append(missing, "TG_API_HASH")
	}
	if c.Telegram.Phone == "" {
		missing = append(missing, "PHONE_NUMBER")
	}
	if c.Telegram.Session == "" {
		missing = append(missing, "SESSION_NAME")
	}
	if c.Telegram.Username == "" {
		missing = append(missing, "MY_USERNAME")
	}
	if c.LLM.ContextPath == "" {
		missing = append(missing, "LLM_CONTEXT_PATH")
	}
	if c.LLM.BaseURL == "" {
		missing = append(missing, "COMMAND_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	seen := make(map[models.CommandKey]bool, len(c.Commands))
	for _, cmd := range c.Commands {
		if cmd.Key == "" || cmd.Prefix == "" {
			return fmt.Errorf("command %q: key and prefix are required", cmd.Key)
		}
		if seen[cmd.Key] {
			return fmt.Errorf("command %q configured twice", cmd.Key)
		}
		seen[cmd.Key] = true
		if cmd.Backend != "" && cmd.Backend != models.BackendHTTP && cmd.Backend != models.BackendOpenAI {
			return fmt.Errorf("command %q: unknown backend %q", cmd.Key, cmd.Backend)
		}
	}
	return nil
}

// resolveEndpoints joins relative command endpoints onto base.
func resolveEndpoints(specs []models.CommandSpec, base string) ([]models.CommandSpec, error) {
	out := make([]models.CommandSpec, len(specs))
	for i, spec := range specs {
		out[i] = spec
		if spec.Endpoint == "" && spec.Backend == models.BackendOpenAI {
			continue
		}
		if base == "" || strings.HasPrefix(spec.Endpoint, "http://") || strings.HasPrefix(spec.Endpoint, "https://") {
			continue
		}
		joined, err := url.JoinPath(base, spec.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("command %q endpoint: %w", spec.Key, err)
		}
		out[i].Endpoint = joined
	}
	return out, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
