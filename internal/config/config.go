package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"tourism-chat/internal/integrations/paramstore"
	"tourism-chat/internal/llm"
	"tourism-chat/internal/usecase"
)

// Store backends.
const (
	BackendFirebase = "firebase"
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	Model    ModelConfig    `mapstructure:"model"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Log      LogConfig      `mapstructure:"log"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Name     string `mapstructure:"name"`
	APIKey   string `mapstructure:"api_key"`
}

type FirebaseConfig struct {
	// Credentials is the service account JSON document.
	Credentials string `mapstructure:"credentials"`
	DatabaseURL string `mapstructure:"database_url"`
}

type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	DynamoDBTable string `mapstructure:"dynamodb_table"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type ChatConfig struct {
	MaxHistoryTurns     int    `mapstructure:"max_history_turns"`
	SerializePerUser    bool   `mapstructure:"serialize_per_user"`
	ProviderErrorPolicy string `mapstructure:"provider_error_policy"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// envBindings lists the environment variables read for each key, first match wins.
var envBindings = map[string][]string{
	"model.provider":             {"MODEL_PROVIDER"},
	"model.name":                 {"MODEL_NAME"},
	"model.api_key":              {"MODEL_API_KEY", "GOOGLE_API_KEY"},
	"firebase.credentials":       {"FIREBASE_CREDENTIALS"},
	"firebase.database_url":      {"FIREBASE_DATABASE_URL"},
	"store.backend":              {"STORE_BACKEND"},
	"store.dynamodb_table":       {"STORE_DYNAMODB_TABLE"},
	"store.sqlite_path":          {"STORE_SQLITE_PATH"},
	"server.port":                {"PORT", "SERVER_PORT"},
	"chat.max_history_turns":     {"CHAT_MAX_HISTORY_TURNS"},
	"chat.serialize_per_user":    {"CHAT_SERIALIZE_PER_USER"},
	"chat.provider_error_policy": {"CHAT_PROVIDER_ERROR_POLICY"},
	"log.level":                  {"LOG_LEVEL"},
	"log.file":                   {"LOG_FILE"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", llm.ProviderGoogleAI)
	v.SetDefault("model.name", "gemini-2.0-pro-exp")
	v.SetDefault("store.backend", BackendFirebase)
	v.SetDefault("store.sqlite_path", "chat.db")
	v.SetDefault("server.port", 5000)
	v.SetDefault("chat.max_history_turns", 0)
	v.SetDefault("chat.serialize_per_user", true)
	v.SetDefault("chat.provider_error_policy", string(usecase.PolicyInline))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads defaults, then the optional YAML file at configPath, then the
// environment. It does not validate; call ResolveSecrets and Validate next.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if strings.TrimSpace(configPath) != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	return &cfg, nil
}

// NeedsParamStore reports whether any secret is an SSM reference.
func (c *Config) NeedsParamStore() bool {
	return paramstore.IsRef(c.Model.APIKey) || paramstore.IsRef(c.Firebase.Credentials)
}

// ResolveSecrets replaces SSM references in secret fields with their values.
func (c *Config) ResolveSecrets(ctx context.Context, getter paramstore.Getter) error {
	if !c.NeedsParamStore() {
		return nil
	}
	if getter == nil {
		return errors.New("config: secret references need a parameter store")
	}

	key, err := paramstore.Resolve(ctx, getter, c.Model.APIKey)
	if err != nil {
		return fmt.Errorf("config: model.api_key: %w", err)
	}
	creds, err := paramstore.Resolve(ctx, getter, c.Firebase.Credentials)
	if err != nil {
		return fmt.Errorf("config: firebase.credentials: %w", err)
	}
	c.Model.APIKey = key
	c.Firebase.Credentials = creds
	return nil
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Model.APIKey) == "" {
		errs = append(errs, errors.New("model.api_key is required (MODEL_API_KEY or GOOGLE_API_KEY)"))
	}
	switch c.Model.Provider {
	case llm.ProviderGoogleAI, llm.ProviderOpenAI, llm.ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not supported", c.Model.Provider))
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if strings.TrimSpace(c.Firebase.Credentials) == "" {
		errs = append(errs, errors.New("firebase.credentials is required (FIREBASE_CREDENTIALS)"))
	}

	switch c.Store.Backend {
	case BackendFirebase:
		if strings.TrimSpace(c.Firebase.DatabaseURL) == "" {
			errs = append(errs, errors.New("firebase.database_url is required for the firebase store"))
		}
	case BackendDynamoDB:
		if strings.TrimSpace(c.Store.DynamoDBTable) == "" {
			errs = append(errs, errors.New("store.dynamodb_table is required for the dynamodb store"))
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not supported", c.Store.Backend))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if _, err := usecase.ParseProviderErrorPolicy(c.Chat.ProviderErrorPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// LogLevel parses log.level (debug, info, warn, error).
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not valid", c.Log.Level)
	}
	return lvl, nil
}
