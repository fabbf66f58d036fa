// Package config loads client and server settings from the environment,
// an optional .env file and an optional config file.
//
// Environment variables use the PETAL_ prefix: sync_endpoint is PETAL_SYNC_ENDPOINT.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/iudanet/petalsync/internal/models"
)

const (
	envPrefix = "PETAL"
	envFile   = ".env"

	defaultRole           = string(models.RoleAdmin)
	defaultDBPath         = "petalsync-client.db"
	defaultSharedDBPath   = "petalsync-shared.db"
	defaultPollInterval   = 30 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultServerAddr     = ":8080"
	defaultServerDBPath   = "petalsync-server.db"
	defaultRateLimit      = 120
	defaultTokenTTL       = 30 * 24 * time.Hour
)

// Client настройки клиента синхронизации
type Client struct {
	Role           models.Role
	SyncEndpoint   string // пусто или шаблонное значение - shared-store транспорт
	AuthToken      string
	DBPath         string
	SharedDBPath   string
	LogLevel       string
	LogFormat      string
	SyncKeys       []models.SyncKey
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// Server настройки сервера синхронизации
type Server struct {
	Addr      string
	DBPath    string
	JWTSecret string // пусто - проверка токенов отключена
	LogLevel  string
	LogFormat string
	RateLimit int // запросов в минуту на клиента; 0 - без ограничения
	TokenTTL  time.Duration
}

// LoadClient reads the client configuration. configFile may be empty.
func LoadClient(configFile string) (*Client, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}

	v.SetDefault("role", defaultRole)
	v.SetDefault("sync_endpoint", "")
	v.SetDefault("auth_token", "")
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("shared_db_path", defaultSharedDBPath)
	v.SetDefault("poll_interval", defaultPollInterval)
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("sync_keys", []string{})
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_format", defaultLogFormat)

	keys, err := parseKeys(v.GetStringSlice("sync_keys"))
	if err != nil {
		return nil, err
	}

	cfg := &Client{
		Role:           models.Role(strings.ToLower(v.GetString("role"))),
		SyncEndpoint:   strings.TrimSpace(v.GetString("sync_endpoint")),
		AuthToken:      v.GetString("auth_token"),
		DBPath:         v.GetString("db_path"),
		SharedDBPath:   v.GetString("shared_db_path"),
		PollInterval:   v.GetDuration("poll_interval"),
		RequestTimeout: v.GetDuration("request_timeout"),
		SyncKeys:       keys,
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Client) validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid role %q: expected %q or %q", c.Role, models.RoleAdmin, models.RoleStorefront)
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// LoadServer reads the server configuration. configFile may be empty.
func LoadServer(configFile string) (*Server, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}

	v.SetDefault("server_addr", defaultServerAddr)
	v.SetDefault("server_db_path", defaultServerDBPath)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_format", defaultLogFormat)
	v.SetDefault("rate_limit", defaultRateLimit)
	v.SetDefault("token_ttl", defaultTokenTTL)

	cfg := &Server{
		Addr:      v.GetString("server_addr"),
		DBPath:    v.GetString("server_db_path"),
		JWTSecret: v.GetString("jwt_secret"),
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		RateLimit: v.GetInt("rate_limit"),
		TokenTTL:  v.GetDuration("token_ttl"),
	}

	if cfg.Addr == "" {
		return nil, errors.New("server_addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("server_db_path must not be empty")
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must not be negative, got %d", cfg.RateLimit)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token_ttl must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}

func newViper(configFile string) (*viper.Viper, error) {
	// .env не переопределяет уже заданные переменные окружения
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// parseKeys accepts both list values and a comma separated string.
func parseKeys(raw []string) ([]models.SyncKey, error) {
	var keys []models.SyncKey
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key, err := models.ParseSyncKey(part)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
