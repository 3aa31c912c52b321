// Package config loads settings for the server and the CLI from the
// environment, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Log struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Server struct {
	Port          string        `mapstructure:"port"`
	DatabaseURL   string        `mapstructure:"database_url"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	BlindIndexKey string        `mapstructure:"blind_index_key"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
	// AuthRateLimit is requests per second per client IP on the auth routes.
	AuthRateLimit float64 `mapstructure:"auth_rate_limit"`
	AuthRateBurst int     `mapstructure:"auth_rate_burst"`
	// TrustProxy keys rate limits on X-Forwarded-For instead of the socket.
	TrustProxy bool  `mapstructure:"trust_proxy"`
	Redis      Redis `mapstructure:"redis"`
	Log        Log   `mapstructure:"log"`
}

var (
	ErrJWTSecretRequired = errors.New("JWT_SECRET is required")
	ErrKeysRequired      = errors.New("ENCRYPTION_KEY and BLIND_INDEX_KEY are required")
)

// LoadServer reads the plain env names the server has always used (PORT,
// DATABASE_URL, JWT_SECRET, REDIS_ADDR, LOG_LEVEL...). A nested key such as
// redis.addr maps to REDIS_ADDR.
func LoadServer(configFile string) (*Server, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("encryption_key", "")
	v.SetDefault("blind_index_key", "")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("auth_rate_limit", 5.0)
	v.SetDefault("auth_rate_burst", 10)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)
	v.SetDefault("log.file", "")

	if err := readOptional(v, configFile); err != nil {
		return nil, err
	}

	var c Server
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWTSecret == "" {
		return nil, ErrJWTSecretRequired
	}
	if c.EncryptionKey == "" || c.BlindIndexKey == "" {
		return nil, ErrKeysRequired
	}
	return &c, nil
}

type Client struct {
	ServerURL string `mapstructure:"server_url"`
	// TokenFile is where the session token is remembered between runs.
	TokenFile      string        `mapstructure:"token_file"`
	Timezone       string        `mapstructure:"timezone"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Log            Log           `mapstructure:"log"`
}

// Location resolves Timezone, falling back to the system zone.
func (c *Client) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// LoadClient reads JOTTER_* variables and, if present, config.yaml in the
// user's config directory.
func LoadClient(configFile string) (*Client, error) {
	_ = godotenv.Load()

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	dir = filepath.Join(dir, "jotter")

	v := viper.New()
	v.SetEnvPrefix("JOTTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("token_file", filepath.Join(dir, "session.json"))
	v.SetDefault("timezone", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", filepath.Join(dir, "jotter.log"))

	if configFile == "" {
		if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err == nil {
			configFile = filepath.Join(dir, "config.yaml")
		}
	}
	if err := readOptional(v, configFile); err != nil {
		return nil, err
	}

	var c Client
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if _, err := c.Location(); err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return &c, nil
}

func readOptional(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
