package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App   AppSettings   `mapstructure:"app"`
	Redis RedisSettings `mapstructure:"redis"`
	JWT   JWTSettings   `mapstructure:"jwt"`
	Email EmailSettings `mapstructure:"email"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// RedisSettings configures the Redis connection and the token key namespace.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// JWTSettings configures token signing and lifetimes. Secrets are
// base64-encoded HMAC keys; the pepper is mixed into refresh-token hashes
// before storage.
type JWTSettings struct {
	AccessSecret    string        `mapstructure:"access_secret"`
	RefreshSecret   string        `mapstructure:"refresh_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	ClockSkew       time.Duration `mapstructure:"clock_skew"`
	TokenPepper     string        `mapstructure:"token_pepper"`
}

// EmailSettings configures the verification code policy.
type EmailSettings struct {
	CodeTTL     time.Duration `mapstructure:"code_ttl"`
	Cooltime    time.Duration `mapstructure:"cooltime"`
	MaxAttempts int64         `mapstructure:"max_attempts"`
	BlockTTL    time.Duration `mapstructure:"block_ttl"`
	VerifiedTTL time.Duration `mapstructure:"verified_ttl"`
	BrandName   string        `mapstructure:"brand_name"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("USERSVC")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"jwt.access_secret",
		"jwt.refresh_secret",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"jwt.clock_skew",
		"jwt.token_pepper",
		"email.code_ttl",
		"email.cooltime",
		"email.max_attempts",
		"email.block_ttl",
		"email.verified_ttl",
		"email.brand_name",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that must not fall back to defaults.
// A missing signing secret or token pepper is a fatal startup error.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.JWT.AccessSecret) == "" {
		return fmt.Errorf("config: jwt.access_secret is required")
	}
	if strings.TrimSpace(c.JWT.RefreshSecret) == "" {
		return fmt.Errorf("config: jwt.refresh_secret is required")
	}
	if strings.TrimSpace(c.JWT.TokenPepper) == "" {
		return fmt.Errorf("config: jwt.token_pepper is required")
	}
	if _, err := base64.StdEncoding.DecodeString(c.JWT.AccessSecret); err != nil {
		return fmt.Errorf("config: jwt.access_secret must be base64: %w", err)
	}
	if _, err := base64.StdEncoding.DecodeString(c.JWT.RefreshSecret); err != nil {
		return fmt.Errorf("config: jwt.refresh_secret must be base64: %w", err)
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return fmt.Errorf("config: token ttls must be positive")
	}
	if c.Email.MaxAttempts <= 0 {
		return fmt.Errorf("config: email.max_attempts must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "user-service")
	v.SetDefault("app.env", "development")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "user-service")

	v.SetDefault("jwt.access_token_ttl", "30m")
	v.SetDefault("jwt.refresh_token_ttl", "336h")
	v.SetDefault("jwt.clock_skew", "120s")

	v.SetDefault("email.code_ttl", "5m")
	v.SetDefault("email.cooltime", "60s")
	v.SetDefault("email.max_attempts", 5)
	v.SetDefault("email.block_ttl", "10m")
	v.SetDefault("email.verified_ttl", "10m")
	v.SetDefault("email.brand_name", "Community SOAP")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "USERSVC_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
