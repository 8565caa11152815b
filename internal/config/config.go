// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Mail      MailConfig      `koanf:"mail"`
	Pay       PayConfig       `koanf:"pay"`
	Credit    CreditConfig    `koanf:"credit"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	Migrate         bool          `koanf:"migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// JWTConfig carries the token contract. Expire defaults to a year with no
// refresh or rotation mechanism, which is what the existing clients expect.
// Known weakness, see DESIGN.md before shortening it.
type JWTConfig struct {
	PrivateKeyPath string        `koanf:"private_key_path"`
	PublicKeyPath  string        `koanf:"public_key_path"`
	Expire         time.Duration `koanf:"expire"`
	Issuer         string        `koanf:"issuer"`
	Audience       string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type PayConfig struct {
	Alipay AlipayConfig `koanf:"alipay"`
	Wechat WechatConfig `koanf:"wechat"`
	Sweep  SweepConfig  `koanf:"sweep"`
	// Prices maps an order level (L1..L3) to the charge in cents.
	Prices map[string]int64 `koanf:"prices"`
}

type AlipayConfig struct {
	Enabled        bool          `koanf:"enabled"`
	GatewayURL     string        `koanf:"gateway_url"`
	AppID          string        `koanf:"app_id"`
	PrivateKeyPath string        `koanf:"private_key_path"`
	PublicKeyPath  string        `koanf:"public_key_path"`
	NotifyURL      string        `koanf:"notify_url"`
	Timeout        time.Duration `koanf:"timeout"`
}

type WechatConfig struct {
	Enabled        bool          `koanf:"enabled"`
	BaseURL        string        `koanf:"base_url"`
	MchID          string        `koanf:"mch_id"`
	AppID          string        `koanf:"app_id"`
	SerialNo       string        `koanf:"serial_no"`
	PrivateKeyPath string        `koanf:"private_key_path"`
	PublicKeyPath  string        `koanf:"public_key_path"`
	APIv3Key       string        `koanf:"apiv3_key"`
	NotifyURL      string        `koanf:"notify_url"`
	Timeout        time.Duration `koanf:"timeout"`
}

// SweepConfig controls the reconciliation job that re-queries providers for
// orders whose webhook never arrived. The interval and grace window are
// operational defaults, not contract values.
type SweepConfig struct {
	Interval    time.Duration `koanf:"interval"`
	GraceWindow time.Duration `koanf:"grace_window"`
}

type CreditConfig struct {
	RegisterBonus int64 `koanf:"register_bonus"`
	InviteBonus   int64 `koanf:"invite_bonus"`
	ExportCost    int64 `koanf:"export_cost"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		k := koanf.New(".")

		if err := loadDefaults(k); err != nil {
			loadErr = fmt.Errorf("load defaults: %w", err)
			return
		}

		if configPath != "" {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				loadErr = fmt.Errorf("load config file: %w", err)
				return
			}
		}

		if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
			loadErr = fmt.Errorf("load env vars: %w", err)
			return
		}

		cfg = &Config{}
		if err := k.Unmarshal("", cfg); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if err := validate(cfg); err != nil {
			loadErr = fmt.Errorf("validate config: %w", err)
			return
		}
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "AutoWDS",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.migrate":            true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.expire":           "8760h",
		"jwt.issuer":           "autowds",
		"jwt.audience":         "autowds-api",
		"jwt.private_key_path": "keys/private.pem",
		"jwt.public_key_path":  "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "autowds",

		"mail.port": 587,

		"pay.alipay.gateway_url": "https://openapi.alipay.com/gateway.do",
		"pay.alipay.timeout":     "10s",
		"pay.wechat.base_url":    "https://api.mch.weixin.qq.com",
		"pay.wechat.timeout":     "10s",
		"pay.sweep.interval":     "5m",
		"pay.sweep.grace_window": "30m",
		"pay.prices": map[string]int64{
			"L1": 990,
			"L2": 2990,
			"L3": 9990,
		},

		"credit.register_bonus": 100,
		"credit.invite_bonus":   100,
		"credit.export_cost":    1,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":            "database.url",
	"DATABASE_MIGRATE":        "database.migrate",
	"REDIS_URL":               "redis.url",
	"ENVIRONMENT":             "app.environment",
	"HOST":                    "server.host",
	"PORT":                    "server.port",
	"LOG_LEVEL":               "log.level",
	"LOG_FORMAT":              "log.format",
	"JWT_PRIVATE_KEY_PATH":    "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":     "jwt.public_key_path",
	"JWT_EXPIRE":              "jwt.expire",
	"JWT_ISSUER":              "jwt.issuer",
	"JWT_AUDIENCE":            "jwt.audience",
	"RATE_LIMIT_REQUESTS":     "rate_limit.requests",
	"RATE_LIMIT_WINDOW":       "rate_limit.window",
	"RATE_LIMIT_BURST":        "rate_limit.burst",
	"MAIL_HOST":               "mail.host",
	"MAIL_PORT":               "mail.port",
	"MAIL_USERNAME":           "mail.username",
	"MAIL_PASSWORD":           "mail.password",
	"MAIL_FROM":               "mail.from",
	"ALIPAY_ENABLED":          "pay.alipay.enabled",
	"ALIPAY_APP_ID":           "pay.alipay.app_id",
	"ALIPAY_PRIVATE_KEY_PATH": "pay.alipay.private_key_path",
	"ALIPAY_PUBLIC_KEY_PATH":  "pay.alipay.public_key_path",
	"ALIPAY_NOTIFY_URL":       "pay.alipay.notify_url",
	"WECHAT_PAY_ENABLED":      "pay.wechat.enabled",
	"WECHAT_MCH_ID":           "pay.wechat.mch_id",
	"WECHAT_APP_ID":           "pay.wechat.app_id",
	"WECHAT_SERIAL_NO":        "pay.wechat.serial_no",
	"WECHAT_PRIVATE_KEY_PATH": "pay.wechat.private_key_path",
	"WECHAT_PUBLIC_KEY_PATH":  "pay.wechat.public_key_path",
	"WECHAT_APIV3_KEY":        "pay.wechat.apiv3_key",
	"WECHAT_NOTIFY_URL":       "pay.wechat.notify_url",
	"PAY_SWEEP_INTERVAL":      "pay.sweep.interval",
	"PAY_SWEEP_GRACE_WINDOW":  "pay.sweep.grace_window",
	"OTEL_ENDPOINT":           "otel.endpoint",
	"OTEL_SERVICE_NAME":       "otel.service_name",
	"OTEL_ENABLED":            "otel.enabled",
	"OTEL_INSECURE":           "otel.insecure",
	"OTEL_SAMPLE_RATE":        "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.Pay.Alipay.Enabled {
		if c.Pay.Alipay.AppID == "" {
			return fmt.Errorf("ALIPAY_APP_ID is required when alipay is enabled")
		}
		if c.Pay.Alipay.NotifyURL == "" {
			return fmt.Errorf("ALIPAY_NOTIFY_URL is required when alipay is enabled")
		}
	}

	if c.Pay.Wechat.Enabled {
		if c.Pay.Wechat.MchID == "" {
			return fmt.Errorf("WECHAT_MCH_ID is required when wechat pay is enabled")
		}
		if len(c.Pay.Wechat.APIv3Key) != 32 {
			return fmt.Errorf("WECHAT_APIV3_KEY must be 32 bytes")
		}
	}

	if c.Pay.Sweep.Interval <= 0 {
		return fmt.Errorf("pay.sweep.interval must be positive")
	}

	if c.Pay.Sweep.GraceWindow <= 0 {
		return fmt.Errorf("pay.sweep.grace_window must be positive")
	}

	if c.Credit.ExportCost <= 0 {
		return fmt.Errorf("credit.export_cost must be positive")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
