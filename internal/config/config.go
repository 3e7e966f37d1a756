// Package config carga la configuración del servicio: YAML + overrides por
// variables de entorno + defaults sanos.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinIdleConns    int    `yaml:"min_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	SMTP SMTPConfig `yaml:"smtp"`

	Queue struct {
		// DataDir es el store dir del NATS embebido (JetStream file storage).
		DataDir string `yaml:"data_dir"`
		// MaxDeliver: intentos totales por job (1 inicial + reintentos).
		MaxDeliver int `yaml:"max_deliver"`
		// RetryDelay entre reintentos de un job fallido.
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`

	Scheduler struct {
		Enabled bool `yaml:"enabled"`
		// Tick del loop; default 1m (el matching es por minuto de wall clock).
		Tick time.Duration `yaml:"tick"`
		// ManagerDigestLead: cuánto antes del digest general sale la copia
		// para managers. Default 1h.
		ManagerDigestLead time.Duration `yaml:"manager_digest_lead"`
	} `yaml:"scheduler"`

	Admin struct {
		// APIKeyHash es el bcrypt del admin API key (generar con digestusctl keygen).
		// APIKey en texto plano solo para dev.
		APIKey     string `yaml:"api_key"`
		APIKeyHash string `yaml:"api_key_hash"`
	} `yaml:"admin"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Inbound struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"inbound"`
	} `yaml:"rate"`
}

// SMTPConfig agrupa la configuración del transporte SMTP saliente.
type SMTPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
}

// Load lee el YAML (opcional: path vacío ⇒ solo defaults+env), aplica
// defaults, overrides por env y validación.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "digestus"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Queue.DataDir == "" {
		c.Queue.DataDir = "./data/digestus/jetstream"
	}
	if c.Queue.MaxDeliver == 0 {
		c.Queue.MaxDeliver = 6 // 1 intento + 5 reintentos
	}
	if c.Queue.RetryDelay == 0 {
		c.Queue.RetryDelay = 5 * time.Minute
	}
	if c.Scheduler.Tick == 0 {
		c.Scheduler.Tick = time.Minute
	}
	if c.Scheduler.ManagerDigestLead == 0 {
		c.Scheduler.ManagerDigestLead = time.Hour
	}
	if c.Rate.Inbound.Limit == 0 {
		c.Rate.Inbound.Limit = 60
	}
	if c.Rate.Inbound.Window == "" {
		c.Rate.Inbound.Window = "1m"
	}

	c.applyEnvOverrides()

	if err := c.validate(); err != nil {
		return nil, err
	}

	// Guardia dura: en prod el admin key en texto plano no vale.
	if strings.EqualFold(c.App.Env, "prod") && c.Admin.APIKeyHash == "" && c.Admin.APIKey != "" {
		return nil, fmt.Errorf("config: prod requires admin.api_key_hash (plaintext api_key is dev-only)")
	}

	return &c, nil
}

func (c *Config) validate() error {
	for _, d := range []string{c.Cache.Memory.DefaultTTL, c.Rate.Inbound.Window, c.Storage.Postgres.ConnMaxLifetime} {
		if d != "" {
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("config: invalid duration %q: %w", d, err)
			}
		}
	}
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn is required with the postgres driver")
	}
	return nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_IDLE_CONNS"); ok {
		c.Storage.Postgres.MinIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v) // auto|starttls|ssl|none
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// QUEUE
	if v, ok := getEnvStr("QUEUE_DATA_DIR"); ok {
		c.Queue.DataDir = v
	}
	if v, ok := getEnvInt("QUEUE_MAX_DELIVER"); ok {
		c.Queue.MaxDeliver = v
	}
	if v, ok := getEnvDur("QUEUE_RETRY_DELAY"); ok {
		c.Queue.RetryDelay = v
	}

	// SCHEDULER
	if v, ok := getEnvBool("SCHEDULER_ENABLED"); ok {
		c.Scheduler.Enabled = v
	}
	if v, ok := getEnvDur("SCHEDULER_TICK"); ok {
		c.Scheduler.Tick = v
	}
	if v, ok := getEnvDur("SCHEDULER_MANAGER_DIGEST_LEAD"); ok {
		c.Scheduler.ManagerDigestLead = v
	}

	// ADMIN
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Admin.APIKey = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY_HASH"); ok {
		c.Admin.APIKeyHash = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_INBOUND_LIMIT"); ok {
		c.Rate.Inbound.Limit = v
	}
	if v, ok := getEnvStr("RATE_INBOUND_WINDOW"); ok {
		c.Rate.Inbound.Window = v
	}
}
