package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Redis   Redis   `yaml:"redis"`
	OEmbed  OEmbed  `yaml:"oembed"`
	Trace   Trace   `yaml:"trace"`
}

type Server struct {
	Port        string `yaml:"port"`
	BaseURL     string `yaml:"baseURL"`
	AdminSecret string `yaml:"adminSecret"`
	Mode        string `yaml:"mode"` // debug, release, test
}

type Storage struct {
	Driver string `yaml:"driver"` // postgres, memory
	DSN    string `yaml:"dsn"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OEmbed struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type Trace struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"serviceName"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func Default() Config {
	return Config{
		Server: Server{
			Port:    "8080",
			BaseURL: "https://agentchain.club",
			Mode:    "release",
		},
		Storage: Storage{
			Driver: DriverPostgres,
			DSN:    "host=localhost user=postgres password=postgres dbname=agentchain port=5432 sslmode=disable",
		},
		OEmbed: OEmbed{
			Endpoint: "https://publish.twitter.com/oembed",
			Timeout:  10 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Trace: Trace{
			ServiceName: "agentchain",
		},
	}
}

// Load 依次读取 .env、默认值、YAML 文件（可选）和环境变量
func Load(path string) (Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "open config")
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "decode config")
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("PORT", &cfg.Server.Port)
	setString("BASE_URL", &cfg.Server.BaseURL)
	setString("ADMIN_SECRET", &cfg.Server.AdminSecret)
	setString("GIN_MODE", &cfg.Server.Mode)
	setString("STORE_DRIVER", &cfg.Storage.Driver)
	setString("DATABASE_URL", &cfg.Storage.DSN)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setString("OEMBED_ENDPOINT", &cfg.OEmbed.Endpoint)
	setString("TRACE_ENDPOINT", &cfg.Trace.Endpoint)

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "parse REDIS_DB")
		}
		cfg.Redis.DB = db
	}
	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "parse TRACE_ENABLED")
		}
		cfg.Trace.Enabled = enabled
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for postgres")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Trace.Enabled && c.Trace.Endpoint == "" {
		return errors.New("trace.endpoint is required when tracing is enabled")
	}
	return nil
}
