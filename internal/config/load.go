package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable holding the YAML config path when
// no explicit path is given.
const PathEnv = "TUNE_CONFIG"

// Snapshot backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds runtime settings. Values come from defaults, then an optional
// YAML file, then environment variables.
type Config struct {
	Demo bool `yaml:"demo" env:"TUNE_DEMO"`

	Sampling struct {
		Period     time.Duration `yaml:"period"`
		PollPeriod time.Duration `yaml:"poll_period"`
	} `yaml:"sampling"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	Snapshot struct {
		Backend       string `yaml:"backend"`
		Path          string `yaml:"path"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
	} `yaml:"snapshot"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Bluetooth struct {
		Adapter     string        `yaml:"adapter"`
		ScanTimeout time.Duration `yaml:"scan_timeout"`
	} `yaml:"bluetooth"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Sampling.Period = SamplePeriod
	cfg.Sampling.PollPeriod = PollPeriod
	cfg.Log.Level = "info"
	cfg.Log.File = "tune-dash.log"
	cfg.Snapshot.Backend = BackendSQLite
	cfg.Snapshot.Path = "tune-dash.db"
	cfg.HTTP.Addr = ":8080"
	cfg.Bluetooth.Adapter = "hci0"
	cfg.Bluetooth.ScanTimeout = 10 * time.Second
	return cfg
}

// Load builds the configuration. An empty path falls back to $TUNE_CONFIG;
// if neither is set only defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := populateFromEnv(reflect.ValueOf(cfg).Elem(), "TUNE"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Sampling.Period <= 0 {
		return errors.New("config: sampling period must be positive")
	}
	if c.Sampling.PollPeriod <= 0 {
		return errors.New("config: poll period must be positive")
	}
	switch c.Snapshot.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.Snapshot.Path) == "" {
			return errors.New("config: sqlite snapshot path required")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Snapshot.RedisAddr) == "" {
			return errors.New("config: redis address required")
		}
	default:
		return fmt.Errorf("config: unknown snapshot backend %q", c.Snapshot.Backend)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// populateFromEnv walks the struct and overrides fields from the environment.
// Keys are PREFIX_PARENT_CHILD unless an explicit env tag is present.
func populateFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		fieldType := t.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		rawKey := fieldType.Tag.Get("env")
		if rawKey == "-" {
			continue
		}

		envKey := normalizeKey(prefix, fieldType.Name)
		if rawKey != "" {
			envKey = normalizeKey("", rawKey)
		}

		if fieldVal.Kind() == reflect.Struct {
			if err := populateFromEnv(fieldVal, envKey); err != nil {
				return err
			}
			continue
		}

		if val, ok := os.LookupEnv(envKey); ok {
			if err := assign(fieldVal, val); err != nil {
				return fmt.Errorf("config: parse %s: %w", envKey, err)
			}
		}
	}
	return nil
}

func normalizeKey(prefix, key string) string {
	key = strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

var durationType = reflect.TypeOf(time.Duration(0))

func assign(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(parsed)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
