// Package config loads the command-line configuration: defaults, then an optional
// YAML file, then flag overrides, decoded into Config and validated.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the runtime configuration of the conduit command.
type Config struct {
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Capacity    int    `mapstructure:"capacity" validate:"gte=0"`
	Backend     string `mapstructure:"backend" validate:"oneof=memory redis"`
	Codec       string `mapstructure:"codec" validate:"oneof=json msgpack json+zstd msgpack+zstd"`
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
	Redis       Redis  `mapstructure:"redis"`
}

// Redis configures the Redis channel transport.
type Redis struct {
	Addr         string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	Prefix       string        `mapstructure:"prefix"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	TTL          time.Duration `mapstructure:"ttl" validate:"gte=0"`

	// EncryptionKey, hex encoded, turns on AES-256-GCM over the codec.
	EncryptionKey string   `mapstructure:"encryption_key" validate:"omitempty,hexadecimal,len=64"`
	FallbackKeys  []string `mapstructure:"fallback_keys" validate:"dive,hexadecimal,len=64"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Capacity: 1,
		Backend:  BackendMemory,
		Codec:    "json",
		Redis: Redis{
			Addr:         "localhost:6379",
			Prefix:       "conduit:channel:",
			PollInterval: 10 * time.Millisecond,
		},
	}
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"log_level":    d.LogLevel,
		"capacity":     d.Capacity,
		"backend":      d.Backend,
		"codec":        d.Codec,
		"metrics_addr": d.MetricsAddr,
		"redis": map[string]any{
			"addr":          d.Redis.Addr,
			"password":      d.Redis.Password,
			"db":            d.Redis.DB,
			"prefix":        d.Redis.Prefix,
			"poll_interval": d.Redis.PollInterval,
			"ttl":           d.Redis.TTL,

			"encryption_key": d.Redis.EncryptionKey,
			"fallback_keys":  nil,
		},
	}
}

// Load merges the YAML file at path (skipped when empty) and then overrides over
// the defaults. Override keys use dots for nesting, e.g. "redis.addr".
func Load(path string, overrides map[string]any) (Config, error) {
	raw := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		merge(raw, file)
	}

	for key, v := range overrides {
		set(raw, strings.Split(key, "."), v)
	}

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, Validate(&cfg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks field rules and reports every violation.
func Validate(cfg *Config) error {
	var errs []error
	if err := validate.Struct(cfg); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		for _, f := range fields {
			errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", f.Namespace(), f.Tag(), f.Value()))
		}
	}
	if cfg.Backend == BackendRedis && cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("Config.Redis.Addr: required by the redis backend"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if existing, isMap := dst[k].(map[string]any); ok && isMap {
			merge(existing, sub)
			continue
		}
		if ok {
			v = maps.Clone(sub)
		}
		dst[k] = v
	}
}

func set(dst map[string]any, path []string, v any) {
	for _, key := range path[:len(path)-1] {
		next, ok := dst[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			dst[key] = next
		}
		dst = next
	}
	dst[path[len(path)-1]] = v
}
