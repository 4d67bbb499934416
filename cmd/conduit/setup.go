package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/config"
	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/internal/pipelines"
	httpAdapter "github.com/aretw0/conduit/pkg/adapters/http"
	"github.com/aretw0/conduit/pkg/adapters/redis"
	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/codec"
	"github.com/aretw0/conduit/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"capacity":     "capacity",
	"backend":      "backend",
	"redis-addr":   "redis.addr",
	"redis-prefix": "redis.prefix",
	"codec":        "codec",
	"metrics-addr": "metrics_addr",
}

// loadConfig reads the config file, then applies the flags the user actually set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	return config.Load(path, overrides)
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWriter(cmd.ErrOrStderr(), level), nil
}

// systemOptions translates the backend configuration. The returned cleanup releases
// the transport and codec.
func systemOptions(ctx context.Context, cfg config.Config) ([]conduit.Option, func(), error) {
	opts := []conduit.Option{conduit.WithCapacity(cfg.Capacity)}
	if cfg.Backend != config.BackendRedis {
		return opts, func() {}, nil
	}

	base, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, nil, err
	}
	c, err := encrypt(base, cfg.Redis)
	if err != nil {
		closeCodec(base)
		return nil, nil, err
	}
	t := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		redis.WithPrefix(cfg.Redis.Prefix),
		redis.WithPollInterval(cfg.Redis.PollInterval),
		redis.WithTTL(cfg.Redis.TTL),
	)
	cleanup := func() {
		_ = t.Close()
		closeCodec(base)
	}
	if err := t.Ping(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("redis backend unavailable at %s: %w", cfg.Redis.Addr, err)
	}
	return append(opts, conduit.WithTransport(t, c)), cleanup, nil
}

func closeCodec(c channel.Codec) {
	if z, ok := c.(*codec.Zstd); ok {
		z.Close()
	}
}

// encrypt wraps c when an encryption key is configured.
func encrypt(c channel.Codec, cfg config.Redis) (channel.Codec, error) {
	if cfg.EncryptionKey == "" {
		return c, nil
	}
	active, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	keys := codec.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.FallbackKeys {
		key, err := hex.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("invalid fallback key: %w", err)
		}
		keys.FallbackKeys = append(keys.FallbackKeys, key)
	}
	return codec.NewEncrypted(c, keys)
}

// catalog serves the built-in pipelines to the diagnostics handler.
type catalog struct{}

func (catalog) Names() []string { return pipelines.Names() }

func (catalog) Definition(name string) (*model.Definition, error) {
	def, err := pipelines.Build(name, pipelines.IO{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpAdapter.ErrNotFound, err)
	}
	return def, nil
}

func newServer(addr string, reg prometheus.Gatherer, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr: addr,
		Handler: httpAdapter.NewHandler(&httpAdapter.Server{
			Catalog:  catalog{},
			Gatherer: reg,
			Version:  conduit.Version,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serveBackground starts srv and returns a function that shuts it down.
func serveBackground(srv *http.Server, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	logger.Info("diagnostics listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("diagnostics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
