package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conduit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenOverrides(t *testing.T) {
	path := writeFile(t, `
log_level: debug
capacity: 8
backend: redis
codec: msgpack+zstd
redis:
  addr: "cache:6380"
  poll_interval: 25ms
`)

	cfg, err := Load(path, map[string]any{
		"capacity":   "16",
		"redis.db":   2,
		"redis.addr": "override:6379",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 16, cfg.Capacity, "flags win over the file and strings are weakly decoded")
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "msgpack+zstd", cfg.Codec)
	assert.Equal(t, "override:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 25*time.Millisecond, cfg.Redis.PollInterval)
	assert.Equal(t, "conduit:channel:", cfg.Redis.Prefix, "unset nested keys keep their defaults")
}

func TestLoad_EncryptionKeys(t *testing.T) {
	active, old := strings.Repeat("ab", 32), strings.Repeat("cd", 32)
	path := writeFile(t, "redis:\n  encryption_key: "+active+"\n  fallback_keys:\n    - "+old+"\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, active, cfg.Redis.EncryptionKey)
	assert.Equal(t, []string{old}, cfg.Redis.FallbackKeys)

	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.Redis.FallbackKeys, "no keys configured means no slice")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		overrides map[string]any
		contains  string
	}{
		{name: "Unknown Backend", overrides: map[string]any{"backend": "kafka"}, contains: "Config.Backend"},
		{name: "Negative Capacity", overrides: map[string]any{"capacity": -1}, contains: "Config.Capacity"},
		{name: "Unknown Codec", overrides: map[string]any{"codec": "xml"}, contains: "Config.Codec"},
		{name: "Bad Level", overrides: map[string]any{"log_level": "loud"}, contains: "Config.LogLevel"},
		{name: "Bad Metrics Addr", overrides: map[string]any{"metrics_addr": "nope"}, contains: "Config.MetricsAddr"},
		{name: "Redis Without Addr", overrides: map[string]any{"backend": "redis", "redis.addr": ""}, contains: "Config.Redis.Addr"},
		{name: "Zero Poll", overrides: map[string]any{"redis.poll_interval": "0s"}, contains: "Config.Redis.PollInterval"},
		{name: "Short Encryption Key", overrides: map[string]any{"redis.encryption_key": "abcd"}, contains: "Config.Redis.EncryptionKey"},
		{name: "Unknown Key", file: "colour: blue\n", contains: "colour"},
		{name: "Bad Duration", file: "redis:\n  ttl: soon\n", contains: "ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path, tt.overrides)
			require.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, tt.contains)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeFile(t, "capacity: [\n"), nil)
	assert.ErrorContains(t, err, "failed to parse")
}
