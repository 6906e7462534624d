package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsDefaultsForOmittedKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
[network]
transport = "websocket"
tick_rate = "100ms"

[movement]
default_speed = 64.0
`))
	require.NoError(t, err)
	assert.Equal(t, "websocket", cfg.Network.Transport)
	assert.Equal(t, 100*time.Millisecond, cfg.Network.TickRate)
	assert.Equal(t, float32(64), cfg.Movement.DefaultSpeed)
	assert.Equal(t, 256, cfg.Network.OutQueueSize)
	assert.Equal(t, "data/maps.yaml", cfg.Map.File)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestParseRejectsUnknownTransport(t *testing.T) {
	_, err := Parse([]byte(`[network]
transport = "carrier-pigeon"
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
	t.Setenv(EnvPath, "/etc/gridwalk.toml")
	assert.Equal(t, "/etc/gridwalk.toml", ResolvePath(""))
	assert.Equal(t, "mine.toml", ResolvePath("mine.toml"))
}
