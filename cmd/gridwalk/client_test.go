package main

import (
	"testing"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/config"
	gonet "github.com/gridwalk/gridwalk/internal/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseRoute(t *testing.T) {
	route, err := parseRoute("e, ne,S,,w")
	require.NoError(t, err)
	assert.Equal(t, []component.GridDelta{{X: 1}, {X: 1, Y: -1}, {Y: 1}, {X: -1}}, route)

	_, err = parseRoute("E,up")
	assert.Error(t, err)
	_, err = parseRoute("none")
	assert.Error(t, err)
	_, err = parseRoute(" , ")
	assert.Error(t, err)
}

func TestNewLoggerWithoutConsoleOrFileIsSilent(t *testing.T) {
	log, err := newLogger(config.LoggingConfig{Level: "debug"}, false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", File: t.TempDir() + "/gridwalk.log", MaxSizeMB: 1}
	log, err := newLogger(cfg, false)
	require.NoError(t, err)
	log.Info("hello")
	require.NoError(t, log.Sync())
	assert.FileExists(t, cfg.File)
}

func TestTransportOptionsPickAddressByRole(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, cfg.Network.BindAddress, transportOptions(cfg, gonet.RoleServer).Address)
	assert.Equal(t, cfg.Network.ServerAddress, transportOptions(cfg, gonet.RoleClient).Address)
}
