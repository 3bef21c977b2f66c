package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16*time.Millisecond, cfg.Server.TickInterval())
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout())
	assert.Equal(t, 8000.0, cfg.Gameplay.ReachDistance)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
}

func TestEnvFallback(t *testing.T) {
	var s ServerConfig
	t.Setenv("GAME_TCP_ADDR", "")
	t.Setenv("GAME_PLAYER_LIMIT", "")
	assert.Equal(t, ":25565", s.GetTCPAddr())
	assert.Equal(t, 10, s.GetPlayerLimit())
	assert.Equal(t, "", s.GetKCPAddr())

	t.Setenv("GAME_TCP_ADDR", ":7000")
	t.Setenv("GAME_PLAYER_LIMIT", "25")
	assert.Equal(t, ":7000", s.GetTCPAddr())
	assert.Equal(t, 25, s.GetPlayerLimit())

	t.Setenv("GAME_PLAYER_LIMIT", "many")
	assert.Equal(t, 10, s.GetPlayerLimit(), "Некорректное значение окружения игнорируется")

	s.TCPAddr = ":9000"
	s.PlayerLimit = 3
	assert.Equal(t, ":9000", s.GetTCPAddr(), "Файл конфигурации важнее окружения")
	assert.Equal(t, 3, s.GetPlayerLimit())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  tcp_addr: ":4000"
  player_limit: 4
  tick_ms: 20
world:
  seed: "hello"
  chunks_x: 8
  chunks_y: 4
eventbus:
  url: "nats://127.0.0.1:4222"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Server.GetTCPAddr())
	assert.Equal(t, 4, cfg.Server.GetPlayerLimit())
	assert.Equal(t, 20*time.Millisecond, cfg.Server.TickInterval())
	assert.Equal(t, 8192, cfg.Server.OutboundBuffer, "Не указанные поля берутся по умолчанию")
	assert.Equal(t, "hello", cfg.World.GetSeed())
	assert.Equal(t, 8, cfg.World.ChunksX)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.EventBus.GetURL())
	assert.Equal(t, "WORLD", cfg.EventBus.Stream)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "Явно указанный файл обязан существовать")

	_, err = Load(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "world:\n  chunks_x: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server:\n  max_line_bytes: 10\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "telemetry:\n  sample_ratio: 1.5\n"))
	assert.ErrorContains(t, err, "sample_ratio")
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
