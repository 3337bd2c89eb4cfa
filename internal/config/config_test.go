package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60, cfg.Server.TimerSec)
	assert.Equal(t, 15*time.Second, cfg.CooldownDurations()["primary"])
	assert.Equal(t, time.Second, cfg.PollInterval())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  timer_sec: 45
cooldowns:
  primary: 20
keys:
  backend: dry-run
client:
  cooldowns: false
`), 0o644))

	t.Setenv("SP_TIMER_SEC", "90")
	t.Setenv("SP_ALLOWED_ORIGINS", "http://localhost:3000, https://obs.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 90, cfg.Server.TimerSec, "env wins over file")
	assert.Equal(t, 30, cfg.Server.ResetSec, "default kept")
	assert.Equal(t, 20, cfg.Cooldowns["primary"])
	assert.Equal(t, 10, cfg.Cooldowns["camera"], "yaml merges into the default map")
	assert.Equal(t, KeysDryRun, cfg.Keys.Backend)
	assert.False(t, cfg.Client.Cooldowns)
	assert.Equal(t, []string{"http://localhost:3000", "https://obs.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_IgnoresMalformedEnv(t *testing.T) {
	t.Setenv("SP_TIMER_SEC", "soon")
	t.Setenv("SP_COOLDOWNS", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Server.TimerSec)
	assert.True(t, cfg.Client.Cooldowns)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Server.TimerSec = 0
	cfg.Server.ResetSec = -1
	cfg.Cooldowns["zoom_in"] = 0
	cfg.Keys.Backend = "robot"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Len(t, multierr.Errors(err), 4)
}
