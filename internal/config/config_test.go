package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacesim/internal/engine"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "spacesim.db", cfg.DB.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ShipTokenTTL)
	assert.Equal(t, engine.DefaultSubSteps, cfg.Engine.SubSteps)
	assert.Equal(t, engine.DefaultDecisionTimeout, cfg.Engine.DecisionTimeout)
	assert.Equal(t, engine.DefaultStealthTime, cfg.Engine.StealthTime)
	assert.Zero(t, cfg.Engine.HistoryLimit, "history is kept whole unless capped")
	assert.Equal(t, 50*time.Millisecond, cfg.Match.TickRate)
	assert.Equal(t, 100, cfg.Match.SnapshotEvery)
	assert.Equal(t, int64(20000), cfg.Match.MaxTicks)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
logLevel: debug
http:
  addr: ":9000"
engine:
  subSteps: 4
  decisionTimeout: 20ms
match:
  tickRate: 100ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 4, cfg.Engine.SubSteps)
	assert.Equal(t, 20*time.Millisecond, cfg.Engine.DecisionTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Match.TickRate)
}

func TestLoad_TOMLFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	toml := "[db]\npath = \"arena.db\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spacesim.toml"), []byte(toml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "arena.db", cfg.DB.Path)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SPACESIM_HTTP_ADDR", ":7000")
	t.Setenv("SPACESIM_MATCH_MAXTICKS", "99")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, int64(99), cfg.Match.MaxTicks)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/spacesim.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SPACESIM_ENGINE_DECISIONTIMEOUT", "1s")
	_, err := Load("")
	assert.ErrorContains(t, err, "decisionTimeout")
}
