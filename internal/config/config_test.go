package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "data", "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "08:00", cfg.Grid.DayStart)
	assert.Equal(t, "20:30", cfg.Grid.DayEnd)
	assert.Equal(t, 30, cfg.Grid.SlotMinutes)
	assert.Equal(t, 15*time.Minute, cfg.HoldDuration())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.Equal(t, time.Duration(0), cfg.MinAdvance())
	assert.Equal(t, 30*24*time.Hour, cfg.MaxAdvance())
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
server:
  port: 9000
  admin_token: secret
  rate_limit_per_minute: 60
database:
  path: `+filepath.Join(dir, "test.db")+`
redis:
  address: localhost:6379
  cache_ttl_seconds: 120
booking:
  hold_minutes: 10
  min_advance_minutes: 30
  max_advance_days: 14
  max_active_per_user: 3
sweeper:
  interval_seconds: 30
rooms:
  - id: 1
    name: Quiet Study A
    capacity: 4
  - id: 3
    name: Seminar Room
    capacity: 12
    has_projector: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.AdminToken)
	assert.Equal(t, 10*time.Minute, cfg.HoldDuration())
	assert.Equal(t, 30*time.Minute, cfg.MinAdvance())
	assert.Equal(t, 14*24*time.Hour, cfg.MaxAdvance())
	assert.Equal(t, 30*time.Second, cfg.SweepInterval())
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	require.Len(t, cfg.Rooms, 2)
	assert.True(t, cfg.Rooms[1].HasProjector)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("ROOMRESERVE_TEST_TOKEN", "from-env")
	dir := t.TempDir()
	path := writeConfig(t, `
server:
  admin_token: ${ROOMRESERVE_TEST_TOKEN}
database:
  path: `+filepath.Join(dir, "test.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.AdminToken)
}

func TestLoadRejectsBadRooms(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "test.db")+`
rooms:
  - id: 1
    name: Broken
    capacity: 0
`)

	_, err := Load(path)
	assert.Error(t, err)
}
