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

func TestLoad_CreatesDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := Load("config.yaml")
	require.NoError(t, err)
	assert.FileExists(t, "config.yaml")
	assert.DirExists(t, "data")

	cfg := m.Get()
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, time.Second, cfg.Providers.MusicBrainz.RateLimit)
	assert.Equal(t, 500, cfg.Images.MaxSize)

	// The written default loads back unchanged.
	again, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg, again.Get())
}

func TestLoad_EnvOverridesAndRedaction(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_path: `+filepath.Join(dir, "store")+`
images:
  max_size: 0
providers:
  discogs:
    enabled: true
`), 0o644))
	t.Setenv("DISCOGS_KEY", "k3y")
	t.Setenv("DISCOGS_SECRET", "s3cret")
	t.Setenv("LISTENLOG_DATABASE_DSN", "postgres://u:p@localhost/listenlog")

	m, err := Load(path)
	require.NoError(t, err)
	cfg := m.Get()
	assert.Equal(t, "k3y", cfg.Providers.Discogs.Key)
	assert.Equal(t, "s3cret", cfg.Providers.Discogs.Secret)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Zero(t, cfg.Images.MaxSize)
	assert.Equal(t, "https://api.discogs.com/", cfg.Providers.Discogs.BaseURL)

	js := m.GetJSON()
	assert.NotContains(t, js, "s3cret")
	assert.NotContains(t, js, "u:p@localhost")
	assert.True(t, strings.Contains(m.GetYAML(), "<redacted>"))
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  type: mysql\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "config validation failed")
}
