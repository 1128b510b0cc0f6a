package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.MaxChunk)
	assert.True(t, cfg.ExtractImages)
	assert.False(t, cfg.KeepNav)
	assert.False(t, cfg.IncludeNonLinear)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `max_chunk: 800
extract_images: false
keep_nav: true
extra_placeholders:
  fr:
    - "table des matières"
    - "sommaire"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.MaxChunk)
	assert.False(t, cfg.ExtractImages)
	assert.True(t, cfg.KeepNav)
	assert.Equal(t, []string{"table des matières", "sommaire"}, cfg.ExtraPlaceholders["fr"])
}

func TestLoadConfigSearchesWorkingDirectory(t *testing.T) {
	isolate(t)

	require.NoError(t, os.WriteFile(".epub2md.yaml", []byte("max_chunk: 300\n"), 0o644))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.MaxChunk)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("EPUB2MD_MAX_CHUNK", "450")
	t.Setenv("EPUB2MD_KEEP_NAV", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 450, cfg.MaxChunk)
	assert.True(t, cfg.KeepNav)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxChunk = -1
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.ExtraPlaceholders = map[string][]string{"de": {"  "}}
	assert.Error(t, cfg.Validate())
}
