package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dyastin-0/senddone/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndPersistID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senddone.yaml")

	s, err := Load(path)
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, core.DefaultPort, s.Port)
	assert.Equal(t, core.DefaultChunkSize, s.ChunkSize)
	assert.Equal(t, 300*time.Millisecond, s.ScanTimeout)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Validate())

	assert.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senddone.yaml")
	content := "id: desk\nport: 9000\nscan_timeout: 1s\ndownload_dir: /tmp/in\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "desk", s.ID)
	assert.Equal(t, 9000, s.Port)
	assert.Equal(t, time.Second, s.ScanTimeout)
	assert.Equal(t, "/tmp/in", s.DownloadDir)
	assert.Equal(t, 10, s.ScanWindow)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senddone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: desk\nport: 9000\n"), 0644))

	t.Setenv("SENDDONE_PORT", "9100")
	t.Setenv("SENDDONE_DEBUG", "true")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, s.Port)
	assert.True(t, s.Debug)
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senddone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: desk\nport: 0\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Validate(), core.ErrInvalidPort)

	s.Port = core.DefaultPort
	s.DownloadDir = ""
	assert.ErrorIs(t, s.Validate(), ErrNoDownloadDir)
}
