package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/config"
	"procmem/process"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "procmem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	conf, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, process.ReadWrite, conf.Access)
	assert.Equal(t, 16, conf.BytesPerLine)
	assert.Equal(t, 1<<20, conf.MaxRead)
	assert.False(t, conf.Color)
	assert.False(t, conf.Debug)
}

func TestFile(t *testing.T) {
	path := writeFile(t, "access: read,query\nbytes_per_line: 8\ncolor: true\nmax_read: 4096\n")

	conf, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, process.ReadOnly, conf.Access)
	assert.Equal(t, 8, conf.BytesPerLine)
	assert.True(t, conf.Color)
	assert.Equal(t, 4096, conf.MaxRead)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "access: read\nbytes_per_line: 8\n")
	t.Setenv("PROCMEM_ACCESS", "all")
	t.Setenv("PROCMEM_BYTES_PER_LINE", "32")

	conf, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, process.AllAccess, conf.Access)
	assert.Equal(t, 32, conf.BytesPerLine)
}

func TestNumericAccess(t *testing.T) {
	conf, err := config.Load(writeFile(t, "access: \"0x38\"\n"))
	require.NoError(t, err)
	assert.Equal(t, process.VMRead|process.VMWrite|process.VMOperation, conf.Access)
}

func TestInvalid(t *testing.T) {
	_, err := config.Load(writeFile(t, "access: everything\n"))
	assert.ErrorContains(t, err, "unknown access right")

	for _, body := range []string{
		"bytes_per_line: 0\n",
		"max_read: -1\n",
		"max_read: 1000000000\n",
	} {
		_, err := config.Load(writeFile(t, body))
		assert.ErrorIs(t, err, config.ErrInvalidValue, body)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
