package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "civica.log")

	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("linie de log\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "linie de log")
}

func TestRotatingWriter_RotatesAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "civica.log")

	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	line := strings.Repeat("x", 1024)
	// Two writes past 1MB force at least one rotation.
	for i := 0; i < 1100; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	// Unknown values default to info.
	assert.Equal(t, "INFO", parseLevel("verbose").String())
}
