package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnvReportsMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	var buf bytes.Buffer
	loadDotEnv(&buf)
	assert.Contains(t, buf.String(), "No .env file found")
}

func TestLoadDotEnvReadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BETINHO_DOTENV_TEST_KEY=1\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("BETINHO_DOTENV_TEST_KEY") })

	var buf bytes.Buffer
	loadDotEnv(&buf)
	assert.Empty(t, buf.String())
	assert.Equal(t, "1", os.Getenv("BETINHO_DOTENV_TEST_KEY"))
}
