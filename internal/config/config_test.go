package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv hides settings of the surrounding environment from the test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		KeyPort, KeyDBDriver, KeyDBHost, KeyDBUser, KeyDBPassword, KeyDBName, KeyDBPath,
		KeyGinLogging, KeyGinMode, KeyOwnerId, KeyMaxFileSize, KeyEncodings, KeyRetentionDays,
	} {
		t.Setenv(key, "")
	}
}

// TestLoadDefaults expects the defaults when neither a file nor environment variables are set.
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.True(t, cfg.GinLogging)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, []string{"utf-8", "latin1"}, cfg.Encodings)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.ErrorContains(t, cfg.Validate(), KeyOwnerId)
}

// TestLoadEnvironment expects environment variables to override the defaults.
func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(KeyPort, "9090")
	t.Setenv(KeyDBDriver, "sqlite3")
	t.Setenv(KeyDBPath, "/tmp/contacts.db")
	t.Setenv(KeyGinLogging, "OFF")
	t.Setenv(KeyOwnerId, "7614202330")
	t.Setenv(KeyEncodings, " utf-8 , windows-1252 ,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.GinLogging)
	assert.Equal(t, int64(7614202330), cfg.OwnerId)
	assert.Equal(t, []string{"utf-8", "windows-1252"}, cfg.Encodings)
	assert.Equal(t, "/tmp/contacts.db?_journal_mode=WAL&_busy_timeout=5000", cfg.DSN())
	assert.NoError(t, cfg.Validate())
}

// TestLoadFile reads a YAML file with an encoding list. It expects that the environment still
// wins over the file.
func TestLoadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyPort, "7070")
	file := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
PORT: "8081"
OWNER_ID: 42
MAX_FILE_SIZE: 1024
ENCODINGS:
  - utf-8
  - iso-8859-15
`), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, int64(42), cfg.OwnerId)
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, []string{"utf-8", "iso-8859-15"}, cfg.Encodings)
}

// TestLoadMissingFile expects an error when an explicitly named file does not exist.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestValidate collects every problem of a broken configuration.
func TestValidate(t *testing.T) {
	cfg := &Config{Port: "http", DBDriver: "postgres", MaxFileSize: 0, RetentionDays: -1}
	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{KeyOwnerId, KeyPort, KeyDBDriver, KeyMaxFileSize, KeyEncodings, KeyRetentionDays} {
		assert.ErrorContains(t, err, key)
	}
}
