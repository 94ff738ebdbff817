package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
account: alice
keystore_dir: /srv/certchat/keys
ca_dir: /srv/certchat/ca
port: 9100
log_level: debug
advertise: true
`)

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", fc.Account)
	assert.Equal(t, "/srv/certchat/keys", fc.KeystoreDir)
	assert.Equal(t, "/srv/certchat/ca", fc.CADir)
	assert.Equal(t, 9100, fc.Port)
	assert.Equal(t, "debug", fc.LogLevel)
	assert.True(t, fc.Advertise)
}

func TestLoadFileConfigMissing(t *testing.T) {
	fc, err := LoadFileConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &FileConfig{}, fc)
}

func TestLoadFileConfigInvalid(t *testing.T) {
	_, err := LoadFileConfig(writeConfig(t, "account: [unterminated"))
	assert.Error(t, err)

	_, err = LoadFileConfig(writeConfig(t, "port: 70000"))
	assert.Error(t, err)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	t.Setenv(passphraseEnv, "from-env")

	cfg := &Config{
		ConfigFile: writeConfig(t, "account: alice\nca_dir: /file/ca\nlog_level: warn\nport: 9100\n"),
		Account:    "bob",
		LogLevel:   "info",
	}
	explicit := map[string]bool{"account": true}

	require.NoError(t, loadConfig(cfg, explicit))
	assert.Equal(t, "bob", cfg.Account)
	assert.Equal(t, "/file/ca", cfg.CADir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "from-env", cfg.Passphrase)
	assert.NotEmpty(t, cfg.KeystoreDir)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLoadConfigPassphraseFlagWins(t *testing.T) {
	t.Setenv(passphraseEnv, "from-env")

	cfg := &Config{
		ConfigFile: writeConfig(t, ""),
		Account:    "alice",
		Passphrase: "from-flag",
		LogLevel:   "info",
	}
	require.NoError(t, loadConfig(cfg, map[string]bool{"account": true, "passphrase": true}))
	assert.Equal(t, "from-flag", cfg.Passphrase)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("MissingAccount", func(t *testing.T) {
		cfg := &Config{ConfigFile: writeConfig(t, ""), LogLevel: "info"}
		assert.Error(t, loadConfig(cfg, nil))
	})

	t.Run("UnknownLogLevel", func(t *testing.T) {
		cfg := &Config{ConfigFile: writeConfig(t, ""), Account: "alice", LogLevel: "verbose"}
		assert.Error(t, loadConfig(cfg, nil))
	})
}
