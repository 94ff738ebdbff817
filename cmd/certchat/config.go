package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	passphraseEnv = "CERTCHAT_PASSPHRASE"
	homeDirName   = ".certchat"
)

// FileConfig is the YAML configuration file. Command-line flags override
// every field. The passphrase is deliberately absent.
type FileConfig struct {
	Account     string `yaml:"account"`
	KeystoreDir string `yaml:"keystore_dir"`
	CADir       string `yaml:"ca_dir"`
	StateDir    string `yaml:"state_dir"`
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	ProtocolLog string `yaml:"protocol_log"`
	Advertise   bool   `yaml:"advertise"`
	Interface   string `yaml:"interface"`
}

// baseDir returns ~/.certchat, or ./.certchat without a home directory.
func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", homeDirName)
	}
	return filepath.Join(home, homeDirName)
}

// DefaultConfigPath returns ~/.certchat/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// LoadFileConfig reads a YAML configuration file.
// A missing file yields an empty FileConfig and no error.
func LoadFileConfig(path string) (*FileConfig, error) {
	fc := &FileConfig{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fc, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if fc.Port < 0 || fc.Port > 65535 {
		return nil, fmt.Errorf("%s: port %d out of range", path, fc.Port)
	}
	return fc, nil
}

// loadConfig merges the config file and environment into cfg. Flags named
// in explicit were set on the command line and are left alone.
func loadConfig(cfg *Config, explicit map[string]bool) error {
	path := cfg.ConfigFile
	if path == "" {
		path = DefaultConfigPath()
	}
	fc, err := LoadFileConfig(path)
	if err != nil {
		return err
	}

	applyFileConfig(cfg, fc, explicit)

	if cfg.Passphrase == "" {
		cfg.Passphrase = os.Getenv(passphraseEnv)
	}
	applyDefaults(cfg)
	return validateConfig(cfg)
}

func applyFileConfig(cfg *Config, fc *FileConfig, explicit map[string]bool) {
	setString := func(flagName string, dst *string, v string) {
		if !explicit[flagName] && v != "" {
			*dst = v
		}
	}
	setString("account", &cfg.Account, fc.Account)
	setString("keystore-dir", &cfg.KeystoreDir, fc.KeystoreDir)
	setString("ca-dir", &cfg.CADir, fc.CADir)
	setString("state-dir", &cfg.StateDir, fc.StateDir)
	setString("log-level", &cfg.LogLevel, fc.LogLevel)
	setString("protocol-log", &cfg.ProtocolLog, fc.ProtocolLog)
	setString("interface", &cfg.Interface, fc.Interface)

	if !explicit["advertise"] && fc.Advertise {
		cfg.Advertise = true
	}
	if fc.Port != 0 {
		cfg.Port = strconv.Itoa(fc.Port)
	}
}

func applyDefaults(cfg *Config) {
	base := baseDir()
	if cfg.KeystoreDir == "" {
		cfg.KeystoreDir = filepath.Join(base, "keystore")
	}
	if cfg.CADir == "" {
		cfg.CADir = filepath.Join(base, "ca")
	}
	if cfg.StateDir == "" {
		cfg.StateDir = base
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", cfg.LogLevel)
	}
	if cfg.Account == "" {
		return fmt.Errorf("account is required (-account or config file)")
	}
	return nil
}
