// Package config holds the CLI configuration: the user config file with
// catalog and replay defaults, and the record flag set that overrides a
// script's settings.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const DefaultAddr = ":8766"

type Config struct {
	Catalog    string
	Addr       string
	Token      string
	ConfigPath string
}

// Load reads the user config file, if any, on top of the defaults.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFrom(filepath.Join(homeDir, ".config", "scriptcast", "config"))
}

func LoadFrom(path string) (*Config, error) {
	cfg := &Config{
		Addr:       DefaultAddr,
		ConfigPath: path,
	}
	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return cfg, nil
}

// EnsureToken generates and persists a replay token when none is configured.
func (c *Config) EnsureToken() error {
	if c.Token != "" {
		return nil
	}
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	c.Token = token
	if err := c.saveToFile(); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "Catalog":
			c.Catalog = expandHome(value)
		case "Addr":
			c.Addr = value
		case "Token":
			c.Token = value
		}
	}
	return nil
}

func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data := fmt.Sprintf("Catalog=%s\nAddr=%s\nToken=%s\n", c.Catalog, c.Addr, c.Token)
	return os.WriteFile(c.ConfigPath, []byte(data), 0600)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
