package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ConfigManager loads the config file once per invocation. A manager with an
// empty path yields the built-in defaults.
type ConfigManager struct {
	path string

	mu  sync.RWMutex
	cfg *Config
}

func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{path: strings.TrimSpace(path)}
}

func (m *ConfigManager) Path() string { return m.path }

// Parse reads the file onto Defaults(). Unknown fields and trailing data are
// rejected.
func (m *ConfigManager) Parse() (*Config, error) {
	cfg := Defaults()
	if m.path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	format := "json"
	if isYAML(m.path) {
		format = "yaml"
	}
	jb, err := relayConfigJSON(m.path, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, m.path, err)
	}
	if len(bytes.TrimSpace(jb)) == 0 {
		jb = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrInvalid, m.path, format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("%w: %s: trailing data", ErrInvalid, m.path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, m.path, err)
	}
	return cfg, nil
}

// Load parses and validates the file and keeps the result for Get.
func (m *ConfigManager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg, nil
}

func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}
