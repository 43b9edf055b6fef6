package linter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xivanalysis/xivlint/pkg/jsast"
)

var (
	// ErrUnknownPreset is returned when extends names a preset that does not exist
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrPluginNotLoaded is returned when a rule is configured without its plugin
	ErrPluginNotLoaded = errors.New("plugin not loaded")
	// ErrInvalidSeverity is returned for rule settings that are not a known severity
	ErrInvalidSeverity = errors.New("invalid severity")
)

// ConfigFileNames are searched in order by LoadConfigFromDir
var ConfigFileNames = []string{".xivlint.yaml", ".xivlint.yml", "xivlint.yaml", "xivlint.yml"}

// Config represents the linting configuration
type Config struct {
	Version    string                 `yaml:"version"`
	Extends    []string               `yaml:"extends,omitempty"`
	Plugins    []string               `yaml:"plugins,omitempty"`
	Rules      map[string]interface{} `yaml:"rules,omitempty"`
	Ignore     []string               `yaml:"ignore,omitempty"`
	Extensions []string               `yaml:"extensions,omitempty"`
	MaxWorkers int                    `yaml:"max_workers"`
	Cache      CacheConfig            `yaml:"cache"`
}

// CacheConfig configures the result caches
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl,omitempty"`
	// RedisURL enables a cache shared between machines
	RedisURL string `yaml:"redis_url,omitempty"`
}

// RuleSetting is the resolved configuration of a single rule
type RuleSetting struct {
	Severity Severity
	Options  []interface{}
}

// DefaultConfig returns the shareable client configuration
func DefaultConfig() *Config {
	return &Config{
		Version:    "v1",
		Extends:    []string{PresetClient},
		Rules:      make(map[string]interface{}),
		Ignore:     []string{"node_modules/**", "build/**", "dist/**"},
		Extensions: defaultExtensions(),
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
		},
	}
}

func defaultExtensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"}
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	config.applyDefaults()

	if err := config.validateExtensions(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if _, err := config.ResolveRules(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &config, nil
}

// LoadConfigFromDir searches for config file in directory
func LoadConfigFromDir(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}

	// Return default if no config found
	return DefaultConfig(), nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "v1"
	}
	if c.Rules == nil {
		c.Rules = make(map[string]interface{})
	}
	if len(c.Extensions) == 0 {
		c.Extensions = defaultExtensions()
	}
}

// validateExtensions rejects extensions that no grammar can parse
func (c *Config) validateExtensions() error {
	for _, ext := range c.Extensions {
		if _, err := jsast.DetectLanguage("file" + ext); err != nil {
			return fmt.Errorf("extension %q: %w", ext, jsast.ErrUnsupportedLanguage)
		}
	}
	return nil
}

// Fingerprint identifies the settings that affect lint results. Cache and
// worker settings are left out.
func (c *Config) Fingerprint() string {
	lint := *c
	lint.Cache = CacheConfig{}
	lint.MaxWorkers = 0
	data, err := yaml.Marshal(&lint)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HasExtension reports whether path has one of the configured extensions
func (c *Config) HasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// IsIgnored reports whether a slash separated path relative to the lint
// root matches an ignore pattern. "dir/**" matches everything below dir.
func (c *Config) IsIgnored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Ignore {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// ResolveRules flattens extends, plugins and rule settings into the final
// per-rule configuration. Later entries override earlier ones; a setting
// that only changes severity keeps the options it inherited.
func (c *Config) ResolveRules() (map[string]RuleSetting, error) {
	settings := make(map[string]RuleSetting)
	plugins := make(map[string]bool)
	if err := c.resolveInto(settings, plugins, make(map[string]bool)); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ns := PluginOf(name); ns != "" && !plugins[ns] {
			return nil, fmt.Errorf("%w: rule %s requires plugin %s", ErrPluginNotLoaded, name, ns)
		}
	}

	return settings, nil
}

func (c *Config) resolveInto(settings map[string]RuleSetting, plugins, seen map[string]bool) error {
	for _, name := range c.Extends {
		preset, ok := presets[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := preset.resolveInto(settings, plugins, seen); err != nil {
			return err
		}
	}

	for _, p := range c.Plugins {
		plugins[p] = true
	}

	for name, raw := range c.Rules {
		setting, err := parseRuleSetting(raw)
		if err != nil {
			return fmt.Errorf("rule %s: %w", name, err)
		}
		if prev, ok := settings[name]; ok && setting.Options == nil {
			setting.Options = prev.Options
		}
		settings[name] = setting
	}

	return nil
}

// PluginOf returns the plugin namespace of a rule name, "" for core rules
func PluginOf(rule string) string {
	i := strings.LastIndex(rule, "/")
	if i < 0 {
		return ""
	}
	return rule[:i]
}

func parseRuleSetting(raw interface{}) (RuleSetting, error) {
	switch v := raw.(type) {
	case []interface{}:
		if len(v) == 0 {
			return RuleSetting{}, fmt.Errorf("%w: empty setting", ErrInvalidSeverity)
		}
		severity, err := parseSeverity(v[0])
		if err != nil {
			return RuleSetting{}, err
		}
		setting := RuleSetting{Severity: severity}
		if len(v) > 1 {
			setting.Options = v[1:]
		}
		return setting, nil
	case []string:
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		return parseRuleSetting(items)
	default:
		severity, err := parseSeverity(v)
		if err != nil {
			return RuleSetting{}, err
		}
		return RuleSetting{Severity: severity}, nil
	}
}

func parseSeverity(raw interface{}) (Severity, error) {
	switch v := raw.(type) {
	case string:
		switch strings.ToLower(v) {
		case "off":
			return SeverityOff, nil
		case "info":
			return SeverityInfo, nil
		case "warn", "warning":
			return SeverityWarning, nil
		case "error":
			return SeverityError, nil
		}
	case Severity:
		return parseSeverity(string(v))
	case int:
		switch v {
		case 0:
			return SeverityOff, nil
		case 1:
			return SeverityWarning, nil
		case 2:
			return SeverityError, nil
		}
	case bool:
		if v {
			return SeverityError, nil
		}
		return SeverityOff, nil
	}
	return "", fmt.Errorf("%w: %v", ErrInvalidSeverity, raw)
}
