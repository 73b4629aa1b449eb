package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"morningstar/internal/changelog"
)

const FileName = "morningstar.yml"

// Config models morningstar.yml.
type Config struct {
	Paths struct {
		State     string `yaml:"state"`
		Changelog string `yaml:"changelog"`
		Backups   string `yaml:"backups"`
		Sessions  string `yaml:"sessions"`
		Journal   string `yaml:"journal"`
	} `yaml:"paths"`
	Backup struct {
		Keep int `yaml:"keep"`
	} `yaml:"backup"`
	Changelog struct {
		Sources changelog.Sources `yaml:"sources"`
	} `yaml:"changelog"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Read struct {
		Strict bool `yaml:"strict"`
	} `yaml:"read"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with ms init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	paths := map[string]string{
		"paths.state":     c.Paths.State,
		"paths.changelog": c.Paths.Changelog,
		"paths.backups":   c.Paths.Backups,
		"paths.sessions":  c.Paths.Sessions,
		"paths.journal":   c.Paths.Journal,
	}
	for key, p := range paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("config.%s is required", key)
		}
	}
	state := filepath.Clean(c.Paths.State)
	if filepath.IsAbs(state) || escapes(state) {
		return fmt.Errorf("config.paths.state must be relative to the workspace")
	}
	stateDir := filepath.Dir(state)
	if stateDir == "." {
		return fmt.Errorf("config.paths.state must be inside a directory")
	}
	if state == filepath.Clean(c.Paths.Changelog) {
		return fmt.Errorf("config.paths.state and config.paths.changelog must differ")
	}
	// Restore replaces the whole state directory.
	for _, key := range []string{"paths.changelog", "paths.backups", "paths.sessions", "paths.journal"} {
		if within(stateDir, paths[key]) {
			return fmt.Errorf("config.%s must not be inside the state directory %s", key, stateDir)
		}
	}
	if c.Backup.Keep < 1 {
		return fmt.Errorf("config.backup.keep must be at least 1")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config.log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format %q must be text or json", c.Log.Format)
	}
	if c.Changelog.Sources.Court == "" || c.Changelog.Sources.Prophet == "" {
		return fmt.Errorf("config.changelog.sources.court and prophet are required")
	}
	return nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// within reports whether relative path p is dir or lies below it.
func within(dir, p string) bool {
	if filepath.IsAbs(p) {
		return false
	}
	rel, err := filepath.Rel(dir, filepath.Clean(p))
	return err == nil && !escapes(rel)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Resolve returns p anchored at workspace unless it is already absolute.
func Resolve(workspace, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, p)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys the file
// leaves out keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `paths:
  state: state/current.md
  changelog: CHANGELOG.md
  backups: backups
  sessions: sessions
  journal: .morningstar/journal.db

backup:
  keep: 10

changelog:
  sources:
    court: The Court
    prophet: The Prophet
    vindicated: The Prophet, Vindicated
    in_progress: Session in progress

log:
  level: info
  format: text

read:
  strict: false
`
