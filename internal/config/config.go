package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for rtlscan
type Config struct {
	// Top names the top-level module when inference finds more than one root
	Top string `yaml:"top,omitempty"`

	// Files selects the source units to scan
	Files FilesConfig `yaml:"files,omitempty"`

	// Extraction tunes the per-file extractor
	Extraction ExtractionConfig `yaml:"extraction,omitempty"`

	// Analysis contains assembly options
	Analysis AnalysisConfig `yaml:"analysis,omitempty"`

	// Checks contains design-check rule configuration
	Checks ChecksConfig `yaml:"checks,omitempty"`
}

// FilesConfig selects source units relative to the project root
type FilesConfig struct {
	// Include is a list of glob patterns; ** matches any directory depth
	Include []string `yaml:"include,omitempty"`

	// Exclude is a list of glob patterns removed from the included set
	Exclude []string `yaml:"exclude,omitempty"`

	// Extensions restricts matches to these file extensions
	Extensions []string `yaml:"extensions,omitempty"`

	// IgnoreDirs are directory names never descended into
	IgnoreDirs []string `yaml:"ignoreDirs,omitempty"`
}

// ExtractionConfig holds the clock and reset vocabularies
type ExtractionConfig struct {
	ClockTokens []string `yaml:"clockTokens,omitempty"`
	ResetTokens []string `yaml:"resetTokens,omitempty"`
}

// CacheConfig controls the extraction cache
type CacheConfig struct {
	// Enabled turns on cache usage
	Enabled *bool `yaml:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `yaml:"dir,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `yaml:"maxParallelFiles,omitempty"`

	// FailOnConflict turns duplicate module definitions into an error
	FailOnConflict bool `yaml:"failOnConflict,omitempty"`

	// MaxInstancePaths bounds the clock-domain walk (0 = default)
	MaxInstancePaths int `yaml:"maxInstancePaths,omitempty"`

	// Cache controls the extraction cache
	Cache CacheConfig `yaml:"cache,omitempty"`
}

// ChecksConfig contains design-check configuration
type ChecksConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `yaml:"rules,omitempty"`
}

const (
	defaultCacheDir         = ".rtlscan_cache"
	defaultMaxInstancePaths = 100000
)

var (
	defaultInclude    = []string{"**/*.v", "**/*.sv"}
	defaultExtensions = []string{".v", ".sv"}
	defaultIgnoreDirs = []string{".git", "node_modules", defaultCacheDir}
)

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Files: FilesConfig{
			Include:    append([]string(nil), defaultInclude...),
			Exclude:    []string{},
			Extensions: append([]string(nil), defaultExtensions...),
			IgnoreDirs: append([]string(nil), defaultIgnoreDirs...),
		},
		Extraction: ExtractionConfig{
			ClockTokens: []string{"clk", "clock"},
			ResetTokens: []string{"rst", "reset"},
		},
		Analysis: AnalysisConfig{
			MaxParallelFiles: 0, // auto
			Cache: CacheConfig{
				Enabled: boolPtr(false),
				Dir:     defaultCacheDir,
			},
		},
		Checks: ChecksConfig{
			Rules: map[string]string{},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./rtlscan.yaml, then ./.rtlscan.yaml (current working directory)
//  2. <rootPath>/rtlscan.yaml, then <rootPath>/.rtlscan.yaml (if different from cwd)
//  3. ~/.config/rtlscan/config.yaml
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "rtlscan.yaml"),
		filepath.Join(cwd, ".rtlscan.yaml"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "rtlscan.yaml"),
				filepath.Join(rootPath, ".rtlscan.yaml"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "rtlscan", "config.yaml"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file. JSON files are
// accepted as well since JSON is a subset of YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Files.Include) == 0 {
		c.Files.Include = append([]string(nil), defaultInclude...)
	}
	if len(c.Files.Extensions) == 0 {
		c.Files.Extensions = append([]string(nil), defaultExtensions...)
	}
	if c.Files.IgnoreDirs == nil {
		c.Files.IgnoreDirs = append([]string(nil), defaultIgnoreDirs...)
	}

	if len(c.Extraction.ClockTokens) == 0 {
		c.Extraction.ClockTokens = []string{"clk", "clock"}
	}
	if len(c.Extraction.ResetTokens) == 0 {
		c.Extraction.ResetTokens = []string{"rst", "reset"}
	}

	if c.Checks.Rules == nil {
		c.Checks.Rules = make(map[string]string)
	}

	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = defaultCacheDir
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(false)
	}
}

// Validate rejects settings that cannot be acted on
func (c *Config) Validate() error {
	if c.Analysis.MaxParallelFiles < 0 {
		return fmt.Errorf("analysis.maxParallelFiles must not be negative, got %d", c.Analysis.MaxParallelFiles)
	}
	if c.Analysis.MaxInstancePaths < 0 {
		return fmt.Errorf("analysis.maxInstancePaths must not be negative, got %d", c.Analysis.MaxInstancePaths)
	}
	for rule, severity := range c.Checks.Rules {
		switch severity {
		case "off", "info", "warning", "error":
		default:
			return fmt.Errorf("checks.rules.%s: unknown severity %q", rule, severity)
		}
	}
	return nil
}

// Save writes the configuration to a file as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Workers returns the number of files to extract concurrently
func (c *Config) Workers() int {
	if c.Analysis.MaxParallelFiles > 0 {
		return c.Analysis.MaxParallelFiles
	}
	return runtime.NumCPU()
}

// InstancePathLimit returns how many instance paths the clock-domain walk
// may visit
func (c *Config) InstancePathLimit() int {
	if c.Analysis.MaxInstancePaths > 0 {
		return c.Analysis.MaxInstancePaths
	}
	return defaultMaxInstancePaths
}

// CacheEnabled reports whether the extraction cache is on
func (c *Config) CacheEnabled() bool {
	return c.Analysis.Cache.Enabled != nil && *c.Analysis.Cache.Enabled
}

// CacheDir returns the cache directory resolved against rootPath
func (c *Config) CacheDir(rootPath string) string {
	dir := c.Analysis.Cache.Dir
	if dir == "" {
		dir = defaultCacheDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(rootPath, dir)
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Checks.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Checks.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}
