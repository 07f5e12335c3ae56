package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"
)

// Config holds all configuration options for augur.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Thresholds for issue classification
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`

	// External duplicate detector
	External ExternalConfig `koanf:"external" toml:"external"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// AnalysisConfig controls which strategies run and how work is scheduled.
type AnalysisConfig struct {
	Extensions        []string      `koanf:"extensions" toml:"extensions"`
	StructuredParser  bool          `koanf:"structured_parser" toml:"structured_parser"`
	WindowFallback    bool          `koanf:"window_fallback" toml:"window_fallback"`
	Workers           int           `koanf:"workers" toml:"workers"`
	ParallelThreshold int           `koanf:"parallel_threshold" toml:"parallel_threshold"`
	MaxFileSize       int64         `koanf:"max_file_size" toml:"max_file_size"`
	ParseTimeout      time.Duration `koanf:"parse_timeout" toml:"parse_timeout"`
}

// ThresholdConfig defines the limits that turn measurements into issues.
type ThresholdConfig struct {
	FunctionLinesMedium int     `koanf:"function_lines_medium" toml:"function_lines_medium"`
	FunctionLinesHigh   int     `koanf:"function_lines_high" toml:"function_lines_high"`
	ComplexityMedium    int     `koanf:"complexity_medium" toml:"complexity_medium"`
	ComplexityHigh      int     `koanf:"complexity_high" toml:"complexity_high"`
	MinTestRatio        float64 `koanf:"min_test_ratio" toml:"min_test_ratio"`
	MaxAvgComplexity    float64 `koanf:"max_avg_complexity" toml:"max_avg_complexity"`
	WindowLines         int     `koanf:"window_lines" toml:"window_lines"`
	WindowMinChars      int     `koanf:"window_min_chars" toml:"window_min_chars"`
}

// ExternalConfig configures the delegated duplicate-detection tool.
type ExternalConfig struct {
	Command    string        `koanf:"command" toml:"command"`
	Extensions []string      `koanf:"extensions" toml:"extensions"`
	Timeout    time.Duration `koanf:"timeout" toml:"timeout"`
	Threshold  float64       `koanf:"threshold" toml:"threshold"`
	Ignore     []string      `koanf:"ignore" toml:"ignore"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns []string `koanf:"patterns" toml:"patterns"`
	Dirs     []string `koanf:"dirs" toml:"dirs"`
	// RuleIgnoreFiles lists base names skipped by the security rules, such as
	// files that define the rule patterns themselves.
	RuleIgnoreFiles []string `koanf:"rule_ignore_files" toml:"rule_ignore_files"`
	Gitignore       bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, yaml, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Extensions: []string{
				".ts", ".tsx", ".js", ".jsx", ".vue",
				".py", ".java", ".cpp", ".c", ".cs",
				".php", ".rb", ".go", ".rs", ".swift", ".kt",
			},
			StructuredParser:  true,
			WindowFallback:    true,
			Workers:           DefaultWorkers(),
			ParallelThreshold: 10,
			MaxFileSize:       1 << 20,
			ParseTimeout:      5 * time.Second,
		},
		Thresholds: ThresholdConfig{
			FunctionLinesMedium: 50,
			FunctionLinesHigh:   100,
			ComplexityMedium:    10,
			ComplexityHigh:      20,
			MinTestRatio:        0.1,
			MaxAvgComplexity:    20,
			WindowLines:         10,
			WindowMinChars:      100,
		},
		External: ExternalConfig{
			Command:    "jscpd",
			Extensions: []string{".js", ".jsx", ".ts", ".tsx"},
			Timeout:    300 * time.Second,
			Threshold:  0,
			Ignore: []string{
				"**/node_modules/**",
				"**/dist/**",
				"**/build/**",
				"**/coverage/**",
				"**/.git/**",
				"**/.next/**",
				"**/.nuxt/**",
				"**/vendor/**",
			},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.bundle.js",
			},
			Dirs: []string{
				"node_modules",
				".git",
				"dist",
				"build",
				"coverage",
				".next",
				".nuxt",
				"__pycache__",
				".pytest_cache",
				"vendor",
				".vscode",
				".idea",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// DefaultWorkers derives the worker count from available CPUs, falling back to 4.
func DefaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"augur.toml",
		"augur.yaml",
		"augur.yml",
		"augur.json",
		".augur.toml",
		".augur.yaml",
		".augur.yml",
		".augur.json",
	}

	for _, dir := range []string{".", ".augur"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				if cfg, err := Load(path); err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1, got %d", c.Analysis.Workers)
	}
	if c.Analysis.ParallelThreshold < 0 {
		return fmt.Errorf("analysis.parallel_threshold must not be negative")
	}
	if c.Thresholds.FunctionLinesHigh < c.Thresholds.FunctionLinesMedium {
		return fmt.Errorf("thresholds.function_lines_high must be >= function_lines_medium")
	}
	if c.Thresholds.ComplexityHigh < c.Thresholds.ComplexityMedium {
		return fmt.Errorf("thresholds.complexity_high must be >= complexity_medium")
	}
	if c.External.Threshold < 0 || c.External.Threshold > 100 {
		return fmt.Errorf("external.threshold must be within [0, 100], got %v", c.External.Threshold)
	}
	return nil
}

// EncodeTOML renders the configuration as a TOML document.
func (c *Config) EncodeTOML() ([]byte, error) {
	out, err := gotoml.Marshal(*c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to TOML: %w", err)
	}
	return out, nil
}

// ShouldExclude checks if a slash-separated relative path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		for _, dir := range c.Exclude.Dirs {
			if part == dir {
				return true
			}
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
