package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-jsonnet"
	"sigs.k8s.io/yaml"
)

// Config is the top-level configuration for esi-codegen
type Config struct {
	// Inputs is a list of glob patterns for ESI files; ** matches any depth
	Inputs []string `json:"inputs,omitempty"`

	// Exclude is a list of glob patterns removed from Inputs
	Exclude []string `json:"exclude,omitempty"`

	// Output controls which artifacts are written and where
	Output OutputConfig `json:"output,omitempty"`

	// Render names the generated C symbols
	Render RenderConfig `json:"render,omitempty"`

	// Lint contains dictionary lint rule configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Check controls the post-render sanity check
	Check CheckConfig `json:"check,omitempty"`

	// Analysis contains pipeline options
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// OutputConfig selects the generated artifacts
type OutputConfig struct {
	// Dir is where artifacts go; empty writes next to each input
	Dir string `json:"dir,omitempty"`

	// Records writes <input>.json
	Records *bool `json:"records,omitempty"`

	// Header writes <name>.h with the struct declaration
	Header *bool `json:"header,omitempty"`

	// Objd appends the objd_t table to the header
	Objd *bool `json:"objd,omitempty"`
}

// RenderConfig names the generated C symbols
type RenderConfig struct {
	StructName string `json:"structName,omitempty"`
	VarName    string `json:"varName,omitempty"`
	TableName  string `json:"tableName,omitempty"`
	TestGuard  string `json:"testGuard,omitempty"`
}

// LintConfig contains linting configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`

	// PolicyDir holds extra .rego files evaluated with the built-in rules
	PolicyDir string `json:"policyDir,omitempty"`

	// IgnorePatterns is a list of file patterns to skip entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`

	// FailOnError fails a file when a lint rule reports an error
	FailOnError *bool `json:"failOnError,omitempty"`
}

// CheckConfig controls the syntax check of generated C
type CheckConfig struct {
	Syntax *bool `json:"syntax,omitempty"`
}

// CacheConfig controls the resolved-records cache
type CacheConfig struct {
	// Enabled turns on cache usage
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty"`
}

// AnalysisConfig contains pipeline options
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty"`

	// Cache controls the resolved-records cache
	Cache CacheConfig `json:"cache,omitempty"`

	// TimingFile receives JSONL stage timings; empty disables
	TimingFile string `json:"timingFile,omitempty"`

	// MetricsFile receives Prometheus text-format counters; empty disables
	MetricsFile string `json:"metricsFile,omitempty"`
}

const defaultCacheDir = ".esi_codegen_cache"

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Inputs:  []string{"*.xml", "**/*.xml"},
		Exclude: []string{},
		Output: OutputConfig{
			Records: boolPtr(true),
			Header:  boolPtr(true),
			Objd:    boolPtr(true),
		},
		Render: RenderConfig{
			StructName: "SDO",
			VarName:    "sdo",
			TableName:  "source_SDOs",
			TestGuard:  "ESI_TO_CPP_TEST",
		},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
			FailOnError:    boolPtr(false),
		},
		Check: CheckConfig{
			Syntax: boolPtr(true),
		},
		Analysis: AnalysisConfig{
			MaxParallelFiles: 0, // auto
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     defaultCacheDir,
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Enabled dereferences an optional switch; nil counts as on.
func Enabled(v *bool) bool {
	return v == nil || *v
}

var configNames = []string{
	"esi_codegen.json",
	".esi_codegen.json",
	"esi_codegen.jsonnet",
	"esi_codegen.yaml",
}

// Load finds and loads the configuration file
// Search order:
//  1. ./esi_codegen.json, ./.esi_codegen.json, ./esi_codegen.jsonnet,
//     ./esi_codegen.yaml (current working directory)
//  2. the same names under <rootPath> (if a directory different from cwd)
//  3. ~/.config/esi_codegen/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range configNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range configNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "esi_codegen", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file. The format follows the
// extension: .json, .jsonnet, or .yaml/.yml. Unknown fields are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
	case ".jsonnet", ".libsonnet":
		vm := jsonnet.MakeVM()
		vm.Importer(&jsonnet.FileImporter{
			JPaths: []string{filepath.Dir(path)},
		})
		out, err := vm.EvaluateAnonymousSnippet(path, string(data))
		if err != nil {
			return nil, fmt.Errorf("evaluating config file: %w", err)
		}
		data = []byte(out)
	case ".yaml", ".yml":
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension %q", ext)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Inputs == nil {
		c.Inputs = def.Inputs
	}
	if c.Output.Records == nil {
		c.Output.Records = def.Output.Records
	}
	if c.Output.Header == nil {
		c.Output.Header = def.Output.Header
	}
	if c.Output.Objd == nil {
		c.Output.Objd = def.Output.Objd
	}

	if c.Render.StructName == "" {
		c.Render.StructName = def.Render.StructName
	}
	if c.Render.VarName == "" {
		c.Render.VarName = def.Render.VarName
	}
	if c.Render.TableName == "" {
		c.Render.TableName = def.Render.TableName
	}
	if c.Render.TestGuard == "" {
		c.Render.TestGuard = def.Render.TestGuard
	}

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
	if c.Lint.FailOnError == nil {
		c.Lint.FailOnError = boolPtr(false)
	}

	if c.Check.Syntax == nil {
		c.Check.Syntax = boolPtr(true)
	}

	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = defaultCacheDir
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file should be skipped entirely
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
