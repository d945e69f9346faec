// Package config loads psiscan settings from YAML, environment and flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/fluctuation"
)

// EnvPrefix prefixes environment overrides, e.g. PSISCAN_CALCULATION_SEGMENTS.
const EnvPrefix = "PSISCAN"

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "psiscan.yaml"

// Zero set sources.
const (
	ZeroSourceAsymptotic = "asymptotic"
	ZeroSourceRefined    = "refined"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ==================== CONFIGURATION STRUCTURES ====================

type CalculationConfig struct {
	Sigmas []float64 `mapstructure:"sigmas" yaml:"sigmas"`
	Ts     []float64 `mapstructure:"t_values" yaml:"t_values"`
	// Limit is the upper integration bound; 0 means LimitFactor·T.
	Limit             float64       `mapstructure:"limit" yaml:"limit"`
	LimitFactor       float64       `mapstructure:"limit_factor" yaml:"limit_factor"`
	Segments          int           `mapstructure:"segments" yaml:"segments"`
	AbsTol            float64       `mapstructure:"abs_tol" yaml:"abs_tol"`
	RelTol            float64       `mapstructure:"rel_tol" yaml:"rel_tol"`
	MaxSubdivisions   int           `mapstructure:"max_subdivisions" yaml:"max_subdivisions"`
	ConvergencePolicy string        `mapstructure:"convergence_policy" yaml:"convergence_policy"`
	RelaxFactor       float64       `mapstructure:"relax_factor" yaml:"relax_factor"`
	SegmentTimeout    time.Duration `mapstructure:"segment_timeout" yaml:"segment_timeout"`
}

type ZerosConfig struct {
	Source          string  `mapstructure:"source" yaml:"source"`
	Count           int     `mapstructure:"count" yaml:"count"`
	RefineStep      float64 `mapstructure:"refine_step" yaml:"refine_step"`
	MaxHeight       float64 `mapstructure:"max_height" yaml:"max_height"`
	SmallXThreshold float64 `mapstructure:"small_x_threshold" yaml:"small_x_threshold"`
	ConstantTerm    float64 `mapstructure:"constant_term" yaml:"constant_term"`
}

type OutputConfig struct {
	SaveSamples     bool   `mapstructure:"save_samples" yaml:"save_samples"`
	SaveSummary     bool   `mapstructure:"save_summary" yaml:"save_summary"`
	OutputDirectory string `mapstructure:"output_directory" yaml:"output_directory"`
	FilenamePrefix  string `mapstructure:"filename_prefix" yaml:"filename_prefix"`
	Verbose         bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string `mapstructure:"log_format" yaml:"log_format"`
}

type PerformanceConfig struct {
	// Workers bounds concurrent sweep points; 0 means one per CPU.
	Workers           int    `mapstructure:"workers" yaml:"workers"`
	PrimeCacheEntries int    `mapstructure:"prime_cache_entries" yaml:"prime_cache_entries"`
	MetricsAddr       string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	Resume            bool   `mapstructure:"resume" yaml:"resume"`
}

type Config struct {
	Calculation CalculationConfig `mapstructure:"calculation" yaml:"calculation"`
	Zeros       ZerosConfig       `mapstructure:"zeros" yaml:"zeros"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`

	loadedFrom string
}

// LoadedFrom returns the file the config was read from, or "" for defaults.
func (c *Config) LoadedFrom() string { return c.loadedFrom }

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	// Calculation defaults
	v.SetDefault("calculation.sigmas", []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8})
	v.SetDefault("calculation.t_values", []float64{100, 316, 1000, 3162, 10000, 31622, 100000})
	v.SetDefault("calculation.limit", 0.0)
	v.SetDefault("calculation.limit_factor", fluctuation.DefaultLimitFactor)
	v.SetDefault("calculation.segments", fluctuation.DefaultSegments)
	v.SetDefault("calculation.abs_tol", 1e-10)
	v.SetDefault("calculation.rel_tol", 1e-10)
	v.SetDefault("calculation.max_subdivisions", 200)
	v.SetDefault("calculation.convergence_policy", string(fluctuation.PolicyAccept))
	v.SetDefault("calculation.relax_factor", fluctuation.DefaultRelaxFactor)
	v.SetDefault("calculation.segment_timeout", "0s")

	// Zero set defaults
	v.SetDefault("zeros.source", ZeroSourceAsymptotic)
	v.SetDefault("zeros.count", 100)
	v.SetDefault("zeros.refine_step", 0.05)
	v.SetDefault("zeros.max_height", 1000.0)
	v.SetDefault("zeros.small_x_threshold", 1000.0)
	v.SetDefault("zeros.constant_term", 0.0461914179)

	// Output defaults
	v.SetDefault("output.save_samples", true)
	v.SetDefault("output.save_summary", true)
	v.SetDefault("output.output_directory", ".")
	v.SetDefault("output.filename_prefix", "psiscan")
	v.SetDefault("output.verbose", false)
	v.SetDefault("output.log_level", "info")
	v.SetDefault("output.log_format", "text")

	// Performance defaults
	v.SetDefault("performance.workers", 0)
	v.SetDefault("performance.prime_cache_entries", 64)
	v.SetDefault("performance.metrics_addr", "")
	v.SetDefault("performance.resume", false)
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v, falling back to defaults when the file does not
// exist, then unmarshals and validates.
func Load(v *viper.Viper, path string) (*Config, error) {
	var loadedFrom string
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else {
			loadedFrom = v.ConfigFileUsed()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.loadedFrom = loadedFrom
	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks every field and reports the first problem.
func (c *Config) Validate() error {
	calc := c.Calculation
	if len(calc.Sigmas) == 0 {
		return invalid("calculation.sigmas must not be empty")
	}
	for _, s := range calc.Sigmas {
		if !finite(s) || 1+s <= 0 {
			return invalid("calculation.sigmas: %v is not a finite value with 1+sigma > 0", s)
		}
	}
	if len(calc.Ts) == 0 {
		return invalid("calculation.t_values must not be empty")
	}
	for _, t := range calc.Ts {
		if !finite(t) || t <= 0 {
			return invalid("calculation.t_values: %v must be positive and finite", t)
		}
	}
	if !finite(calc.Limit) || calc.Limit < 0 {
		return invalid("calculation.limit must be zero or positive, got %v", calc.Limit)
	}
	if !finite(calc.LimitFactor) || calc.LimitFactor <= 0 {
		return invalid("calculation.limit_factor must be positive, got %v", calc.LimitFactor)
	}
	if calc.Segments < 1 {
		return invalid("calculation.segments must be at least 1, got %d", calc.Segments)
	}
	if !(calc.AbsTol > 0) || !(calc.RelTol > 0) {
		return invalid("calculation.abs_tol and rel_tol must be positive")
	}
	if calc.MaxSubdivisions < 1 {
		return invalid("calculation.max_subdivisions must be at least 1, got %d", calc.MaxSubdivisions)
	}
	if _, err := fluctuation.ParsePolicy(calc.ConvergencePolicy); err != nil {
		return invalid("calculation.convergence_policy: %v", err)
	}
	if !(calc.RelaxFactor > 1) {
		return invalid("calculation.relax_factor must be greater than 1, got %v", calc.RelaxFactor)
	}
	if calc.SegmentTimeout < 0 {
		return invalid("calculation.segment_timeout cannot be negative")
	}

	z := c.Zeros
	if z.Source != ZeroSourceAsymptotic && z.Source != ZeroSourceRefined {
		return invalid("zeros.source must be %q or %q, got %q", ZeroSourceAsymptotic, ZeroSourceRefined, z.Source)
	}
	if z.Count < 1 {
		return invalid("zeros.count must be at least 1, got %d", z.Count)
	}
	if !(z.RefineStep > 0) {
		return invalid("zeros.refine_step must be positive, got %v", z.RefineStep)
	}
	if !(z.MaxHeight > 0) {
		return invalid("zeros.max_height must be positive, got %v", z.MaxHeight)
	}
	if !finite(z.SmallXThreshold) || z.SmallXThreshold < 2 {
		return invalid("zeros.small_x_threshold must be at least 2, got %v", z.SmallXThreshold)
	}
	if !finite(z.ConstantTerm) {
		return invalid("zeros.constant_term must be finite")
	}

	if _, err := logrus.ParseLevel(c.Output.LogLevel); err != nil {
		return invalid("output.log_level: %v", err)
	}
	if f := strings.ToLower(c.Output.LogFormat); f != "text" && f != "json" {
		return invalid("output.log_format must be text or json, got %q", c.Output.LogFormat)
	}

	if c.Performance.Workers < 0 {
		return invalid("performance.workers cannot be negative")
	}
	if c.Performance.PrimeCacheEntries < 0 {
		return invalid("performance.prime_cache_entries cannot be negative")
	}
	return nil
}

// SaveDefault writes the default configuration as YAML with a header comment.
func SaveDefault(path, version string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}

	header := `# psiscan configuration v` + version + `
# Generated on ` + time.Now().Format("2006-01-02 15:04:05") + `
# Every key can be overridden with ` + EnvPrefix + `_<SECTION>_<KEY>.

`
	return os.WriteFile(path, []byte(header+string(data)), 0o644)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
