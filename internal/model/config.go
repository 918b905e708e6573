package model

import (
	"runtime"
	"time"
)

// Config is the complete resonance configuration
type Config struct {
	Thresholds  Thresholds        `yaml:"thresholds" mapstructure:"thresholds"`
	Anchor      Anchor            `yaml:"anchor" mapstructure:"anchor"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// Thresholds are the five independent classification thresholds.
// A component below its threshold is flagged; Drift is compared
// against the [-1,0] drift penalty.
type Thresholds struct {
	Natiq    float64 `yaml:"natiq" json:"natiq" mapstructure:"natiq"`
	Spatial  float64 `yaml:"spatial" json:"spatial" mapstructure:"spatial"`
	Temporal float64 `yaml:"temporal" json:"temporal" mapstructure:"temporal"`
	Harmonic float64 `yaml:"harmonic" json:"harmonic" mapstructure:"harmonic"`
	Drift    float64 `yaml:"drift" json:"drift" mapstructure:"drift"`
}

// Anchor is the reference coordinate claims are compared against
type Anchor struct {
	Name        string      `yaml:"name" json:"name" mapstructure:"name"`
	Coordinates Coordinates `yaml:"coordinates" json:"coordinates" mapstructure:"coordinates"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	VerifyWorkers   int `yaml:"verify_workers" mapstructure:"verify_workers"`
	FinalizeWorkers int `yaml:"finalize_workers" mapstructure:"finalize_workers"` // in-flight persist calls
}

// StoreConfig configures the local repository and persistence rate limits
type StoreConfig struct {
	Path           string  `yaml:"path" mapstructure:"path" env:"RESONANCE_STORE_PATH"`
	Name           string  `yaml:"name" mapstructure:"name" env:"RESONANCE_STORE_NAME"`
	RequestsPerSec float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" env:"RESONANCE_STORE_RPS"`
	Burst          int     `yaml:"burst" mapstructure:"burst" env:"RESONANCE_STORE_BURST"`
}

// CacheConfig configures the persisted-locator cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Directory string        `yaml:"directory" mapstructure:"directory"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultThresholds returns the standard classification thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		Natiq:    0.60,
		Spatial:  0.50,
		Temporal: 0.25,
		Harmonic: 0.50,
		Drift:    -0.50,
	}
}

// DefaultAnchor returns the reference anchor at 0°N 0°E
func DefaultAnchor() Anchor {
	return Anchor{Name: "origin", Coordinates: Coordinates{Lat: 0, Lon: 0}}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Thresholds: DefaultThresholds(),
		Anchor:     DefaultAnchor(),
		Concurrency: ConcurrencyConfig{
			VerifyWorkers:   runtime.NumCPU(),
			FinalizeWorkers: 4,
		},
		Store: StoreConfig{
			Path:           "resonance.db",
			Name:           "local",
			RequestsPerSec: 5,
			Burst:          5,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
			Directory: ".resonance-cache",
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
