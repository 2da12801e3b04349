package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/banshee-data/framesync/internal/synchro/repair"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// SyncConfig holds the tuning parameters of one synchronisation run.
// Every field is optional; the Get* methods supply the defaults.
type SyncConfig struct {
	// Frame detection
	AutoThreshold *bool    `json:"auto_threshold,omitempty"` // estimate thresholds from the trace
	LowThreshold  *float64 `json:"low_threshold,omitempty"`
	HighThreshold *float64 `json:"high_threshold,omitempty"`
	Increment     *float64 `json:"increment,omitempty"` // samples between frames
	Precision     *float64 `json:"precision,omitempty"`
	Reverse       *bool    `json:"reverse,omitempty"`

	// Level classification
	NCluster *int `json:"n_cluster,omitempty"`

	// Correction
	SimilarityBasis []int   `json:"similarity_basis,omitempty"`
	InsDelPenalty   *int    `json:"insdel_penalty,omitempty"`
	Rowside         *int    `json:"rowside,omitempty"`
	MismatchWindow  *int    `json:"mismatch_window,omitempty"`
	Strategy        *string `json:"strategy,omitempty"` // no_shift, conv or nw

	// Trimming; trim_last 0 keeps frames through the end
	TrimFirst *int `json:"trim_first,omitempty"`
	TrimLast  *int `json:"trim_last,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptySyncConfig returns a SyncConfig with all fields set to nil.
// Use LoadSyncConfig to load actual values from the defaults file.
func EmptySyncConfig() *SyncConfig {
	return &SyncConfig{}
}

// LoadSyncConfig loads a SyncConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadSyncConfig(path string) (*SyncConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySyncConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *SyncConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/ and cmd/framesync/
		"../../../" + DefaultConfigPath,    // from internal/synchro/*
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadSyncConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *SyncConfig) Validate() error {
	if c.LowThreshold != nil && *c.LowThreshold < 0 {
		return fmt.Errorf("low_threshold must be non-negative, got %f", *c.LowThreshold)
	}
	if c.HighThreshold != nil && *c.HighThreshold < 0 {
		return fmt.Errorf("high_threshold must be non-negative, got %f", *c.HighThreshold)
	}
	// Fixed thresholds are only used when auto_threshold is off.
	if !c.GetAutoThreshold() && c.GetLowThreshold() >= c.GetHighThreshold() {
		return fmt.Errorf("low_threshold (%f) must be below high_threshold (%f)", c.GetLowThreshold(), c.GetHighThreshold())
	}

	if p := c.GetPrecision(); p <= 0 || p > 1 {
		return fmt.Errorf("precision must be in (0, 1], got %f", p)
	}
	if inc := c.GetIncrement(); inc*c.GetPrecision() < 1 {
		return fmt.Errorf("increment %f too small for precision %f", inc, c.GetPrecision())
	}

	if n := c.GetNCluster(); n < 2 {
		return fmt.Errorf("n_cluster must be at least 2, got %d", n)
	}
	if k := len(c.GetSimilarityBasis()); k < c.GetNCluster() {
		return fmt.Errorf("similarity_basis has %d entries, need at least n_cluster (%d)", k, c.GetNCluster())
	}
	if c.InsDelPenalty != nil && *c.InsDelPenalty > 0 {
		return fmt.Errorf("insdel_penalty must not be positive, got %d", *c.InsDelPenalty)
	}
	if c.Rowside != nil && *c.Rowside < 1 {
		return fmt.Errorf("rowside must be at least 1, got %d", *c.Rowside)
	}
	// repair.Correct reads a zero window as DefaultWindow.
	if c.MismatchWindow != nil && *c.MismatchWindow < 1 {
		return fmt.Errorf("mismatch_window must be at least 1, got %d", *c.MismatchWindow)
	}
	if _, err := c.GetStrategy(); err != nil {
		return err
	}
	if c.TrimFirst != nil && *c.TrimFirst < 0 {
		return fmt.Errorf("trim_first must be non-negative, got %d", *c.TrimFirst)
	}

	return nil
}

// GetAutoThreshold returns the auto_threshold value or the default.
func (c *SyncConfig) GetAutoThreshold() bool {
	if c.AutoThreshold == nil {
		return true
	}
	return *c.AutoThreshold
}

// GetLowThreshold returns the low_threshold value or the default.
func (c *SyncConfig) GetLowThreshold() float64 {
	if c.LowThreshold == nil {
		return 0
	}
	return *c.LowThreshold
}

// GetHighThreshold returns the high_threshold value or the default.
func (c *SyncConfig) GetHighThreshold() float64 {
	if c.HighThreshold == nil {
		return 0
	}
	return *c.HighThreshold
}

// GetIncrement returns the increment value or the default.
func (c *SyncConfig) GetIncrement() float64 {
	if c.Increment == nil {
		return 500
	}
	return *c.Increment
}

// GetPrecision returns the precision value or the default.
func (c *SyncConfig) GetPrecision() float64 {
	if c.Precision == nil {
		return 0.95
	}
	return *c.Precision
}

// GetReverse returns the reverse value or the default.
func (c *SyncConfig) GetReverse() bool {
	if c.Reverse == nil {
		return true
	}
	return *c.Reverse
}

// GetNCluster returns the n_cluster value or the default.
func (c *SyncConfig) GetNCluster() int {
	if c.NCluster == nil {
		return 5
	}
	return *c.NCluster
}

// GetSimilarityBasis returns a copy of similarity_basis or the default.
func (c *SyncConfig) GetSimilarityBasis() []int {
	if len(c.SimilarityBasis) == 0 {
		return []int{1, -1, -3, -3, -1}
	}
	return slices.Clone(c.SimilarityBasis)
}

// GetInsDelPenalty returns the insdel_penalty value or the default.
func (c *SyncConfig) GetInsDelPenalty() int {
	if c.InsDelPenalty == nil {
		return -10
	}
	return *c.InsDelPenalty
}

// GetRowside returns the rowside value or the default.
func (c *SyncConfig) GetRowside() int {
	if c.Rowside == nil {
		return 20
	}
	return *c.Rowside
}

// GetMismatchWindow returns the mismatch_window value or the default.
func (c *SyncConfig) GetMismatchWindow() int {
	if c.MismatchWindow == nil {
		return repair.DefaultWindow
	}
	return *c.MismatchWindow
}

// GetStrategy parses the strategy value, defaulting to banded alignment.
func (c *SyncConfig) GetStrategy() (repair.Strategy, error) {
	if c.Strategy == nil || *c.Strategy == "" {
		return repair.BandedAlign, nil
	}
	return repair.ParseStrategy(*c.Strategy)
}

// GetTrimFirst returns the trim_first value or the default.
func (c *SyncConfig) GetTrimFirst() int {
	if c.TrimFirst == nil {
		return 0
	}
	return *c.TrimFirst
}

// GetTrimLast returns the trim_last value or the default.
func (c *SyncConfig) GetTrimLast() int {
	if c.TrimLast == nil {
		return 0
	}
	return *c.TrimLast
}
