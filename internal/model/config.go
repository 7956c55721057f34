package model

import (
	"fmt"
	"strings"
	"time"
)

// OptimizationLevel controls the size of the heuristic signature set.
type OptimizationLevel int

const (
	OptimizationMedium   OptimizationLevel = iota // 4 presorts x 4 scores x 4 splits
	OptimizationAdvanced                          // 6 presorts x 6 scores x 6 splits
)

func (l OptimizationLevel) String() string {
	if l == OptimizationAdvanced {
		return "advanced"
	}
	return "medium"
}

// ParseOptimizationLevel parses a level name as found in job files.
func ParseOptimizationLevel(s string) (OptimizationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "medium":
		return OptimizationMedium, nil
	case "advanced":
		return OptimizationAdvanced, nil
	default:
		return OptimizationMedium, fmt.Errorf("unknown optimization level %q", s)
	}
}

// StackingPref controls which cut axis is rewarded and whether duplicate
// boxes are collapsed into stacked placement units.
type StackingPref int

const (
	StackingNone StackingPref = iota
	StackingLength
	StackingWidth
	StackingAll // try none, length and width and keep the best
)

func (s StackingPref) String() string {
	switch s {
	case StackingLength:
		return "length"
	case StackingWidth:
		return "width"
	case StackingAll:
		return "all"
	default:
		return "none"
	}
}

// ParseStackingPref parses a stacking preference name as found in job files.
func ParseStackingPref(s string) (StackingPref, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return StackingNone, nil
	case "length":
		return StackingLength, nil
	case "width":
		return StackingWidth, nil
	case "all":
		return StackingAll, nil
	default:
		return StackingNone, fmt.Errorf("unknown stacking preference %q", s)
	}
}

// Config holds the immutable run parameters for one optimization.
// The engine clones it per heuristic signature; all fields other than the
// substituted signature choices are shared read-only.
type Config struct {
	Kerf       float64 `json:"kerf"`        // material removed per cut (mm)
	Trim       float64 `json:"trim"`        // material trimmed off each bin edge (mm)
	BaseLength float64 `json:"base_length"` // standard sheet length (mm)
	BaseWidth  float64 `json:"base_width"`  // standard sheet width (mm)
	Rotatable  bool    `json:"rotatable"`   // global rotation permission

	Optimization OptimizationLevel `json:"optimization"`
	Stacking     StackingPref      `json:"stacking"`

	Timeout time.Duration `json:"timeout"` // wall-clock bound; 0 means no limit
	Debug   bool          `json:"debug"`
}

// DefaultConfig returns parameters for a typical panel saw setup.
func DefaultConfig() Config {
	return Config{
		Kerf:         3.2,
		Trim:         10.0,
		BaseLength:   2440.0,
		BaseWidth:    1220.0,
		Rotatable:    true,
		Optimization: OptimizationMedium,
		Stacking:     StackingNone,
		Timeout:      20 * time.Second,
	}
}

// Validate reports malformed option combinations. These are caller bugs,
// not data problems, and abort the run before any search starts.
func (c Config) Validate() error {
	if c.Kerf < 0 {
		return fmt.Errorf("kerf must not be negative, got %g", c.Kerf)
	}
	if c.Trim < 0 {
		return fmt.Errorf("trim must not be negative, got %g", c.Trim)
	}
	if c.BaseLength < 0 || c.BaseWidth < 0 {
		return fmt.Errorf("base bin dimensions must not be negative, got %g x %g", c.BaseLength, c.BaseWidth)
	}
	if c.Optimization < OptimizationMedium || c.Optimization > OptimizationAdvanced {
		return fmt.Errorf("unknown optimization level %d", c.Optimization)
	}
	if c.Stacking < StackingNone || c.Stacking > StackingAll {
		return fmt.Errorf("unknown stacking preference %d", c.Stacking)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// HasBase reports whether standard sheets can be synthesized from the
// base bin dimensions.
func (c Config) HasBase() bool {
	return c.BaseLength-2*c.Trim > 0 && c.BaseWidth-2*c.Trim > 0
}
