package model

// DimEps is the tolerance used for all dimension comparisons. Inputs are
// millimeters, so a micro-millimeter slack absorbs float drift without
// ever letting a real overlap through.
const DimEps = 1e-6

// Leftover is a maximal free rectangle remaining inside a bin after a
// sequence of guillotine cuts. Coordinates are relative to the bin's
// top-left corner.
type Leftover struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// Area returns the leftover area in square mm.
func (l Leftover) Area() float64 {
	return l.Length * l.Width
}

// Fits reports whether a piece of the given dimensions fits inside the
// leftover without rotation.
func (l Leftover) Fits(length, width float64) bool {
	return length <= l.Length+DimEps && width <= l.Width+DimEps
}

// Cut is a single guillotine division of a region into two parts.
// A horizontal cut runs along the X axis at height Y, starting at X;
// a vertical cut runs along the Y axis at offset X, starting at Y.
type Cut struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Length     float64 `json:"length"`
	Horizontal bool    `json:"horizontal"`
	Through    bool    `json:"through"`  // spans a full bin dimension
	Together   bool    `json:"together"` // shares a saw setting with an earlier same-axis cut
}

// Position returns the coordinate that a saw fence would be set to:
// the Y offset for horizontal cuts, the X offset for vertical ones.
func (c Cut) Position() float64 {
	if c.Horizontal {
		return c.Y
	}
	return c.X
}

// Axis returns "horizontal" or "vertical".
func (c Cut) Axis() string {
	if c.Horizontal {
		return "horizontal"
	}
	return "vertical"
}
