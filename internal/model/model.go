package model

import "github.com/google/uuid"

// Box represents a rectangular piece to be cut from a bin.
// Dimensions are in mm: Length runs along the X axis, Width along Y.
// Data is an opaque payload supplied by the caller and forwarded
// unmodified into the final placement.
type Box struct {
	ID        string  `json:"id"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Rotatable bool    `json:"rotatable"`
	Data      any     `json:"data,omitempty"`
}

func NewBox(length, width float64, rotatable bool, data any) Box {
	return Box{
		ID:        uuid.New().String()[:8],
		Length:    length,
		Width:     width,
		Rotatable: rotatable,
		Data:      data,
	}
}

// Valid reports whether the box has positive dimensions.
func (b Box) Valid() bool {
	return b.Length > 0 && b.Width > 0
}

// Area returns the box area in square mm.
func (b Box) Area() float64 {
	return b.Length * b.Width
}

// FitsInto reports whether the box fits within the given bounds,
// considering rotation when the box allows it.
func (b Box) FitsInto(maxLength, maxWidth float64) bool {
	if b.Length <= maxLength+DimEps && b.Width <= maxWidth+DimEps {
		return true
	}
	if b.Rotatable && b.Width <= maxLength+DimEps && b.Length <= maxWidth+DimEps {
		return true
	}
	return false
}

// SuperBox is a placement unit: one or more equal-dimension boxes collapsed
// into a single rectangle to shrink the search space. A plain box is a
// SuperBox with a single constituent. Stacked constituents are laid out
// along the stacking axis, separated by one kerf each.
type SuperBox struct {
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Rotatable   bool    `json:"rotatable"`
	Boxes       []Box   `json:"boxes"`
	Flipped     []bool  `json:"flipped,omitempty"` // constituents stacked at 90 degrees to Boxes[0]
	AlongLength bool    `json:"along_length"`      // stacking axis; meaningless for single boxes
}

// NewSuperBox wraps a single box into a placement unit.
func NewSuperBox(b Box) SuperBox {
	return SuperBox{
		Length:    b.Length,
		Width:     b.Width,
		Rotatable: b.Rotatable,
		Boxes:     []Box{b},
	}
}

// Count returns the number of constituent boxes.
func (s SuperBox) Count() int {
	return len(s.Boxes)
}

// Area returns the unit's footprint in square mm, including the kerf
// strips between stacked constituents.
func (s SuperBox) Area() float64 {
	return s.Length * s.Width
}

// BoxArea returns the summed area of the constituent boxes, excluding kerf.
func (s SuperBox) BoxArea() float64 {
	var total float64
	for _, b := range s.Boxes {
		total += b.Area()
	}
	return total
}

// FitsInto reports whether the unit fits within the given bounds,
// considering rotation when allowed.
func (s SuperBox) FitsInto(maxLength, maxWidth float64) bool {
	if s.Length <= maxLength+DimEps && s.Width <= maxWidth+DimEps {
		return true
	}
	if s.Rotatable && s.Width <= maxLength+DimEps && s.Length <= maxWidth+DimEps {
		return true
	}
	return false
}

// BinType distinguishes user-supplied offcuts from auto-generated
// standard sheets.
type BinType int

const (
	BinTypeOffcut   BinType = iota // user-supplied remnant
	BinTypeStandard                // synthesized from the base bin dimensions
)

func (t BinType) String() string {
	if t == BinTypeOffcut {
		return "Offcut"
	}
	return "Standard"
}

// Bin represents a placeable stock region. Index is assigned by the engine
// and is stable across levels so output can reference "bin #3" unambiguously.
type Bin struct {
	ID     string  `json:"id"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Type   BinType `json:"type"`
	Index  int     `json:"index"`
}

func NewBin(length, width float64, binType BinType) Bin {
	return Bin{
		ID:     uuid.New().String()[:8],
		Length: length,
		Width:  width,
		Type:   binType,
	}
}

// Valid reports whether the bin has positive dimensions.
func (b Bin) Valid() bool {
	return b.Length > 0 && b.Width > 0
}

// Area returns the raw bin area in square mm.
func (b Bin) Area() float64 {
	return b.Length * b.Width
}

// Usable returns the interior dimensions after subtracting trim on both
// edges of each axis.
func (b Bin) Usable(trim float64) (length, width float64) {
	return b.Length - 2*trim, b.Width - 2*trim
}

// UsableArea returns the interior area after trim.
func (b Bin) UsableArea(trim float64) float64 {
	l, w := b.Usable(trim)
	if l <= 0 || w <= 0 {
		return 0
	}
	return l * w
}

// Placement represents a single box placed on a bin. Coordinates are
// relative to the bin's top-left corner, inside the trimmed interior.
type Placement struct {
	Box     Box     `json:"box"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Rotated bool    `json:"rotated"`
}

// PlacedLength returns the effective length along X considering rotation.
func (p Placement) PlacedLength() float64 {
	if p.Rotated {
		return p.Box.Width
	}
	return p.Box.Length
}

// PlacedWidth returns the effective width along Y considering rotation.
func (p Placement) PlacedWidth() float64 {
	if p.Rotated {
		return p.Box.Length
	}
	return p.Box.Width
}

// BinLayout represents one used bin with its placements, guillotine cuts
// and remaining free rectangles. The statistics fields are filled in by
// the engine when the layout is finalized.
type BinLayout struct {
	Bin        Bin         `json:"bin"`
	Placements []Placement `json:"placements"`
	Cuts       []Cut       `json:"cuts"`
	Leftovers  []Leftover  `json:"leftovers"`

	UsedArea   float64 `json:"used_area"`
	Efficiency float64 `json:"efficiency"` // percent of usable interior
	LMeasure   float64 `json:"l_measure"`
	CutLength  float64 `json:"cut_length"`
}

// LeftoverArea returns the summed area of the remaining free rectangles.
func (bl BinLayout) LeftoverArea() float64 {
	var total float64
	for _, lo := range bl.Leftovers {
		total += lo.Area()
	}
	return total
}

// LargestLeftover returns the area of the largest remaining free rectangle.
func (bl BinLayout) LargestLeftover() float64 {
	var largest float64
	for _, lo := range bl.Leftovers {
		if lo.Area() > largest {
			largest = lo.Area()
		}
	}
	return largest
}

// ThroughCuts returns the number of cuts spanning a full bin dimension.
func (bl BinLayout) ThroughCuts() int {
	n := 0
	for _, c := range bl.Cuts {
		if c.Through {
			n++
		}
	}
	return n
}

// TogetherCuts returns the number of cuts sharing a saw setting with an
// earlier cut of the same axis.
func (bl BinLayout) TogetherCuts() int {
	n := 0
	for _, c := range bl.Cuts {
		if c.Together {
			n++
		}
	}
	return n
}

// Solution holds the full packing result returned by the engine.
type Solution struct {
	Bins        []BinLayout `json:"bins"`
	Unplaced    []Box       `json:"unplaced,omitempty"`
	Invalid     []Box       `json:"invalid,omitempty"`
	UnusedBins  []Bin       `json:"unused_bins,omitempty"`
	InvalidBins []Bin       `json:"invalid_bins,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`

	Efficiency     float64 `json:"efficiency"` // percent, across all used bins
	TotalCutLength float64 `json:"total_cut_length"`
	TotalCuts      int     `json:"total_cuts"`
	LMeasure       float64 `json:"l_measure"`
}

// PlacedCount returns the number of boxes placed across all bins.
func (s Solution) PlacedCount() int {
	n := 0
	for _, b := range s.Bins {
		n += len(b.Placements)
	}
	return n
}

// UsedArea returns the total area covered by placed boxes.
func (s Solution) UsedArea() float64 {
	var total float64
	for _, b := range s.Bins {
		total += b.UsedArea
	}
	return total
}
