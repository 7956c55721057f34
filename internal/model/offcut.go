package model

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Offcut represents a usable rectangular remnant left inside a bin after
// packing. Unlike a raw Leftover it carries provenance, so it can be fed
// back into a later run as a user-supplied bin.
type Offcut struct {
	ID       string  `json:"id"`
	BinIndex int     `json:"bin_index"` // index of the source bin in the solution
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Length   float64 `json:"length"`
	Width    float64 `json:"width"`
}

// Area returns the offcut area in square mm.
func (o Offcut) Area() float64 {
	return o.Length * o.Width
}

// ToBin converts the offcut into a bin for reuse in a future run.
func (o Offcut) ToBin() Bin {
	return NewBin(o.Length, o.Width, BinTypeOffcut)
}

// MinOffcutDimension is the minimum length or width (in mm) for a remnant
// to be considered a usable offcut. Smaller remnants are waste.
const MinOffcutDimension = 50.0

// MinOffcutArea is the minimum area (in sq mm) for a remnant to be usable.
const MinOffcutArea = 10000.0

// DetectOffcuts collects the leftovers of a solution that are large enough
// to be worth keeping, sorted by area descending.
func DetectOffcuts(sol *Solution) []Offcut {
	var offcuts []Offcut
	for _, bl := range sol.Bins {
		for _, lo := range bl.Leftovers {
			if lo.Length < MinOffcutDimension || lo.Width < MinOffcutDimension {
				continue
			}
			if lo.Area() < MinOffcutArea {
				continue
			}
			offcuts = append(offcuts, Offcut{
				ID:       uuid.New().String()[:8],
				BinIndex: bl.Bin.Index,
				X:        lo.X,
				Y:        lo.Y,
				Length:   lo.Length,
				Width:    lo.Width,
			})
		}
	}
	sort.Slice(offcuts, func(i, j int) bool {
		return offcuts[i].Area() > offcuts[j].Area()
	})
	return offcuts
}

// BinEstimate holds the result of an area-based bin purchase calculation.
type BinEstimate struct {
	TotalBoxArea float64 `json:"total_box_area"` // box areas plus kerf allowance (sq mm)
	BinArea      float64 `json:"bin_area"`       // usable area of one standard bin
	BinsExact    float64 `json:"bins_exact"`     // fractional bin count
	BinsMin      int     `json:"bins_min"`       // ceiling of the exact count
	BinsAdvised  int     `json:"bins_advised"`   // including the waste factor
	WastePercent float64 `json:"waste_percent"`
}

// EstimateBins computes, by area alone, how many standard bins a box list
// needs. It accounts for kerf around each box and applies an additional
// waste percentage. This is a pre-purchase estimate, not a packing.
func EstimateBins(boxes []Box, cfg Config, wastePercent float64) BinEstimate {
	var total float64
	for _, b := range boxes {
		if !b.Valid() {
			continue
		}
		total += (b.Length + cfg.Kerf) * (b.Width + cfg.Kerf)
	}

	binArea := (cfg.BaseLength - 2*cfg.Trim) * (cfg.BaseWidth - 2*cfg.Trim)
	if binArea <= 0 {
		return BinEstimate{TotalBoxArea: total, WastePercent: wastePercent}
	}

	exact := total / binArea
	minBins := int(math.Ceil(exact))
	advised := int(math.Ceil(exact * (1.0 + wastePercent/100.0)))
	if advised < minBins {
		advised = minBins
	}

	return BinEstimate{
		TotalBoxArea: total,
		BinArea:      binArea,
		BinsExact:    exact,
		BinsMin:      minBins,
		BinsAdvised:  advised,
		WastePercent: wastePercent,
	}
}
