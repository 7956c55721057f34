package engine

import (
	"math"

	"github.com/piwi3910/cutopt/internal/model"
)

// packer owns one bin-filling attempt for one heuristic signature: the
// boxes still unplaced, the placements and cuts it produced, the free
// rectangles of its bin, and the derived statistics. A packer may be
// linked to a parent from an earlier level, inheriting its unplaced units
// and unused bins. Packers never share mutable state, so a level can run
// them concurrently.
type packer struct {
	sig    Signature
	cfg    model.Config
	parent *packer
	level  int

	bin    model.Bin
	hasBin bool
	binUL  float64 // usable interior length
	binUW  float64 // usable interior width

	layout     model.BinLayout
	leftovers  []model.Leftover
	unplaced   []model.SuperBox
	unusedBins []model.Bin

	// saw-setting positions already used in this bin, per axis, quantized
	cutPosH map[int64]bool
	cutPosV map[int64]bool

	// current-bin statistics
	usedArea             float64
	lMeasure             float64
	cutLength            float64
	throughH, throughV   int
	togetherH, togetherV int

	// chain statistics, aggregated root..this
	totalUsed                      float64
	totalUsable                    float64
	totalLMeasure                  float64
	totalCutLength                 float64
	totalLargestLeftover           float64
	totalThroughH, totalThroughV   int
	totalTogetherH, totalTogetherV int

	rank int
}

// newPacker creates a packer for one signature. It claims the first bin
// (in the given order, smallest area first) able to host at least one
// unit; the remaining bins stay unused and travel to the next level.
func newPacker(sig Signature, cfg model.Config, parent *packer, units []model.SuperBox, bins []model.Bin) *packer {
	p := &packer{
		sig:     sig,
		cfg:     cfg,
		parent:  parent,
		level:   1,
		cutPosH: make(map[int64]bool),
		cutPosV: make(map[int64]bool),
	}
	if parent != nil {
		p.level = parent.level + 1
	}

	for i, bin := range bins {
		ul, uw := bin.Usable(cfg.Trim)
		if ul <= 0 || uw <= 0 {
			p.unusedBins = append(p.unusedBins, bin)
			continue
		}
		if !p.hasBin && anyUnitFits(units, ul, uw) {
			p.bin = bin
			p.hasBin = true
			p.binUL = ul
			p.binUW = uw
			p.layout.Bin = bin
			p.leftovers = []model.Leftover{{X: 0, Y: 0, Length: ul, Width: uw}}
			p.unusedBins = append(p.unusedBins, bins[i+1:]...)
			break
		}
		p.unusedBins = append(p.unusedBins, bin)
	}

	p.unplaced = presortUnits(units, sig.Presort)
	return p
}

func anyUnitFits(units []model.SuperBox, maxLength, maxWidth float64) bool {
	for _, u := range units {
		if u.FitsInto(maxLength, maxWidth) {
			return true
		}
	}
	return false
}

// run places units until the list is exhausted or no leftover can host any
// remaining unit. Units that fit nowhere stay in the unplaced set; that is
// a normal outcome, not an error. The clock is checked once per placement
// attempt.
func (p *packer) run(clk *clock) error {
	if p.hasBin {
		remaining := p.unplaced
		p.unplaced = nil
		for _, u := range remaining {
			if err := clk.check(); err != nil {
				return err
			}
			if !p.placeUnit(u) {
				p.unplaced = append(p.unplaced, u)
			}
		}
	}
	p.finalize()
	return nil
}

// placeUnit scores every (leftover, orientation) candidate and places the
// unit into the extremal one. Ties keep the earliest candidate, so results
// do not depend on map iteration or timing.
func (p *packer) placeUnit(u model.SuperBox) bool {
	score := scoreFuncs[p.sig.Score]
	rotAllowed := u.Rotatable && u.Length != u.Width

	bestIdx := -1
	bestRot := false
	bestScore := math.Inf(1)
	for i, lo := range p.leftovers {
		if lo.Fits(u.Length, u.Width) {
			s := score(u.Length, u.Width, lo) + p.stackingPenalty(u.Length, u.Width, lo)
			if s < bestScore {
				bestIdx, bestRot, bestScore = i, false, s
			}
		}
		if rotAllowed && lo.Fits(u.Width, u.Length) {
			s := score(u.Width, u.Length, lo) + p.stackingPenalty(u.Width, u.Length, lo)
			if s < bestScore {
				bestIdx, bestRot, bestScore = i, true, s
			}
		}
	}
	if bestIdx < 0 {
		return false
	}
	p.place(bestIdx, u, bestRot)
	return true
}

// stackingPenalty deprioritizes candidates whose primary cut would run
// against the preferred stacking axis. The penalty exceeds any fit score,
// so a violating candidate is only chosen when no conforming one exists;
// it is never rejected outright.
func (p *packer) stackingPenalty(placedL, placedW float64, lo model.Leftover) float64 {
	if p.sig.Stacking != model.StackingLength && p.sig.Stacking != model.StackingWidth {
		return 0
	}
	remL := lo.Length - placedL
	remW := lo.Width - placedW
	var horizontal bool
	switch {
	case remL <= model.DimEps && remW <= model.DimEps:
		return 0 // perfect fit, no cut at all
	case remL <= model.DimEps:
		horizontal = true
	case remW <= model.DimEps:
		horizontal = false
	default:
		horizontal = p.sig.Split.splitHorizontal(placedL, placedW, lo)
	}
	if horizontal == (p.sig.Stacking == model.StackingLength) {
		return 0
	}
	return p.binUL*p.binUW + p.binUL + p.binUW
}

// place puts the unit into the chosen leftover's top-left corner, emits
// the guillotine cut(s) per the split rule, and replaces the leftover with
// up to two smaller ones. The kerf is deducted from the free space beyond
// every cut.
func (p *packer) place(loIdx int, u model.SuperBox, rotated bool) {
	lo := p.leftovers[loIdx]
	p.leftovers = append(p.leftovers[:loIdx], p.leftovers[loIdx+1:]...)

	placedL, placedW := u.Length, u.Width
	if rotated {
		placedL, placedW = placedW, placedL
	}

	p.expandUnit(u, lo.X, lo.Y, rotated)

	kerf := p.cfg.Kerf
	remL := lo.Length - placedL
	remW := lo.Width - placedW

	switch {
	case remL <= model.DimEps && remW <= model.DimEps:
		// Exact fit: the unit consumes the whole free rectangle.
	case remL <= model.DimEps:
		p.addCut(true, lo.X, lo.Y+placedW, lo.Length)
		p.addLeftover(lo.X, lo.Y+placedW+kerf, lo.Length, remW-kerf)
	case remW <= model.DimEps:
		p.addCut(false, lo.X+placedL, lo.Y, lo.Width)
		p.addLeftover(lo.X+placedL+kerf, lo.Y, remL-kerf, lo.Width)
	case p.sig.Split.splitHorizontal(placedL, placedW, lo):
		// Primary cut spans the free rectangle horizontally, the
		// secondary cut separates the unit from the right strip.
		p.addCut(true, lo.X, lo.Y+placedW, lo.Length)
		p.addLeftover(lo.X, lo.Y+placedW+kerf, lo.Length, remW-kerf)
		p.addCut(false, lo.X+placedL, lo.Y, placedW)
		p.addLeftover(lo.X+placedL+kerf, lo.Y, remL-kerf, placedW)
	default:
		p.addCut(false, lo.X+placedL, lo.Y, lo.Width)
		p.addLeftover(lo.X+placedL+kerf, lo.Y, remL-kerf, lo.Width)
		p.addCut(true, lo.X, lo.Y+placedW, placedL)
		p.addLeftover(lo.X, lo.Y+placedW+kerf, placedL, remW-kerf)
	}

	p.usedArea += u.BoxArea()
}

// expandUnit records the constituent box placements of a unit, emitting
// the separating cuts between stacked boxes.
func (p *packer) expandUnit(u model.SuperBox, x, y float64, rotated bool) {
	if u.Count() == 1 {
		p.layout.Placements = append(p.layout.Placements, model.Placement{
			Box: u.Boxes[0], X: x, Y: y, Rotated: rotated,
		})
		return
	}

	// Stacking axis in placed coordinates: a length-stack rotates into a
	// stack along Y and vice versa.
	alongX := u.AlongLength != rotated
	boxL, boxW := u.Boxes[0].Length, u.Boxes[0].Width
	if rotated {
		boxL, boxW = boxW, boxL
	}

	kerf := p.cfg.Kerf
	cx, cy := x, y
	for i, b := range u.Boxes {
		r := rotated
		if u.Flipped != nil && u.Flipped[i] {
			r = !r
		}
		p.layout.Placements = append(p.layout.Placements, model.Placement{
			Box: b, X: cx, Y: cy, Rotated: r,
		})
		if i == len(u.Boxes)-1 {
			break
		}
		if alongX {
			p.addCut(false, cx+boxL, cy, boxW)
			cx += boxL + kerf
		} else {
			p.addCut(true, cx, cy+boxW, boxL)
			cy += boxW + kerf
		}
	}
}

// quantize maps a position onto the DimEps grid for saw-setting identity.
func quantize(v float64) int64 {
	return int64(math.Round(v / model.DimEps))
}

// addCut records one guillotine cut and folds it into the statistics.
// A cut is "through" when it spans the full usable bin dimension along its
// axis, and "together" when an earlier cut of the same axis already used
// the same saw setting.
func (p *packer) addCut(horizontal bool, x, y, length float64) {
	cut := model.Cut{X: x, Y: y, Length: length, Horizontal: horizontal}
	if horizontal {
		cut.Through = length >= p.binUL-model.DimEps
		pos := quantize(y)
		cut.Together = p.cutPosH[pos]
		p.cutPosH[pos] = true
		if cut.Through {
			p.throughH++
		}
		if cut.Together {
			p.togetherH++
		}
	} else {
		cut.Through = length >= p.binUW-model.DimEps
		pos := quantize(x)
		cut.Together = p.cutPosV[pos]
		p.cutPosV[pos] = true
		if cut.Through {
			p.throughV++
		}
		if cut.Together {
			p.togetherV++
		}
	}
	p.cutLength += length
	p.layout.Cuts = append(p.layout.Cuts, cut)
}

func (p *packer) addLeftover(x, y, length, width float64) {
	if length <= model.DimEps || width <= model.DimEps {
		return
	}
	p.leftovers = append(p.leftovers, model.Leftover{X: x, Y: y, Length: length, Width: width})
}

// binLMeasure is the shape-compactness indicator for one bin: zero when
// the remaining free space is a single rectangle (or absent), growing with
// fragment count and with evenly-sized fragments.
func binLMeasure(leftovers []model.Leftover) float64 {
	if len(leftovers) == 0 {
		return 0
	}
	var total, largest float64
	for _, lo := range leftovers {
		a := lo.Area()
		total += a
		if a > largest {
			largest = a
		}
	}
	if total <= 0 {
		return 0
	}
	return float64(len(leftovers)-1) + (1 - largest/total)
}

// finalize freezes the layout statistics and aggregates the chain totals.
func (p *packer) finalize() {
	p.lMeasure = binLMeasure(p.leftovers)
	p.layout.Leftovers = p.leftovers
	p.layout.UsedArea = p.usedArea
	p.layout.LMeasure = p.lMeasure
	p.layout.CutLength = p.cutLength

	var usable float64
	if p.hasBin {
		usable = p.binUL * p.binUW
	}
	if usable > 0 {
		p.layout.Efficiency = p.usedArea / usable * 100.0
	}

	p.totalUsed = p.usedArea
	p.totalUsable = usable
	p.totalLMeasure = p.lMeasure
	p.totalCutLength = p.cutLength
	p.totalLargestLeftover = p.layout.LargestLeftover()
	p.totalThroughH = p.throughH
	p.totalThroughV = p.throughV
	p.totalTogetherH = p.togetherH
	p.totalTogetherV = p.togetherV
	if p.parent != nil {
		p.totalUsed += p.parent.totalUsed
		p.totalUsable += p.parent.totalUsable
		p.totalLMeasure += p.parent.totalLMeasure
		p.totalCutLength += p.parent.totalCutLength
		p.totalLargestLeftover = math.Max(p.totalLargestLeftover, p.parent.totalLargestLeftover)
		p.totalThroughH += p.parent.totalThroughH
		p.totalThroughV += p.parent.totalThroughV
		p.totalTogetherH += p.parent.totalTogetherH
		p.totalTogetherV += p.parent.totalTogetherV
	}
}

// placedBoxes returns the number of boxes placed in this packer's bin.
func (p *packer) placedBoxes() int {
	return len(p.layout.Placements)
}

// efficiency is the chain-wide material usage in percent.
func (p *packer) efficiency() float64 {
	if p.totalUsable <= 0 {
		return 0
	}
	return p.totalUsed / p.totalUsable * 100.0
}

// complete reports whether every unit of the chain has been placed.
func (p *packer) complete() bool {
	return len(p.unplaced) == 0
}

// chain returns the packers from the first level down to this one.
func (p *packer) chain() []*packer {
	var out []*packer
	for q := p; q != nil; q = q.parent {
		out = append(out, q)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
