// Package engine implements the guillotine bin-packing search: one Packer
// greedily fills one bin under one heuristic signature, and the PackEngine
// fans out packers over the signature set level by level, pruning to a
// bounded set of promising candidates before the next bin is opened.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/piwi3910/cutopt/internal/model"
)

// Terminal errors of an optimization run. Run returns either a complete,
// invariant-checked solution or exactly one of these; partial results are
// never returned.
var (
	ErrNoBox        = errors.New("no boxes to pack")
	ErrNoBin        = errors.New("no usable bin")
	ErrNoPlacement  = errors.New("no placement possible")
	ErrInvalidInput = errors.New("invalid input")
	ErrTimeout      = errors.New("optimization timed out")
	ErrInternal     = errors.New("internal error")
)

// StatusOf maps a Run error onto the terminal status enumeration.
func StatusOf(err error) model.Status {
	switch {
	case err == nil:
		return model.StatusNone
	case errors.Is(err, ErrNoBox):
		return model.StatusNoBox
	case errors.Is(err, ErrNoBin):
		return model.StatusNoBin
	case errors.Is(err, ErrNoPlacement):
		return model.StatusNoPlacement
	case errors.Is(err, ErrInvalidInput):
		return model.StatusInvalidInput
	case errors.Is(err, ErrTimeout):
		return model.StatusTimeout
	default:
		return model.StatusBadError
	}
}

// lMeasureEps buckets near-equal l-measures when grouping structurally
// equivalent packings. Exact float equality would split buckets on noise
// from summation order.
const lMeasureEps = 1e-9

// clock bounds the search. It is checked at fixed checkpoints (once per
// level and once per placement attempt); there is no asynchronous
// interruption, so a hit always unwinds cleanly with no partial output.
type clock struct {
	ctx      context.Context
	deadline time.Time
	bounded  bool
}

func newClock(ctx context.Context, timeout time.Duration) *clock {
	c := &clock{ctx: ctx}
	if timeout > 0 {
		c.deadline = time.Now().Add(timeout)
		c.bounded = true
	}
	return c
}

func (c *clock) check() error {
	if c.ctx.Err() != nil {
		return ErrTimeout
	}
	if c.bounded && time.Now().After(c.deadline) {
		return ErrTimeout
	}
	return nil
}

// PackEngine orchestrates packers across heuristic signatures and bin
// levels and selects the best overall result. It owns all mutable search
// state: warnings, invalid boxes/bins, and the bin index counter. Packers
// never touch engine state.
type PackEngine struct {
	cfg    model.Config
	boxes  []model.Box
	bins   []model.Bin
	logger *log.Logger

	warnings     []string
	invalidBoxes []model.Box
	invalidBins  []model.Bin
	binIndex     int
}

// NewPackEngine creates an engine over the given box and bin universe.
// The bins are the user-supplied offcuts; standard sheets are synthesized
// from the configuration's base dimensions as levels require them.
func NewPackEngine(cfg model.Config, boxes []model.Box, bins []model.Bin) *PackEngine {
	return &PackEngine{cfg: cfg, boxes: boxes, bins: bins}
}

// SetLogger attaches a logger for level-loop debug traces. Traces are
// emitted only when the configuration's Debug flag is set.
func (e *PackEngine) SetLogger(l *log.Logger) {
	e.logger = l
}

func (e *PackEngine) debugf(msg string, keyvals ...any) {
	if e.logger != nil && e.cfg.Debug {
		e.logger.Debug(msg, keyvals...)
	}
}

func (e *PackEngine) warnf(format string, args ...any) {
	e.warnings = append(e.warnings, fmt.Sprintf(format, args...))
}

// newStandardBin synthesizes a standard sheet from the base dimensions.
// Only the engine assigns bin indexes, so they stay unique across levels.
func (e *PackEngine) newStandardBin() model.Bin {
	bin := model.NewBin(e.cfg.BaseLength, e.cfg.BaseWidth, model.BinTypeStandard)
	e.binIndex++
	bin.Index = e.binIndex
	return bin
}

// fitsAnyBin reports whether the box fits the usable interior of at least
// one candidate bin, or a standard sheet if those can be synthesized.
// Rotation is considered only when both the box and the configuration
// allow it.
func (e *PackEngine) fitsAnyBin(b model.Box, bins []model.Bin) bool {
	fits := func(ul, uw float64) bool {
		if b.Length <= ul+model.DimEps && b.Width <= uw+model.DimEps {
			return true
		}
		return e.cfg.Rotatable && b.Rotatable &&
			b.Width <= ul+model.DimEps && b.Length <= uw+model.DimEps
	}
	for _, bin := range bins {
		if fits(bin.Usable(e.cfg.Trim)) {
			return true
		}
	}
	if e.cfg.HasBase() {
		return fits(e.cfg.BaseLength-2*e.cfg.Trim, e.cfg.BaseWidth-2*e.cfg.Trim)
	}
	return false
}

// Run executes the full search. It validates the inputs, expands the
// heuristic signature set, runs the level loop until every surviving
// packer has placed all its boxes (or the bins are exhausted), and picks
// the single best finished packing.
func (e *PackEngine) Run(ctx context.Context) (*model.Solution, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(e.boxes) == 0 {
		return nil, ErrNoBox
	}

	boxes, bins, err := e.prepare()
	if err != nil {
		return nil, err
	}

	// Largest usable extents over every candidate bin, used to bound
	// stacked units so that each one still fits somewhere.
	maxUL, maxUW := 0.0, 0.0
	for _, bin := range bins {
		ul, uw := bin.Usable(e.cfg.Trim)
		maxUL = math.Max(maxUL, ul)
		maxUW = math.Max(maxUW, uw)
	}
	if e.cfg.HasBase() {
		maxUL = math.Max(maxUL, e.cfg.BaseLength-2*e.cfg.Trim)
		maxUW = math.Max(maxUW, e.cfg.BaseWidth-2*e.cfg.Trim)
	}

	unitsByMode := map[model.StackingPref][]model.SuperBox{}
	for _, mode := range stackingModes(e.cfg.Stacking) {
		unitsByMode[mode] = makeUnits(boxes, mode, e.cfg.Kerf, maxUL, maxUW, e.cfg.Rotatable)
	}

	sigs := makeSignatures(e.cfg)
	clk := newClock(ctx, e.cfg.Timeout)
	e.debugf("search space expanded", "signatures", len(sigs), "boxes", len(boxes), "bins", len(bins))

	best, err := e.levelLoop(clk, sigs, unitsByMode, bins)
	if err != nil {
		return nil, err
	}
	return e.buildSolution(best)
}

// prepare validates boxes and bins, records size warnings, filters out
// pieces that can never combine, and sorts bins by increasing area so
// small offcuts get first chance.
func (e *PackEngine) prepare() (boxes []model.Box, bins []model.Bin, err error) {
	for _, b := range e.boxes {
		if !b.Valid() {
			e.invalidBoxes = append(e.invalidBoxes, b)
			e.warnf("box %s has invalid size %g x %g", b.ID, b.Length, b.Width)
			continue
		}
		boxes = append(boxes, b)
	}

	for _, bin := range e.bins {
		if !bin.Valid() {
			e.invalidBins = append(e.invalidBins, bin)
			e.warnf("bin %s has invalid size %g x %g", bin.ID, bin.Length, bin.Width)
			continue
		}
		bins = append(bins, bin)
	}
	if len(bins) == 0 && !e.cfg.HasBase() {
		return nil, nil, ErrNoBin
	}

	// Boxes too large for every bin can never be placed.
	feasible := boxes[:0:0]
	for _, b := range boxes {
		if e.fitsAnyBin(b, bins) {
			feasible = append(feasible, b)
		} else {
			e.invalidBoxes = append(e.invalidBoxes, b)
			e.warnf("box %s (%g x %g) is larger than every bin", b.ID, b.Length, b.Width)
		}
	}
	boxes = feasible
	if len(boxes) == 0 {
		return nil, nil, ErrNoPlacement
	}

	// Bins too small to host even one box are reported, never packed.
	usable := bins[:0:0]
	for _, bin := range bins {
		ul, uw := bin.Usable(e.cfg.Trim)
		hostsAny := false
		for _, b := range boxes {
			sb := model.SuperBox{Length: b.Length, Width: b.Width, Rotatable: e.cfg.Rotatable && b.Rotatable}
			if sb.FitsInto(ul, uw) {
				hostsAny = true
				break
			}
		}
		if hostsAny {
			usable = append(usable, bin)
		} else {
			e.invalidBins = append(e.invalidBins, bin)
			e.warnf("bin %s (%g x %g) is too small for every box", bin.ID, bin.Length, bin.Width)
		}
	}
	bins = usable

	sort.SliceStable(bins, func(i, j int) bool {
		return bins[i].Area() < bins[j].Area()
	})
	if len(bins) == 0 {
		if !e.cfg.HasBase() {
			return nil, nil, ErrNoBin
		}
		bins = append(bins, e.newStandardBin())
	} else {
		for i := range bins {
			e.binIndex++
			bins[i].Index = e.binIndex
		}
	}
	return boxes, bins, nil
}

// stackingModes expands the configured stacking preference into the
// distinct modes the signature set will use.
func stackingModes(pref model.StackingPref) []model.StackingPref {
	if pref == model.StackingAll {
		return []model.StackingPref{model.StackingNone, model.StackingLength, model.StackingWidth}
	}
	return []model.StackingPref{pref}
}

// levelLoop runs the fan-out search: level 1 starts one packer per
// signature, each later level spawns one child per signature from every
// surviving parent, inheriting its unplaced units and unused bins. The
// tree's breadth is bounded by best-X pruning after every level.
func (e *PackEngine) levelLoop(clk *clock, sigs []Signature, unitsByMode map[model.StackingPref][]model.SuperBox, bins []model.Bin) (*packer, error) {
	parents := []*packer{nil}

	for level := 1; ; level++ {
		if err := clk.check(); err != nil {
			return nil, err
		}

		var all []*packer
		for _, parent := range parents {
			var parentBins []model.Bin
			if parent == nil {
				parentBins = bins
			} else {
				parentBins = e.ensureBin(parent.unplaced, parent.unusedBins)
			}
			for _, sig := range sigs {
				units := unitsByMode[sig.Stacking]
				if parent != nil {
					units = parent.unplaced
				}
				all = append(all, newPacker(sig, e.cfg, parent, units, parentBins))
			}
		}

		if err := runLevel(all, clk); err != nil {
			return nil, err
		}

		survivors := e.selectBestX(all)
		e.debugf("level complete", "level", level, "packers", len(all), "survivors", len(survivors))

		done := true
		progress := false
		for _, p := range survivors {
			if !p.complete() {
				done = false
			}
			if p.placedBoxes() > 0 {
				progress = true
			}
		}
		if done || !progress {
			return e.selectBestPacking(survivors), nil
		}
		parents = survivors
	}
}

// ensureBin appends one synthesized standard bin when no unused bin can
// host any remaining unit. Synthesis happens on the engine goroutine so
// the bin index counter is never mutated concurrently.
func (e *PackEngine) ensureBin(units []model.SuperBox, bins []model.Bin) []model.Bin {
	if len(units) == 0 || !e.cfg.HasBase() {
		return bins
	}
	for _, bin := range bins {
		ul, uw := bin.Usable(e.cfg.Trim)
		if anyUnitFits(units, ul, uw) {
			return bins
		}
	}
	ul := e.cfg.BaseLength - 2*e.cfg.Trim
	uw := e.cfg.BaseWidth - 2*e.cfg.Trim
	if !anyUnitFits(units, ul, uw) {
		return bins
	}
	return append(append([]model.Bin(nil), bins...), e.newStandardBin())
}

// runLevel executes every packer of a level concurrently. Packers own
// their bin/box copies outright, so the only synchronization point is the
// join before pruning.
func runLevel(packers []*packer, clk *clock) error {
	errs := make([]error, len(packers))
	var wg sync.WaitGroup
	for i, p := range packers {
		wg.Add(1)
		go func(i int, p *packer) {
			defer wg.Done()
			errs[i] = p.run(clk)
		}(i, p)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// selectBestX prunes a level to a bounded number of promising packers:
// finished packers dominate unfinished ones, structurally equivalent
// packings (same quantized l-measure) collapse to their best
// representative, and the survivors are rank-summed along several axes.
func (e *PackEngine) selectBestX(packers []*packer) []*packer {
	var pool []*packer
	for _, p := range packers {
		if p.complete() {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		pool = packers
	}

	// Group by quantized l-measure; keep one representative per group,
	// the one with the shortest total cut length, ties broken by the
	// larger largest-leftover.
	groupOf := make(map[int64]int)
	var reps []*packer
	for _, p := range pool {
		key := int64(math.Round(p.totalLMeasure / lMeasureEps))
		idx, ok := groupOf[key]
		if !ok {
			groupOf[key] = len(reps)
			reps = append(reps, p)
			continue
		}
		r := reps[idx]
		if p.totalCutLength < r.totalCutLength-model.DimEps ||
			(math.Abs(p.totalCutLength-r.totalCutLength) <= model.DimEps &&
				p.totalLargestLeftover > r.totalLargestLeftover) {
			reps[idx] = p
		}
	}

	keep := e.keepCount()
	if len(reps) <= keep {
		return reps
	}

	for _, p := range reps {
		p.rank = 0
	}
	for _, better := range e.rankAxes() {
		addRanks(reps, better)
	}

	order := make([]*packer, len(reps))
	copy(order, reps)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].rank < order[j].rank
	})
	return order[:keep]
}

// keepCount bounds the search breadth. Advanced optimization with many
// boxes fans out much wider per level, so it keeps fewer candidates.
func (e *PackEngine) keepCount() int {
	if e.cfg.Optimization == model.OptimizationAdvanced && len(e.boxes) > 30 {
		return 2
	}
	return 3
}

// rankAxes returns the independent ranking criteria summed during
// pruning; each reports whether a ranks strictly better than b.
func (e *PackEngine) rankAxes() []func(a, b *packer) bool {
	axes := []func(a, b *packer) bool{
		func(a, b *packer) bool { return a.totalUsed > b.totalUsed },
	}
	switch e.cfg.Stacking {
	case model.StackingLength:
		axes = append(axes,
			func(a, b *packer) bool { return a.totalThroughH > b.totalThroughH },
			func(a, b *packer) bool { return a.totalTogetherV > b.totalTogetherV },
		)
	case model.StackingWidth:
		axes = append(axes,
			func(a, b *packer) bool { return a.totalThroughV > b.totalThroughV },
			func(a, b *packer) bool { return a.totalTogetherH > b.totalTogetherH },
		)
	default:
		axes = append(axes,
			func(a, b *packer) bool {
				return a.totalThroughH+a.totalThroughV > b.totalThroughH+b.totalThroughV
			},
			func(a, b *packer) bool {
				return a.totalTogetherH+a.totalTogetherV > b.totalTogetherH+b.totalTogetherV
			},
		)
	}
	return axes
}

// addRanks adds each packer's position under one criterion to its rank
// sum. Equal packers share the better position.
func addRanks(packers []*packer, better func(a, b *packer) bool) {
	order := make([]*packer, len(packers))
	copy(order, packers)
	sort.SliceStable(order, func(i, j int) bool {
		return better(order[i], order[j])
	})
	for i, p := range order {
		pos := i
		for pos > 0 && !better(order[pos-1], p) {
			pos--
		}
		p.rank += pos
	}
}

// selectBestPacking performs the final selection among finished packers:
// best overall efficiency first, then the most compact leftovers, then
// the most shared saw settings.
func (e *PackEngine) selectBestPacking(packers []*packer) *packer {
	if len(packers) == 0 {
		return nil
	}
	order := make([]*packer, len(packers))
	copy(order, packers)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.efficiency() != b.efficiency() {
			return a.efficiency() > b.efficiency()
		}
		if a.totalLMeasure != b.totalLMeasure {
			return a.totalLMeasure < b.totalLMeasure
		}
		return a.totalTogetherH+a.totalTogetherV > b.totalTogetherH+b.totalTogetherV
	})
	return order[0]
}

// buildSolution materializes the winning packer chain into a Solution and
// checks the box-count invariant: every input box must come out exactly
// once, packed, unplaced or invalid.
func (e *PackEngine) buildSolution(best *packer) (*model.Solution, error) {
	if best == nil {
		return nil, fmt.Errorf("%w: empty candidate set after pruning", ErrInternal)
	}

	sol := &model.Solution{
		Invalid:     e.invalidBoxes,
		InvalidBins: e.invalidBins,
		Warnings:    e.warnings,
		Unplaced:    expandBoxes(best.unplaced),
		UnusedBins:  best.unusedBins,
	}
	for _, p := range best.chain() {
		if !p.hasBin || p.placedBoxes() == 0 {
			continue
		}
		sol.Bins = append(sol.Bins, p.layout)
		sol.TotalCuts += len(p.layout.Cuts)
	}
	sol.Efficiency = best.efficiency()
	sol.TotalCutLength = best.totalCutLength
	sol.LMeasure = best.totalLMeasure

	accounted := sol.PlacedCount() + len(sol.Unplaced) + len(sol.Invalid)
	if accounted != len(e.boxes) {
		return nil, fmt.Errorf("%w: %d boxes in, %d accounted for", ErrInternal, len(e.boxes), accounted)
	}
	return sol, nil
}
