package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutopt/internal/model"
)

func testSignature() Signature {
	return Signature{
		Presort:  PresortAreaDesc,
		Score:    ScoreBestAreaFit,
		Split:    SplitShorterLeftoverAxis,
		Stacking: model.StackingNone,
	}
}

func runPacker(t *testing.T, cfg model.Config, units []model.SuperBox, bins []model.Bin) *packer {
	t.Helper()
	p := newPacker(testSignature(), cfg, nil, units, bins)
	require.NoError(t, p.run(newClock(context.Background(), 0)))
	return p
}

func TestPacker_ExactFitEmitsNoCut(t *testing.T) {
	cfg := testConfig()
	units := []model.SuperBox{model.NewSuperBox(model.NewBox(1000, 1000, false, nil))}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	p := runPacker(t, cfg, units, bins)
	assert.Len(t, p.layout.Placements, 1)
	assert.Empty(t, p.layout.Cuts)
	assert.Empty(t, p.leftovers)
	assert.InDelta(t, 100.0, p.layout.Efficiency, 1e-9)
	assert.InDelta(t, 0.0, p.layout.LMeasure, 1e-9)
}

func TestPacker_SingleAxisLeftoverGetsThroughCut(t *testing.T) {
	cfg := testConfig()
	units := []model.SuperBox{model.NewSuperBox(model.NewBox(400, 1000, false, nil))}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	p := runPacker(t, cfg, units, bins)
	require.Len(t, p.layout.Cuts, 1)
	cut := p.layout.Cuts[0]
	assert.False(t, cut.Horizontal)
	assert.True(t, cut.Through)
	assert.InDelta(t, 400.0, cut.Position(), 1e-9)

	require.Len(t, p.leftovers, 1)
	assert.InDelta(t, 600.0, p.leftovers[0].Length, 1e-9)
	assert.InDelta(t, 1000.0, p.leftovers[0].Width, 1e-9)
}

func TestPacker_TwoAxisLeftoverSplitsTwice(t *testing.T) {
	cfg := testConfig()
	units := []model.SuperBox{model.NewSuperBox(model.NewBox(400, 600, false, nil))}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	p := runPacker(t, cfg, units, bins)
	require.Len(t, p.layout.Cuts, 2)
	require.Len(t, p.leftovers, 2)

	// The shorter-leftover rule cuts vertically first here (600 along X
	// versus 400 along Y), so the primary cut spans the full bin width.
	primary := p.layout.Cuts[0]
	assert.False(t, primary.Horizontal)
	assert.True(t, primary.Through)
	secondary := p.layout.Cuts[1]
	assert.True(t, secondary.Horizontal)
	assert.False(t, secondary.Through)
	assert.InDelta(t, 400.0, secondary.Length, 1e-9)

	var total float64
	for _, lo := range p.leftovers {
		total += lo.Area()
	}
	assert.InDelta(t, 1000*1000-400*600, total, 1e-6)
}

func TestPacker_KerfShrinksLeftovers(t *testing.T) {
	cfg := testConfig()
	cfg.Kerf = 100
	units := []model.SuperBox{model.NewSuperBox(model.NewBox(400, 1000, false, nil))}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	p := runPacker(t, cfg, units, bins)
	require.Len(t, p.leftovers, 1)
	assert.InDelta(t, 500.0, p.leftovers[0].X, 1e-9)
	assert.InDelta(t, 500.0, p.leftovers[0].Length, 1e-9)
}

func TestPacker_DegenerateLeftoverDropped(t *testing.T) {
	cfg := testConfig()
	cfg.Kerf = 100

	// The remainder equals the kerf exactly, so nothing usable is left.
	units := []model.SuperBox{model.NewSuperBox(model.NewBox(900, 1000, false, nil))}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	p := runPacker(t, cfg, units, bins)
	require.Len(t, p.layout.Cuts, 1)
	assert.Empty(t, p.leftovers)
}

func TestPacker_UnplaceableUnitStaysUnplaced(t *testing.T) {
	cfg := testConfig()
	units := []model.SuperBox{
		model.NewSuperBox(model.NewBox(900, 900, false, nil)),
		model.NewSuperBox(model.NewBox(900, 900, false, nil)),
	}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	p := runPacker(t, cfg, units, bins)
	assert.Len(t, p.layout.Placements, 1)
	assert.Len(t, p.unplaced, 1)
	assert.False(t, p.complete())
}

func TestPacker_ClaimsFirstHostingBin(t *testing.T) {
	cfg := testConfig()
	units := []model.SuperBox{model.NewSuperBox(model.NewBox(800, 800, false, nil))}
	bins := []model.Bin{
		model.NewBin(500, 500, model.BinTypeOffcut),
		model.NewBin(1000, 1000, model.BinTypeOffcut),
		model.NewBin(2000, 2000, model.BinTypeOffcut),
	}

	p := runPacker(t, cfg, units, bins)
	require.True(t, p.hasBin)
	assert.InDelta(t, 1000.0, p.bin.Length, 1e-9)
	require.Len(t, p.unusedBins, 2)
	assert.InDelta(t, 500.0, p.unusedBins[0].Length, 1e-9)
	assert.InDelta(t, 2000.0, p.unusedBins[1].Length, 1e-9)
}

func TestAddCut_TogetherTracksSawSettings(t *testing.T) {
	p := &packer{
		binUL:   1000,
		binUW:   1000,
		cutPosH: make(map[int64]bool),
		cutPosV: make(map[int64]bool),
	}

	p.addCut(true, 0, 500, 400)
	p.addCut(true, 600, 500, 400)
	p.addCut(true, 0, 300, 1000)
	p.addCut(false, 500, 0, 200)

	cuts := p.layout.Cuts
	require.Len(t, cuts, 4)
	assert.False(t, cuts[0].Together)
	assert.True(t, cuts[1].Together) // same Y as the first cut
	assert.False(t, cuts[2].Together)
	assert.False(t, cuts[3].Together) // vertical axis tracked separately

	assert.False(t, cuts[0].Through)
	assert.True(t, cuts[2].Through)
	assert.Equal(t, 1, p.throughH)
	assert.Equal(t, 1, p.togetherH)
	assert.InDelta(t, 2000.0, p.cutLength, 1e-9)
}

func TestBinLMeasure(t *testing.T) {
	assert.InDelta(t, 0.0, binLMeasure(nil), 1e-12)
	assert.InDelta(t, 0.0, binLMeasure([]model.Leftover{{Length: 100, Width: 100}}), 1e-12)

	// Two equal fragments: one extra fragment plus maximal evenness.
	even := []model.Leftover{
		{Length: 100, Width: 100},
		{Length: 100, Width: 100},
	}
	assert.InDelta(t, 1.5, binLMeasure(even), 1e-12)

	// A dominant fragment keeps the measure near the fragment count.
	skewed := []model.Leftover{
		{Length: 1000, Width: 1000},
		{Length: 10, Width: 10},
	}
	assert.InDelta(t, 1.0, binLMeasure(skewed), 1e-3)
}

func TestPacker_StackingPenaltyPrefersAxis(t *testing.T) {
	cfg := testConfig()
	sig := testSignature()
	sig.Stacking = model.StackingLength
	units := []model.SuperBox{model.NewSuperBox(model.NewBox(400, 600, false, nil))}
	p := newPacker(sig, cfg, nil, units, []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)})
	require.True(t, p.hasBin)

	lo := model.Leftover{Length: 1000, Width: 1000}

	// Shorter-leftover split on a 400x600 placement cuts vertically,
	// which fights a length-stacking preference.
	assert.Greater(t, p.stackingPenalty(400, 600, lo), 0.0)
	// A 600x400 placement splits horizontally and conforms.
	assert.InDelta(t, 0.0, p.stackingPenalty(600, 400, lo), 1e-12)
	// Exact fits never pay a penalty.
	assert.InDelta(t, 0.0, p.stackingPenalty(1000, 1000, lo), 1e-12)
}

func TestPacker_ChainAggregatesStats(t *testing.T) {
	cfg := testConfig()
	bins := []model.Bin{
		model.NewBin(1000, 1000, model.BinTypeOffcut),
		model.NewBin(1000, 1000, model.BinTypeOffcut),
	}
	units := []model.SuperBox{
		model.NewSuperBox(model.NewBox(900, 900, false, nil)),
		model.NewSuperBox(model.NewBox(900, 900, false, nil)),
	}

	parent := runPacker(t, cfg, units, bins)
	require.Len(t, parent.unplaced, 1)

	child := newPacker(testSignature(), cfg, parent, parent.unplaced, parent.unusedBins)
	require.NoError(t, child.run(newClock(context.Background(), 0)))

	assert.True(t, child.complete())
	assert.Equal(t, 2, child.level)
	assert.InDelta(t, 2*900*900, child.totalUsed, 1e-6)
	assert.InDelta(t, 2*1000*1000, child.totalUsable, 1e-6)
	assert.InDelta(t, 81.0, child.efficiency(), 1e-9)

	chain := child.chain()
	require.Len(t, chain, 2)
	assert.Same(t, parent, chain[0])
	assert.Same(t, child, chain[1])
}

func TestPacker_FlippedStackMembersPlaceRotated(t *testing.T) {
	cfg := testConfig()
	boxes := []model.Box{
		model.NewBox(600, 400, true, nil),
		model.NewBox(400, 600, true, nil),
	}
	units := makeUnits(boxes, model.StackingLength, 0, 1200, 400, true)
	require.Len(t, units, 1)

	sig := testSignature()
	sig.Stacking = model.StackingLength
	bins := []model.Bin{model.NewBin(1200, 400, model.BinTypeOffcut)}
	p := newPacker(sig, cfg, nil, units, bins)
	require.NoError(t, p.run(newClock(context.Background(), 0)))

	require.Len(t, p.layout.Placements, 2)
	first, second := p.layout.Placements[0], p.layout.Placements[1]

	assert.False(t, first.Rotated)
	assert.True(t, second.Rotated, "the 400x600 member lies at 90 degrees to the stack")
	assert.InDelta(t, 600.0, second.X, 1e-9)
	for _, pl := range p.layout.Placements {
		assert.InDelta(t, 600.0, pl.PlacedLength(), 1e-9)
		assert.InDelta(t, 400.0, pl.PlacedWidth(), 1e-9)
	}
	assert.Len(t, p.layout.Cuts, 1) // one separating cut between the members
}

func TestPacker_ChainTracksLargestLeftover(t *testing.T) {
	cfg := testConfig()
	units := []model.SuperBox{
		model.NewSuperBox(model.NewBox(400, 1000, false, nil)),
		model.NewSuperBox(model.NewBox(610, 650, false, nil)),
	}
	bins := []model.Bin{
		model.NewBin(1000, 1000, model.BinTypeOffcut),
		model.NewBin(610, 650, model.BinTypeOffcut),
	}

	parent := runPacker(t, cfg, units, bins)
	require.Len(t, parent.unplaced, 1)
	assert.InDelta(t, 600*1000, parent.totalLargestLeftover, 1e-6)

	child := newPacker(testSignature(), cfg, parent, parent.unplaced, parent.unusedBins)
	require.NoError(t, child.run(newClock(context.Background(), 0)))
	require.True(t, child.complete())

	// the child bin fills exactly, yet the chain remembers the parent's remnant
	assert.Zero(t, child.layout.LargestLeftover())
	assert.InDelta(t, 600*1000, child.totalLargestLeftover, 1e-6)
}
