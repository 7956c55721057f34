package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutopt/internal/model"
)

// testConfig strips kerf, trim and the base bin so geometry in tests is
// exact and every bin must be supplied explicitly.
func testConfig() model.Config {
	return model.Config{
		Kerf:      0,
		Trim:      0,
		Rotatable: true,
	}
}

func TestRun_TwoBoxesFillBinExactly(t *testing.T) {
	cfg := testConfig()
	boxes := []model.Box{
		model.NewBox(1000, 1000, false, nil),
		model.NewBox(1000, 1000, false, nil),
	}
	bins := []model.Bin{model.NewBin(2000, 1000, model.BinTypeOffcut)}

	sol, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusNone, StatusOf(err))

	require.Len(t, sol.Bins, 1)
	assert.Equal(t, 2, sol.PlacedCount())
	assert.Empty(t, sol.Unplaced)
	assert.InDelta(t, 100.0, sol.Efficiency, 1e-9)

	// One vertical through cut separates the two halves.
	require.Len(t, sol.Bins[0].Cuts, 1)
	cut := sol.Bins[0].Cuts[0]
	assert.False(t, cut.Horizontal)
	assert.True(t, cut.Through)
	assert.InDelta(t, 1000.0, cut.Position(), 1e-9)
	assert.InDelta(t, 1000.0, sol.TotalCutLength, 1e-9)
}

func TestRun_NoBoxes(t *testing.T) {
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}
	_, err := NewPackEngine(testConfig(), nil, bins).Run(context.Background())
	require.ErrorIs(t, err, ErrNoBox)
	assert.Equal(t, model.StatusNoBox, StatusOf(err))
}

func TestRun_NoBins(t *testing.T) {
	boxes := []model.Box{model.NewBox(100, 100, true, nil)}
	_, err := NewPackEngine(testConfig(), boxes, nil).Run(context.Background())
	require.ErrorIs(t, err, ErrNoBin)
	assert.Equal(t, model.StatusNoBin, StatusOf(err))
}

func TestRun_AllBinsInvalid(t *testing.T) {
	boxes := []model.Box{model.NewBox(100, 100, true, nil)}
	bins := []model.Bin{model.NewBin(0, 0, model.BinTypeOffcut)}
	_, err := NewPackEngine(testConfig(), boxes, bins).Run(context.Background())
	require.ErrorIs(t, err, ErrNoBin)
}

func TestRun_NoPlacementPossible(t *testing.T) {
	boxes := []model.Box{model.NewBox(5000, 5000, true, nil)}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}
	_, err := NewPackEngine(testConfig(), boxes, bins).Run(context.Background())
	require.ErrorIs(t, err, ErrNoPlacement)
	assert.Equal(t, model.StatusNoPlacement, StatusOf(err))
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Kerf = -1
	boxes := []model.Box{model.NewBox(100, 100, true, nil)}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}
	_, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, model.StatusInvalidInput, StatusOf(err))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	boxes := []model.Box{model.NewBox(100, 100, true, nil)}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}
	_, err := NewPackEngine(testConfig(), boxes, bins).Run(ctx)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, model.StatusTimeout, StatusOf(err))
}

func TestRun_ExpiredTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = time.Nanosecond

	boxes := []model.Box{model.NewBox(100, 100, true, nil)}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}
	time.Sleep(time.Millisecond)
	_, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
}

func TestRun_RotationPlacesRotated(t *testing.T) {
	boxes := []model.Box{model.NewBox(500, 1000, true, nil)}
	bins := []model.Bin{model.NewBin(1000, 500, model.BinTypeOffcut)}

	sol, err := NewPackEngine(testConfig(), boxes, bins).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Bins, 1)
	require.Len(t, sol.Bins[0].Placements, 1)
	assert.True(t, sol.Bins[0].Placements[0].Rotated)
	assert.InDelta(t, 100.0, sol.Efficiency, 1e-9)
}

func TestRun_GlobalRotationOffBlocksRotation(t *testing.T) {
	cfg := testConfig()
	cfg.Rotatable = false

	boxes := []model.Box{model.NewBox(500, 1000, true, nil)}
	bins := []model.Bin{model.NewBin(1000, 500, model.BinTypeOffcut)}
	_, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.ErrorIs(t, err, ErrNoPlacement)
}

func TestRun_BinsExhaustedLeavesBoxesUnplaced(t *testing.T) {
	boxes := []model.Box{
		model.NewBox(600, 600, false, nil),
		model.NewBox(600, 600, false, nil),
		model.NewBox(600, 600, false, nil),
	}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	sol, err := NewPackEngine(testConfig(), boxes, bins).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusNone, StatusOf(err))

	// Only one box fits per bin, the rest is reported unplaced.
	assert.Equal(t, 1, sol.PlacedCount())
	assert.Len(t, sol.Unplaced, 2)
	assert.Equal(t, 3, sol.PlacedCount()+len(sol.Unplaced)+len(sol.Invalid))
}

func TestRun_SynthesizesStandardBinsPerLevel(t *testing.T) {
	cfg := testConfig()
	cfg.BaseLength = 1000
	cfg.BaseWidth = 1000

	boxes := []model.Box{
		model.NewBox(600, 600, false, nil),
		model.NewBox(600, 600, false, nil),
		model.NewBox(600, 600, false, nil),
	}

	sol, err := NewPackEngine(cfg, boxes, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Bins, 3)
	for _, bl := range sol.Bins {
		assert.Equal(t, model.BinTypeStandard, bl.Bin.Type)
		assert.Len(t, bl.Placements, 1)
	}
	assert.Empty(t, sol.Unplaced)
	assert.InDelta(t, 36.0, sol.Efficiency, 1e-9)
}

func TestRun_PrefersSmallestAdequateBin(t *testing.T) {
	boxes := []model.Box{model.NewBox(1000, 1000, false, nil)}
	bins := []model.Bin{
		model.NewBin(2000, 2000, model.BinTypeOffcut),
		model.NewBin(1000, 1000, model.BinTypeOffcut),
	}

	sol, err := NewPackEngine(testConfig(), boxes, bins).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Bins, 1)
	assert.InDelta(t, 1000.0, sol.Bins[0].Bin.Length, 1e-9)
	require.Len(t, sol.UnusedBins, 1)
	assert.InDelta(t, 2000.0, sol.UnusedBins[0].Length, 1e-9)
	assert.Empty(t, sol.Bins[0].Cuts)
}

func TestRun_KerfAreaConservation(t *testing.T) {
	cfg := testConfig()
	cfg.Kerf = 50

	boxes := []model.Box{model.NewBox(400, 600, false, nil)}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	sol, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Bins, 1)

	// Placed area, leftovers and the kerf strips swept by the saw must
	// tile the usable interior exactly.
	bl := sol.Bins[0]
	total := bl.UsedArea + bl.LeftoverArea() + cfg.Kerf*bl.CutLength
	assert.InDelta(t, 1000.0*1000.0, total, 1e-6)
}

func TestRun_TrimShrinksUsableInterior(t *testing.T) {
	cfg := testConfig()
	cfg.Trim = 100

	// The bin is 1000 wide but only 800 remain after trimming both edges.
	boxes := []model.Box{model.NewBox(900, 900, false, nil)}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}
	_, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.ErrorIs(t, err, ErrNoPlacement)

	boxes = []model.Box{model.NewBox(800, 800, false, nil)}
	sol, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sol.PlacedCount())
	assert.InDelta(t, 100.0, sol.Efficiency, 1e-9)
}

func TestRun_InvalidBoxesReportedNotPacked(t *testing.T) {
	boxes := []model.Box{
		model.NewBox(0, 500, true, nil),
		model.NewBox(500, 500, true, nil),
	}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	sol, err := NewPackEngine(testConfig(), boxes, bins).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sol.PlacedCount())
	require.Len(t, sol.Invalid, 1)
	assert.InDelta(t, 0.0, sol.Invalid[0].Length, 1e-9)
	assert.NotEmpty(t, sol.Warnings)
}

func TestRun_StackedDuplicatesStayTogether(t *testing.T) {
	cfg := testConfig()
	cfg.Stacking = model.StackingLength

	boxes := []model.Box{
		model.NewBox(400, 400, false, nil),
		model.NewBox(400, 400, false, nil),
	}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	sol, err := NewPackEngine(cfg, boxes, bins).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sol.PlacedCount())
	assert.Empty(t, sol.Unplaced)
}

func TestRun_DataPayloadSurvivesPacking(t *testing.T) {
	type order struct{ Ref string }
	boxes := []model.Box{model.NewBox(500, 500, true, order{Ref: "A-17"})}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	sol, err := NewPackEngine(testConfig(), boxes, bins).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Bins, 1)
	require.Len(t, sol.Bins[0].Placements, 1)
	assert.Equal(t, order{Ref: "A-17"}, sol.Bins[0].Placements[0].Box.Data)
}

func TestStatusOf_UnknownErrorIsBadError(t *testing.T) {
	assert.Equal(t, model.StatusBadError, StatusOf(assert.AnError))
	assert.Equal(t, model.StatusNone, StatusOf(nil))
}

func TestRun_MoreBinAreaNeverIncreasesUnplaced(t *testing.T) {
	cfg := testConfig()
	boxes := []model.Box{
		model.NewBox(600, 600, true, nil),
		model.NewBox(600, 600, true, nil),
		model.NewBox(600, 600, true, nil),
		model.NewBox(600, 600, true, nil),
		model.NewBox(600, 600, true, nil),
	}

	run := func(bins []model.Bin) int {
		sol, err := NewPackEngine(cfg, boxes, append([]model.Bin(nil), bins...)).Run(context.Background())
		require.NoError(t, err)
		return len(sol.Unplaced)
	}

	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeStandard)}
	prev := run(bins)
	assert.Equal(t, 4, prev) // one 600x600 per 1000x1000 sheet

	extras := [][2]float64{{700, 700}, {1300, 1300}, {2440, 1220}}
	for _, e := range extras {
		bins = append(bins, model.NewBin(e[0], e[1], model.BinTypeStandard))
		cur := run(bins)
		assert.LessOrEqual(t, cur, prev,
			"adding a %gx%g bin raised unplaced from %d to %d", e[0], e[1], prev, cur)
		prev = cur
	}
	assert.Zero(t, prev)
}

// solutionFingerprint renders everything about a solution except the
// generated IDs, so runs can be compared for equality.
func solutionFingerprint(sol *model.Solution) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "eff=%.6f cuts=%d cutlen=%.4f lm=%.6f\n",
		sol.Efficiency, sol.TotalCuts, sol.TotalCutLength, sol.LMeasure)
	for _, bl := range sol.Bins {
		fmt.Fprintf(&sb, "bin %d %s %.1fx%.1f eff=%.6f\n",
			bl.Bin.Index, bl.Bin.Type, bl.Bin.Length, bl.Bin.Width, bl.Efficiency)
		for _, p := range bl.Placements {
			fmt.Fprintf(&sb, "  box %.1fx%.1f @(%.4f,%.4f) rot=%t\n",
				p.Box.Length, p.Box.Width, p.X, p.Y, p.Rotated)
		}
		for _, c := range bl.Cuts {
			fmt.Fprintf(&sb, "  cut %s @(%.4f,%.4f) len=%.4f through=%t together=%t\n",
				c.Axis(), c.X, c.Y, c.Length, c.Through, c.Together)
		}
		for _, lo := range bl.Leftovers {
			fmt.Fprintf(&sb, "  leftover %.4fx%.4f @(%.4f,%.4f)\n", lo.Length, lo.Width, lo.X, lo.Y)
		}
	}
	for _, b := range sol.Unplaced {
		fmt.Fprintf(&sb, "unplaced %.1fx%.1f\n", b.Length, b.Width)
	}
	return sb.String()
}

func TestRun_RepeatedRunsProduceIdenticalSolutions(t *testing.T) {
	cfg := model.Config{
		Kerf:       3.2,
		Trim:       10,
		BaseLength: 2440,
		BaseWidth:  1220,
		Rotatable:  true,
		Stacking:   model.StackingAll,
	}
	var boxes []model.Box
	for i := 0; i < 4; i++ {
		boxes = append(boxes, model.NewBox(600, 400, true, nil))
	}
	for i := 0; i < 2; i++ {
		boxes = append(boxes, model.NewBox(1200, 800, true, nil))
	}
	boxes = append(boxes,
		model.NewBox(350, 300, false, nil),
		model.NewBox(900, 450, true, nil),
	)

	var want string
	for i := 0; i < 4; i++ {
		sol, err := NewPackEngine(cfg, boxes, nil).Run(context.Background())
		require.NoError(t, err)
		require.Empty(t, sol.Unplaced)
		got := solutionFingerprint(sol)
		if i == 0 {
			want = got
			continue
		}
		require.Equal(t, want, got, "run %d diverged", i)
	}
}
