package engine

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/piwi3910/cutopt/internal/model"
)

// Presort selects the order in which boxes are offered to a packer.
type Presort int

const (
	PresortWidthDesc Presort = iota
	PresortLengthDesc
	PresortAreaDesc
	PresortPerimeterDesc
	PresortShortSideDesc // advanced only
	PresortLongSideDesc  // advanced only
)

func (p Presort) String() string {
	switch p {
	case PresortWidthDesc:
		return "width"
	case PresortLengthDesc:
		return "length"
	case PresortAreaDesc:
		return "area"
	case PresortPerimeterDesc:
		return "perimeter"
	case PresortShortSideDesc:
		return "short-side"
	case PresortLongSideDesc:
		return "long-side"
	default:
		return fmt.Sprintf("presort(%d)", int(p))
	}
}

// presortKey returns the sort key for a placement unit; units are ordered
// by decreasing key value, ties broken by insertion order (stable sort).
var presortKey = map[Presort]func(u model.SuperBox) float64{
	PresortWidthDesc:     func(u model.SuperBox) float64 { return u.Width },
	PresortLengthDesc:    func(u model.SuperBox) float64 { return u.Length },
	PresortAreaDesc:      func(u model.SuperBox) float64 { return u.Area() },
	PresortPerimeterDesc: func(u model.SuperBox) float64 { return u.Length + u.Width },
	PresortShortSideDesc: func(u model.SuperBox) float64 { return math.Min(u.Length, u.Width) },
	PresortLongSideDesc:  func(u model.SuperBox) float64 { return math.Max(u.Length, u.Width) },
}

// presortUnits returns a copy of units ordered by the presort policy.
func presortUnits(units []model.SuperBox, p Presort) []model.SuperBox {
	key := presortKey[p]
	sorted := make([]model.SuperBox, len(units))
	copy(sorted, units)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	return sorted
}

// Score selects the fit heuristic used to rank (leftover, orientation)
// candidates. All scores are normalized so that lower is better.
type Score int

const (
	ScoreBestAreaFit Score = iota
	ScoreBestShortSideFit
	ScoreBestLongSideFit
	ScoreWorstAreaFit
	ScoreWorstShortSideFit // advanced only
	ScoreWorstLongSideFit  // advanced only
)

func (s Score) String() string {
	switch s {
	case ScoreBestAreaFit:
		return "best-area"
	case ScoreBestShortSideFit:
		return "best-short-side"
	case ScoreBestLongSideFit:
		return "best-long-side"
	case ScoreWorstAreaFit:
		return "worst-area"
	case ScoreWorstShortSideFit:
		return "worst-short-side"
	case ScoreWorstLongSideFit:
		return "worst-long-side"
	default:
		return fmt.Sprintf("score(%d)", int(s))
	}
}

func scoreAreaFit(length, width float64, lo model.Leftover) float64 {
	return lo.Area() - length*width
}

func scoreShortSideFit(length, width float64, lo model.Leftover) float64 {
	return math.Min(lo.Length-length, lo.Width-width)
}

func scoreLongSideFit(length, width float64, lo model.Leftover) float64 {
	return math.Max(lo.Length-length, lo.Width-width)
}

// scoreFuncs maps each heuristic to its fit score; worst-fit variants
// negate the corresponding best-fit score.
var scoreFuncs = map[Score]func(length, width float64, lo model.Leftover) float64{
	ScoreBestAreaFit:       scoreAreaFit,
	ScoreBestShortSideFit:  scoreShortSideFit,
	ScoreBestLongSideFit:   scoreLongSideFit,
	ScoreWorstAreaFit:      func(l, w float64, lo model.Leftover) float64 { return -scoreAreaFit(l, w, lo) },
	ScoreWorstShortSideFit: func(l, w float64, lo model.Leftover) float64 { return -scoreShortSideFit(l, w, lo) },
	ScoreWorstLongSideFit:  func(l, w float64, lo model.Leftover) float64 { return -scoreLongSideFit(l, w, lo) },
}

// Split selects the orientation of the primary guillotine cut when a
// placement leaves leftover material along both axes.
type Split int

const (
	SplitShorterLeftoverAxis Split = iota
	SplitLongerLeftoverAxis
	SplitMinimizeArea
	SplitMaximizeArea
	SplitShorterAxis // advanced only
	SplitLongerAxis  // advanced only
)

func (s Split) String() string {
	switch s {
	case SplitShorterLeftoverAxis:
		return "shorter-leftover"
	case SplitLongerLeftoverAxis:
		return "longer-leftover"
	case SplitMinimizeArea:
		return "min-area"
	case SplitMaximizeArea:
		return "max-area"
	case SplitShorterAxis:
		return "shorter-axis"
	case SplitLongerAxis:
		return "longer-axis"
	default:
		return fmt.Sprintf("split(%d)", int(s))
	}
}

// splitHorizontal decides whether the primary cut runs horizontally,
// given the placed dimensions and the free rectangle they occupy.
// remL and remW are the leftover extents along each axis.
func (s Split) splitHorizontal(placedL, placedW float64, lo model.Leftover) bool {
	remL := lo.Length - placedL
	remW := lo.Width - placedW
	switch s {
	case SplitShorterLeftoverAxis:
		return remL <= remW
	case SplitLongerLeftoverAxis:
		return remL > remW
	case SplitMinimizeArea:
		// Keep the single bigger leftover rectangle.
		return placedL*remW > remL*placedW
	case SplitMaximizeArea:
		// Make the two leftovers more even-sized.
		return placedL*remW <= remL*placedW
	case SplitShorterAxis:
		return lo.Length <= lo.Width
	case SplitLongerAxis:
		return lo.Length > lo.Width
	default:
		return true
	}
}

// Signature is one tuple of heuristic choices defining a Packer's behavior.
type Signature struct {
	Presort  Presort
	Score    Score
	Split    Split
	Stacking model.StackingPref
}

func (s Signature) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", s.Presort, s.Score, s.Split, s.Stacking)
}

// signature-set sizes per optimization level
var (
	mediumPresorts = []Presort{PresortWidthDesc, PresortLengthDesc, PresortAreaDesc, PresortPerimeterDesc}
	mediumScores   = []Score{ScoreBestAreaFit, ScoreBestShortSideFit, ScoreBestLongSideFit, ScoreWorstAreaFit}
	mediumSplits   = []Split{SplitShorterLeftoverAxis, SplitLongerLeftoverAxis, SplitMinimizeArea, SplitMaximizeArea}

	advancedPresorts = slices.Concat(mediumPresorts, []Presort{PresortShortSideDesc, PresortLongSideDesc})
	advancedScores   = slices.Concat(mediumScores, []Score{ScoreWorstShortSideFit, ScoreWorstLongSideFit})
	advancedSplits   = slices.Concat(mediumSplits, []Split{SplitShorterAxis, SplitLongerAxis})
)

// makeSignatures expands the heuristic search space for a configuration.
// The expansion is deterministic: the same configuration always yields the
// same signatures in the same order. A stacking preference of "all" triples
// the set; any other preference binds every signature to that one choice.
func makeSignatures(cfg model.Config) []Signature {
	presorts, scores, splits := mediumPresorts, mediumScores, mediumSplits
	if cfg.Optimization == model.OptimizationAdvanced {
		presorts, scores, splits = advancedPresorts, advancedScores, advancedSplits
	}

	stackings := []model.StackingPref{cfg.Stacking}
	if cfg.Stacking == model.StackingAll {
		stackings = []model.StackingPref{model.StackingNone, model.StackingLength, model.StackingWidth}
	}

	sigs := make([]Signature, 0, len(presorts)*len(scores)*len(splits)*len(stackings))
	for _, st := range stackings {
		for _, p := range presorts {
			for _, sc := range scores {
				for _, sp := range splits {
					sigs = append(sigs, Signature{Presort: p, Score: sc, Split: sp, Stacking: st})
				}
			}
		}
	}
	return sigs
}
