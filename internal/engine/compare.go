package engine

import (
	"context"

	"github.com/piwi3910/cutopt/internal/model"
)

// Scenario defines a named configuration variant to compare.
type Scenario struct {
	Name   string
	Config model.Config
}

// ScenarioResult holds the outcome and headline statistics of one
// scenario. Solution is nil when the run failed; Status carries the
// terminal code either way.
type ScenarioResult struct {
	Scenario   Scenario
	Solution   *model.Solution
	Status     model.Status
	BinsUsed   int
	Efficiency float64
	TotalCuts  int
	Unplaced   int
}

// CompareScenarios runs the same box/bin universe under each scenario and
// returns the results in scenario order, enabling side-by-side comparison
// of optimization parameters (levels, kerf, stacking).
func CompareScenarios(ctx context.Context, scenarios []Scenario, boxes []model.Box, bins []model.Bin) []ScenarioResult {
	results := make([]ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		eng := NewPackEngine(sc.Config, boxes, bins)
		sol, err := eng.Run(ctx)
		res := ScenarioResult{Scenario: sc, Solution: sol, Status: StatusOf(err)}
		if sol != nil {
			res.BinsUsed = len(sol.Bins)
			res.Efficiency = sol.Efficiency
			res.TotalCuts = sol.TotalCuts
			res.Unplaced = len(sol.Unplaced)
		}
		results = append(results, res)
	}
	return results
}

// BuildDefaultScenarios generates what-if variants of the base
// configuration: the other optimization level, a half-kerf blade, no edge
// trim, and stacking enabled when it is off.
func BuildDefaultScenarios(base model.Config) []Scenario {
	scenarios := []Scenario{{Name: "Current Settings", Config: base}}

	alt := base
	if base.Optimization == model.OptimizationMedium {
		alt.Optimization = model.OptimizationAdvanced
		scenarios = append(scenarios, Scenario{Name: "Advanced Optimization", Config: alt})
	} else {
		alt.Optimization = model.OptimizationMedium
		scenarios = append(scenarios, Scenario{Name: "Medium Optimization", Config: alt})
	}

	if base.Kerf > 1.0 {
		tight := base
		tight.Kerf = base.Kerf * 0.5
		scenarios = append(scenarios, Scenario{Name: "Half Kerf", Config: tight})
	}

	if base.Trim > 0 {
		noTrim := base
		noTrim.Trim = 0
		scenarios = append(scenarios, Scenario{Name: "No Edge Trim", Config: noTrim})
	}

	if base.Stacking == model.StackingNone {
		stacked := base
		stacked.Stacking = model.StackingAll
		scenarios = append(scenarios, Scenario{Name: "Stacking Enabled", Config: stacked})
	}

	return scenarios
}
