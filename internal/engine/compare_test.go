package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutopt/internal/model"
)

func TestCompareScenarios_RunsEachScenario(t *testing.T) {
	boxes := []model.Box{
		model.NewBox(500, 500, true, nil),
		model.NewBox(500, 500, true, nil),
	}
	bins := []model.Bin{model.NewBin(1000, 500, model.BinTypeOffcut)}

	scenarios := []Scenario{
		{Name: "medium", Config: testConfig()},
		{Name: "advanced", Config: func() model.Config {
			c := testConfig()
			c.Optimization = model.OptimizationAdvanced
			return c
		}()},
	}

	results := CompareScenarios(context.Background(), scenarios, boxes, bins)
	require.Len(t, results, 2)
	for i, res := range results {
		assert.Equal(t, scenarios[i].Name, res.Scenario.Name)
		assert.Equal(t, model.StatusNone, res.Status)
		require.NotNil(t, res.Solution)
		assert.Equal(t, 1, res.BinsUsed)
		assert.Equal(t, 0, res.Unplaced)
		assert.InDelta(t, 100.0, res.Efficiency, 1e-9)
	}
}

func TestCompareScenarios_FailedRunKeepsStatus(t *testing.T) {
	boxes := []model.Box{model.NewBox(5000, 5000, true, nil)}
	bins := []model.Bin{model.NewBin(1000, 1000, model.BinTypeOffcut)}

	results := CompareScenarios(context.Background(), []Scenario{{Name: "base", Config: testConfig()}}, boxes, bins)
	require.Len(t, results, 1)
	assert.Equal(t, model.StatusNoPlacement, results[0].Status)
	assert.Nil(t, results[0].Solution)
}

func TestBuildDefaultScenarios_FromDefaults(t *testing.T) {
	scenarios := BuildDefaultScenarios(model.DefaultConfig())

	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	assert.Equal(t, []string{
		"Current Settings",
		"Advanced Optimization",
		"Half Kerf",
		"No Edge Trim",
		"Stacking Enabled",
	}, names)

	assert.InDelta(t, 1.6, scenarios[2].Config.Kerf, 1e-9)
	assert.InDelta(t, 0.0, scenarios[3].Config.Trim, 1e-9)
	assert.Equal(t, model.StackingAll, scenarios[4].Config.Stacking)
}

func TestBuildDefaultScenarios_NothingToVary(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Optimization = model.OptimizationAdvanced
	cfg.Kerf = 0.5
	cfg.Trim = 0
	cfg.Stacking = model.StackingAll

	scenarios := BuildDefaultScenarios(cfg)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "Medium Optimization", scenarios[1].Name)
}
