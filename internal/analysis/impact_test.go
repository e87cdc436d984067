package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRiskScore(t *testing.T) {
	// 5*2 + 10*0.5 + 10 + 5 = 30.
	score := calculateRiskScore(5, 10, false, 25)
	assert.Equal(t, 30.0, score)
	assert.Equal(t, RiskHigh, classifyRisk(30))
	assert.Equal(t, RiskCritical, classifyRisk(31))

	assert.Equal(t, RiskLow, classifyRisk(5))
	assert.Equal(t, RiskMedium, classifyRisk(5.5))
	assert.Equal(t, RiskMedium, classifyRisk(15))
	assert.Equal(t, RiskHigh, classifyRisk(15.5))

	assert.Equal(t, 0.0, calculateRiskScore(0, 0, true, 1),
		"tested, simple, uncalled symbols carry no risk")
}

func TestAnalyzeImpact(t *testing.T) {
	callers := []CallerRow{
		{Name: "a", FilePath: "a.ts", Depth: 1},
		{Name: "b", FilePath: "b.ts", Depth: 1},
		{Name: "c", FilePath: "c.ts", Depth: 2},
		{Name: "d", FilePath: "d.ts", Depth: 3},
		{Name: "e", FilePath: "e.ts", Depth: 4},
	}

	t.Run("depth filters", func(t *testing.T) {
		res := AnalyzeImpact(ImpactRequest{
			Target:   "save",
			Callers:  callers,
			MaxDepth: 3,
			Tests:    []TestRow{{Name: "TestSave", FilePath: "save_test.ts"}},
		})

		require.Len(t, res.DirectCallers, 2)
		require.Len(t, res.TransitiveCallers, 2, "rows past max depth are excluded")

		// 2*2 + 2*0.5 = 5, covered by tests, low complexity.
		assert.Equal(t, 5.0, res.RiskScore)
		assert.Equal(t, RiskLow, res.RiskLevel)
		assert.Contains(t, res.Summary, "save")
	})

	t.Run("untested complex target", func(t *testing.T) {
		res := AnalyzeImpact(ImpactRequest{
			Target:     "save",
			Callers:    callers[:2],
			MaxDepth:   3,
			Complexity: 25,
		})

		// 2*2 + 10 + 5 = 19.
		assert.Equal(t, 19.0, res.RiskScore)
		assert.Equal(t, RiskHigh, res.RiskLevel)
	})

	t.Run("default max depth", func(t *testing.T) {
		res := AnalyzeImpact(ImpactRequest{Target: "save", Callers: callers, Tests: []TestRow{{}}})
		assert.Len(t, res.TransitiveCallers, 2, "defaults to depth 3")
	})
}

func TestAnalyzeRefactoring(t *testing.T) {
	rows := []FunctionCouplingRow{
		{Name: "parse", InternalCalls: 0, StateReads: 0},
		{Name: "render", InternalCalls: 1, StateReads: 1},
		{Name: "dispatch", InternalCalls: 3, StateReads: 0},
		{Name: "update", InternalCalls: 4, StateReads: 2},
	}

	t.Run("extraction candidates", func(t *testing.T) {
		res := AnalyzeRefactoring("src/view.ts", rows, nil, 0)

		require.Len(t, res.Candidates, 2)
		assert.Equal(t, "parse", res.Candidates[0].Name, "candidates sort ascending by score")
		assert.Equal(t, 0, res.Candidates[0].CouplingScore)
		assert.Equal(t, "render", res.Candidates[1].Name)

		// Score 3 is not < 3 at the default threshold.
		for _, c := range res.Candidates {
			assert.NotEqual(t, "dispatch", c.Name)
		}
	})

	t.Run("zero coupling is always a candidate at the default threshold", func(t *testing.T) {
		res := AnalyzeRefactoring("f.ts", []FunctionCouplingRow{{Name: "pure"}}, nil, 0)
		require.Len(t, res.Candidates, 1)
		assert.Equal(t, "pure", res.Candidates[0].Name)
	})

	t.Run("average coupling buckets", func(t *testing.T) {
		// (0 + 2 + 3 + 6) / 4 = 2.75.
		res := AnalyzeRefactoring("src/view.ts", rows, nil, 0)
		assert.InDelta(t, 2.75, res.AverageCoupling, 0.001)
		assert.Equal(t, RiskLow, res.CouplingLevel)

		heavy := []FunctionCouplingRow{{Name: "a", InternalCalls: 8}}
		assert.Equal(t, RiskHigh, AnalyzeRefactoring("f.ts", heavy, nil, 0).CouplingLevel)

		mid := []FunctionCouplingRow{{Name: "a", InternalCalls: 5}}
		assert.Equal(t, RiskMedium, AnalyzeRefactoring("f.ts", mid, nil, 0).CouplingLevel)
	})

	t.Run("responsibility grouping", func(t *testing.T) {
		calls := []CallPair{
			{From: "render", To: "parse"},
			{From: "update", To: "dispatch"},
		}
		res := AnalyzeRefactoring("src/view.ts", rows, calls, 0)

		require.Len(t, res.Responsibilities, 2)
		assert.Equal(t, []string{"dispatch", "update"}, res.Responsibilities[0].Functions)
		assert.Equal(t, []string{"parse", "render"}, res.Responsibilities[1].Functions)
	})

	t.Run("groups order smallest first", func(t *testing.T) {
		calls := []CallPair{
			{From: "render", To: "parse"},
			{From: "render", To: "dispatch"},
		}
		res := AnalyzeRefactoring("src/view.ts", rows, calls, 0)

		require.Len(t, res.Responsibilities, 2)
		assert.Equal(t, []string{"update"}, res.Responsibilities[0].Functions,
			"isolated functions form singleton groups presented first")
		assert.Equal(t, []string{"dispatch", "parse", "render"}, res.Responsibilities[1].Functions)
	})

	t.Run("call pairs outside the row set are ignored", func(t *testing.T) {
		calls := []CallPair{{From: "render", To: "unknownHelper"}}
		res := AnalyzeRefactoring("src/view.ts", rows, calls, 0)
		assert.Len(t, res.Responsibilities, 4)
	})
}
