package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codescope/internal/graph"
)

// parseSource parses inline source with the named plugin for analyzer tests.
func parseSource(t *testing.T, src, langID string) *graph.SyntaxTree {
	t.Helper()
	p := graph.NewParser(graph.DefaultRegistry())
	t.Cleanup(func() { p.Close() })

	tree, err := p.Parse([]byte(src), langID)
	require.NoError(t, err)
	require.False(t, tree.HasError, "test source must parse cleanly")
	t.Cleanup(tree.Close)
	tree.Path = "test." + langID
	return tree
}

func analyzeOne(t *testing.T, src, langID, name string) FunctionComplexity {
	t.Helper()
	report := AnalyzeFileComplexity(parseSource(t, src, langID))
	for _, f := range report.Functions {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("function %s not found in report (%d functions)", name, len(report.Functions))
	return FunctionComplexity{}
}

func TestAnalyzeFunctionComplexity(t *testing.T) {
	t.Run("branchless body is cyclomatic 1", func(t *testing.T) {
		f := analyzeOne(t, "function a() {\n  return 1;\n}\n", "typescript", "a")
		assert.Equal(t, 1, f.Metrics.Cyclomatic)
		assert.Equal(t, 0, f.Metrics.Cognitive)
		assert.Equal(t, 0, f.Metrics.NestingDepth)
		assert.Equal(t, ComplexityLow, f.Level)
	})

	t.Run("if with else is cyclomatic 3", func(t *testing.T) {
		src := "function b(x) {\n  if (x) {\n    return 1;\n  } else {\n    return 2;\n  }\n}\n"
		f := analyzeOne(t, src, "typescript", "b")
		assert.Equal(t, 3, f.Metrics.Cyclomatic)
	})

	t.Run("nested conditionals accrue cognitive depth", func(t *testing.T) {
		src := "function c(a, b) {\n  if (a) {\n    if (b) {\n      work();\n    }\n  }\n}\n"
		f := analyzeOne(t, src, "typescript", "c")
		assert.Equal(t, 3, f.Metrics.Cyclomatic)
		// Outer if contributes 1+0, inner if 1+1.
		assert.Equal(t, 3, f.Metrics.Cognitive)
		assert.Equal(t, 2, f.Metrics.NestingDepth)
	})

	t.Run("short-circuit operators count for both measures", func(t *testing.T) {
		src := "function d(a, b, c) {\n  return a && b || c;\n}\n"
		f := analyzeOne(t, src, "typescript", "d")
		assert.Equal(t, 3, f.Metrics.Cyclomatic)
		assert.Equal(t, 2, f.Metrics.Cognitive)
	})

	t.Run("sibling branches do not nest", func(t *testing.T) {
		src := "function e(a, b) {\n  if (a) {\n    one();\n  }\n  if (b) {\n    two();\n  }\n}\n"
		f := analyzeOne(t, src, "typescript", "e")
		assert.Equal(t, 3, f.Metrics.Cyclomatic)
		assert.Equal(t, 2, f.Metrics.Cognitive, "depth resets on sibling subtrees")
		assert.Equal(t, 1, f.Metrics.NestingDepth)
	})

	t.Run("python boolean operators", func(t *testing.T) {
		src := "def f(x):\n    if x and x > 1:\n        return 1\n    return 0\n"
		f := analyzeOne(t, src, "python", "f")
		assert.Equal(t, 3, f.Metrics.Cyclomatic)
	})
}

func TestClassifyComplexity(t *testing.T) {
	cases := []struct {
		name string
		m    ComplexityMetrics
		want ComplexityLevel
	}{
		{"low", ComplexityMetrics{Cyclomatic: 5, Cognitive: 8, NestingDepth: 2}, ComplexityLow},
		{"medium by cyclomatic", ComplexityMetrics{Cyclomatic: 11}, ComplexityMedium},
		{"medium by cognitive", ComplexityMetrics{Cyclomatic: 4, Cognitive: 16}, ComplexityMedium},
		{"high by cyclomatic", ComplexityMetrics{Cyclomatic: 21}, ComplexityHigh},
		{"high by cognitive", ComplexityMetrics{Cyclomatic: 8, Cognitive: 31}, ComplexityHigh},
		{"critical", ComplexityMetrics{Cyclomatic: 55, Cognitive: 40, NestingDepth: 7}, ComplexityCritical},
		{"boundary stays low", ComplexityMetrics{Cyclomatic: 10, Cognitive: 15}, ComplexityLow},
		{"boundary stays high", ComplexityMetrics{Cyclomatic: 50, Cognitive: 40}, ComplexityHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyComplexity(tc.m))
		})
	}
}

func TestAnalyzeFileComplexity_Summary(t *testing.T) {
	src := "function a() {\n  return 1;\n}\n\nfunction b(x) {\n  if (x) {\n    return 1;\n  }\n  return 2;\n}\n"
	report := AnalyzeFileComplexity(parseSource(t, src, "typescript"))
	require.Len(t, report.Functions, 2)
	assert.Contains(t, report.Summary, "2 functions")
}
