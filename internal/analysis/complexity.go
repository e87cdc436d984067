// Package analysis contains the stateless analyzer passes that consume
// extracted entities, references, and syntax trees: complexity metrics,
// taint/dataflow, security-pattern scanning, and change-impact/refactoring
// scoring. Passes do not depend on each other and hold no caches; every
// result is computed fresh per invocation.
package analysis

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codescope/internal/graph"
)

// ComplexityLevel buckets complexity metrics for display.
type ComplexityLevel string

const (
	ComplexityLow      ComplexityLevel = "low"
	ComplexityMedium   ComplexityLevel = "medium"
	ComplexityHigh     ComplexityLevel = "high"
	ComplexityCritical ComplexityLevel = "critical"
)

// ComplexityMetrics holds the three per-function complexity measures.
type ComplexityMetrics struct {
	Cyclomatic   int `json:"cyclomatic"`
	Cognitive    int `json:"cognitive"`
	NestingDepth int `json:"nestingDepth"`
}

// FunctionComplexity is the metrics for one function-like node.
type FunctionComplexity struct {
	Name      string            `json:"name"`
	FilePath  string            `json:"filePath"`
	StartLine int               `json:"startLine"`
	Metrics   ComplexityMetrics `json:"metrics"`
	Level     ComplexityLevel   `json:"level"`
}

// FileComplexity is the complexity report for one file.
type FileComplexity struct {
	FilePath  string               `json:"filePath"`
	Functions []FunctionComplexity `json:"functions"`
	Summary   string               `json:"summary"`
}

// ClassifyComplexity buckets metrics with fixed breakpoints. The breakpoints
// are part of the compatibility contract and must not drift.
func ClassifyComplexity(m ComplexityMetrics) ComplexityLevel {
	switch {
	case m.Cyclomatic > 50:
		return ComplexityCritical
	case m.Cyclomatic > 20 || m.Cognitive > 30:
		return ComplexityHigh
	case m.Cyclomatic > 10 || m.Cognitive > 15:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// AnalyzeFunctionComplexity computes metrics for one function-like node. The
// walk starts at the function body when present, else the whole node. The
// node-type vocabulary comes from the file's language dialect.
func AnalyzeFunctionComplexity(fn *tree_sitter.Node, source []byte, d graph.Dialect) ComplexityMetrics {
	root := fn.ChildByFieldName("body")
	if root == nil {
		root = fn
	}

	m := ComplexityMetrics{Cyclomatic: 1}
	maxDepth := 0

	graph.WalkNested(root, d.Nesting, func(n *tree_sitter.Node, depth int) {
		kind := n.Kind()

		if d.Nesting[kind] && depth+1 > maxDepth {
			maxDepth = depth + 1
		}

		if d.DecisionPoints[kind] {
			m.Cyclomatic++
		}
		if d.FlowBreaks[kind] {
			m.Cognitive += 1 + depth
		}

		// Short-circuit operators count once each for both measures.
		if kind == d.BinaryExpression {
			if op := n.ChildByFieldName("operator"); op != nil && d.ShortCircuit[op.Utf8Text(source)] {
				m.Cyclomatic++
				m.Cognitive++
			}
		}
	})

	m.NestingDepth = maxDepth
	return m
}

// AnalyzeFileComplexity computes metrics for every named function-like node
// in a tree.
func AnalyzeFileComplexity(tree *graph.SyntaxTree) *FileComplexity {
	d := tree.Plugin.Dialect
	report := &FileComplexity{FilePath: tree.Path}

	graph.Walk(tree.Root, func(n *tree_sitter.Node) bool {
		if !d.FunctionNodes[n.Kind()] {
			return true
		}
		name := functionName(n, tree.Source)
		if name == "" {
			return true // anonymous and unbound: skipped, not an error
		}

		metrics := AnalyzeFunctionComplexity(n, tree.Source, d)
		report.Functions = append(report.Functions, FunctionComplexity{
			Name:      name,
			FilePath:  tree.Path,
			StartLine: int(n.StartPosition().Row) + 1,
			Metrics:   metrics,
			Level:     ClassifyComplexity(metrics),
		})
		// Nested function literals still get their own entries via the
		// continued walk.
		return true
	})

	worst := ComplexityLow
	for _, f := range report.Functions {
		if levelRank(f.Level) > levelRank(worst) {
			worst = f.Level
		}
	}
	report.Summary = fmt.Sprintf("%d functions analyzed, worst level %s", len(report.Functions), worst)
	return report
}

// functionName resolves a function-like node's name directly or through its
// enclosing binding.
func functionName(n *tree_sitter.Node, source []byte) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Utf8Text(source)
	}
	if p := n.Parent(); p != nil {
		if nameNode := p.ChildByFieldName("name"); nameNode != nil && p.Kind() != "call_expression" {
			return nameNode.Utf8Text(source)
		}
	}
	return ""
}

func levelRank(l ComplexityLevel) int {
	switch l {
	case ComplexityCritical:
		return 3
	case ComplexityHigh:
		return 2
	case ComplexityMedium:
		return 1
	default:
		return 0
	}
}
