package analysis

import (
	"fmt"
	"sort"
)

// RiskLevel buckets a risk score for display.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// CallerRow is one depth-annotated caller of the target symbol, as returned
// by the graph store's caller query. Depth 1 means a direct call.
type CallerRow struct {
	Name     string `json:"name"`
	FilePath string `json:"filePath"`
	Depth    int    `json:"depth"`
}

// TestRow is one test reachable from the target symbol.
type TestRow struct {
	Name     string `json:"name"`
	FilePath string `json:"filePath"`
}

// ImpactRequest carries the store query rows plus the target's own metrics.
type ImpactRequest struct {
	Target     string
	Callers    []CallerRow
	Tests      []TestRow
	Complexity int
	MaxDepth   int
}

// ImpactResult ranks the danger of changing one symbol.
type ImpactResult struct {
	Target            string      `json:"target"`
	DirectCallers     []CallerRow `json:"directCallers"`
	TransitiveCallers []CallerRow `json:"transitiveCallers"`
	CoveringTests     []TestRow   `json:"coveringTests"`
	RiskScore         float64     `json:"riskScore"`
	RiskLevel         RiskLevel   `json:"riskLevel"`
	Summary           string      `json:"summary"`
}

// AnalyzeImpact filters the supplied caller rows into direct and transitive
// sets and scores the change risk. Traversal depth is already annotated by
// the store; this is filtering and arithmetic only.
func AnalyzeImpact(req ImpactRequest) *ImpactResult {
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	res := &ImpactResult{Target: req.Target, CoveringTests: req.Tests}
	for _, c := range req.Callers {
		switch {
		case c.Depth == 1:
			res.DirectCallers = append(res.DirectCallers, c)
		case c.Depth > 1 && c.Depth <= maxDepth:
			res.TransitiveCallers = append(res.TransitiveCallers, c)
		}
	}

	res.RiskScore = calculateRiskScore(
		len(res.DirectCallers), len(res.TransitiveCallers),
		len(req.Tests) > 0, req.Complexity)
	res.RiskLevel = classifyRisk(res.RiskScore)
	res.Summary = fmt.Sprintf("%s: %d direct, %d transitive callers, risk %.1f (%s)",
		req.Target, len(res.DirectCallers), len(res.TransitiveCallers),
		res.RiskScore, res.RiskLevel)
	return res
}

func calculateRiskScore(direct, transitive int, hasTests bool, complexity int) float64 {
	score := 2*float64(direct) + 0.5*float64(transitive)
	if !hasTests {
		score += 10
	}
	if complexity > 20 {
		score += 5
	}
	return score
}

func classifyRisk(score float64) RiskLevel {
	switch {
	case score <= 5:
		return RiskLow
	case score <= 15:
		return RiskMedium
	case score <= 30:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// FunctionCouplingRow is one function's coupling inputs from the store's
// per-file query.
type FunctionCouplingRow struct {
	Name          string `json:"name"`
	InternalCalls int    `json:"internalCalls"`
	StateReads    int    `json:"stateReads"`
}

// CallPair is one call relationship between two functions in a file.
type CallPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ExtractionCandidate is a low-coupling function safe to pull out of a file.
type ExtractionCandidate struct {
	Name          string `json:"name"`
	CouplingScore int    `json:"couplingScore"`
}

// Responsibility is one connected component of the file's call graph.
type Responsibility struct {
	Functions []string `json:"functions"`
}

// RefactoringResult describes how safely a file can be decomposed.
type RefactoringResult struct {
	FilePath         string                `json:"filePath"`
	Candidates       []ExtractionCandidate `json:"candidates"`
	AverageCoupling  float64               `json:"averageCoupling"`
	CouplingLevel    RiskLevel             `json:"couplingLevel"`
	Responsibilities []Responsibility      `json:"responsibilities"`
	Summary          string                `json:"summary"`
}

// AnalyzeRefactoring scores per-function coupling, ranks extraction
// candidates below the threshold, and groups functions into
// responsibilities by call connectivity.
func AnalyzeRefactoring(filePath string, rows []FunctionCouplingRow, calls []CallPair, threshold int) *RefactoringResult {
	if threshold <= 0 {
		threshold = 3
	}

	res := &RefactoringResult{FilePath: filePath}
	total := 0
	for _, r := range rows {
		score := r.InternalCalls + r.StateReads
		total += score
		if score < threshold {
			res.Candidates = append(res.Candidates, ExtractionCandidate{
				Name:          r.Name,
				CouplingScore: score,
			})
		}
	}
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].CouplingScore < res.Candidates[j].CouplingScore
	})

	if len(rows) > 0 {
		res.AverageCoupling = float64(total) / float64(len(rows))
	}
	switch {
	case res.AverageCoupling <= 3:
		res.CouplingLevel = RiskLow
	case res.AverageCoupling <= 6:
		res.CouplingLevel = RiskMedium
	default:
		res.CouplingLevel = RiskHigh
	}

	res.Responsibilities = groupResponsibilities(rows, calls)
	res.Summary = fmt.Sprintf("%s: %d extraction candidates, avg coupling %.1f (%s), %d responsibilities",
		filePath, len(res.Candidates), res.AverageCoupling,
		res.CouplingLevel, len(res.Responsibilities))
	return res
}

// groupResponsibilities treats call pairs as an undirected graph over the
// file's functions and reports each connected component, smallest first.
func groupResponsibilities(rows []FunctionCouplingRow, calls []CallPair) []Responsibility {
	adj := make(map[string]map[string]bool, len(rows))
	for _, r := range rows {
		adj[r.Name] = make(map[string]bool)
	}
	for _, c := range calls {
		if adj[c.From] == nil || adj[c.To] == nil {
			continue
		}
		adj[c.From][c.To] = true
		adj[c.To][c.From] = true
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	sort.Strings(names)

	visited := make(map[string]bool, len(names))
	var groups []Responsibility
	for _, name := range names {
		if visited[name] {
			continue
		}
		component := bfsComponent(name, adj, visited)
		sort.Strings(component)
		groups = append(groups, Responsibility{Functions: component})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Functions) < len(groups[j].Functions)
	})
	return groups
}

// bfsComponent performs BFS from start on the adjacency list and returns
// all reachable functions. It marks visited nodes as it goes.
func bfsComponent(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for neighbor := range adj[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	return component
}
