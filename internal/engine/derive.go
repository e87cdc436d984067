package engine

import (
	"fmt"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codescope/internal/analysis"
	"github.com/dusk-indust/codescope/internal/graph"
)

// couplingRows derives per-function coupling inputs for one file straight
// from its syntax tree: internal calls are calls resolving to another
// function in the same file (by plain name or through this/self dispatch),
// state reads are this/self member accesses outside call position.
func couplingRows(tree *graph.SyntaxTree, entities []graph.Entity) ([]analysis.FunctionCouplingRow, []analysis.CallPair) {
	var funcs []graph.Entity
	names := make(map[string]bool)
	for _, ent := range entities {
		if ent.Kind == graph.EntityKindFunction {
			funcs = append(funcs, ent)
			names[ent.Name] = true
		}
	}
	if len(funcs) == 0 {
		return nil, nil
	}

	d := tree.Plugin.Dialect
	internalCalls := make(map[string]int, len(funcs))
	stateReads := make(map[string]int, len(funcs))
	pairSeen := make(map[string]bool)
	var pairs []analysis.CallPair

	graph.Walk(tree.Root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case d.Call:
			callee := localCalleeName(n, tree.Source)
			from := enclosingFunction(funcs, n)
			if callee == "" || from == "" || !names[callee] {
				return true
			}
			internalCalls[from]++
			key := from + "\x00" + callee
			if !pairSeen[key] {
				pairSeen[key] = true
				pairs = append(pairs, analysis.CallPair{From: from, To: callee})
			}
		case d.Member:
			if !isSelfMember(n, tree.Source) || isCallee(n) {
				return true
			}
			if from := enclosingFunction(funcs, n); from != "" {
				stateReads[from]++
			}
		}
		return true
	})

	rows := make([]analysis.FunctionCouplingRow, 0, len(funcs))
	for _, fn := range funcs {
		rows = append(rows, analysis.FunctionCouplingRow{
			Name:          fn.Name,
			InternalCalls: internalCalls[fn.Name],
			StateReads:    stateReads[fn.Name],
		})
	}
	return rows, pairs
}

// localCalleeName returns the name a call would resolve to inside its own
// file: a plain identifier callee, or the member name for this/self dispatch.
func localCalleeName(call *tree_sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	if fn.Kind() == "identifier" {
		return fn.Utf8Text(src)
	}
	if isSelfMember(fn, src) {
		if prop := memberProp(fn); prop != nil {
			return prop.Utf8Text(src)
		}
	}
	return ""
}

// isSelfMember reports whether n is a member access rooted directly at the
// receiver object (this in ECMA grammars, self in Python).
func isSelfMember(n *tree_sitter.Node, src []byte) bool {
	obj := n.ChildByFieldName("object")
	if obj == nil {
		return false
	}
	text := obj.Utf8Text(src)
	return text == "this" || text == "self"
}

// isCallee reports whether n sits in call position of its parent.
func isCallee(n *tree_sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	fn := parent.ChildByFieldName("function")
	return fn != nil && fn.Id() == n.Id()
}

func memberProp(n *tree_sitter.Node) *tree_sitter.Node {
	if p := n.ChildByFieldName("property"); p != nil {
		return p
	}
	return n.ChildByFieldName("attribute")
}

// enclosingFunction returns the name of the innermost function entity whose
// line range contains n, or "" for top-level code.
func enclosingFunction(funcs []graph.Entity, n *tree_sitter.Node) string {
	row := int(n.StartPosition().Row) + 1
	name := ""
	best := -1
	for _, fn := range funcs {
		if fn.StartLine <= row && row <= fn.EndLine && fn.StartLine > best {
			best = fn.StartLine
			name = fn.Name
		}
	}
	return name
}

// buildImpactRequest derives depth-annotated caller rows for one function
// from the resolved call graph of a finished scan, walking CALLS edges in
// reverse breadth-first up to maxDepth.
func buildImpactRequest(res *Result, target string, maxDepth int) (analysis.ImpactRequest, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}

	var targetFile string
	found := false
	for _, ent := range res.Entities {
		if ent.Kind == graph.EntityKindFunction && ent.Name == target {
			targetFile = ent.FilePath
			found = true
			break
		}
	}
	if !found {
		return analysis.ImpactRequest{}, fmt.Errorf("impact target %q not found", target)
	}

	type node struct{ name, file string }
	callers := make(map[node][]node)
	for _, ref := range res.References {
		if ref.Kind != graph.RefKindCalls || ref.ToFile == "" {
			continue
		}
		callee := node{ref.ToName, ref.ToFile}
		callers[callee] = append(callers[callee], node{ref.FromName, ref.FromFile})
	}

	start := node{target, targetFile}
	visited := map[node]bool{start: true}
	frontier := []node{start}
	var rows []analysis.CallerRow
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []node
		for _, cur := range frontier {
			for _, caller := range callers[cur] {
				if visited[caller] {
					continue
				}
				visited[caller] = true
				rows = append(rows, analysis.CallerRow{
					Name: caller.name, FilePath: caller.file, Depth: depth,
				})
				next = append(next, caller)
			}
		}
		frontier = next
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Depth != rows[j].Depth {
			return rows[i].Depth < rows[j].Depth
		}
		if rows[i].FilePath != rows[j].FilePath {
			return rows[i].FilePath < rows[j].FilePath
		}
		return rows[i].Name < rows[j].Name
	})

	var tests []analysis.TestRow
	for _, r := range rows {
		if isTestCaller(r.Name, r.FilePath) {
			tests = append(tests, analysis.TestRow{Name: r.Name, FilePath: r.FilePath})
		}
	}

	return analysis.ImpactRequest{
		Target:     target,
		Callers:    rows,
		Tests:      tests,
		Complexity: targetComplexity(res, target, targetFile),
		MaxDepth:   maxDepth,
	}, nil
}

// isTestCaller matches the test-file and test-function naming conventions of
// the scanned languages.
func isTestCaller(name, file string) bool {
	base := file
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	switch {
	case strings.Contains(file, "__tests__/"),
		strings.Contains(base, "_test."),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."),
		strings.HasPrefix(base, "test_"):
		return true
	}
	return strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "test_")
}

func targetComplexity(res *Result, target, file string) int {
	for _, fr := range res.Files {
		if fr.Path != file || fr.Complexity == nil {
			continue
		}
		for _, fn := range fr.Complexity.Functions {
			if fn.Name == target {
				return fn.Metrics.Cyclomatic
			}
		}
	}
	return 0
}
