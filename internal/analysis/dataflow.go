package analysis

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codescope/internal/graph"
)

// TaintCategory classifies where untrusted data enters or lands.
type TaintCategory string

const (
	TaintUserInput   TaintCategory = "user-input"
	TaintAPIResponse TaintCategory = "api-response"
	TaintFileRead    TaintCategory = "file-read"
	TaintEnvironment TaintCategory = "environment"

	SinkSQLInjection  TaintCategory = "sql-injection"
	SinkCommand       TaintCategory = "command-injection"
	SinkXSS           TaintCategory = "xss"
	SinkPathTraversal TaintCategory = "path-traversal"
)

// taintSourcePattern matches by substring against member-access or call text.
type taintSourcePattern struct {
	pattern  string
	category TaintCategory
}

// taintSinkPattern matches by exact trailing name against a call callee or an
// assignment left-hand side.
type taintSinkPattern struct {
	name     string
	category TaintCategory
	severity Severity
}

// The three static pattern tables. Matching is deliberately syntactic; see
// the package notes on Vulnerabilities below.
var taintSources = []taintSourcePattern{
	{"req.body", TaintUserInput},
	{"req.query", TaintUserInput},
	{"req.params", TaintUserInput},
	{"req.cookies", TaintUserInput},
	{"request.form", TaintUserInput},
	{"request.args", TaintUserInput},
	{"input(", TaintUserInput},
	{"document.location", TaintUserInput},
	{"location.search", TaintUserInput},
	{"localStorage.getItem", TaintUserInput},

	{"fetch(", TaintAPIResponse},
	{"axios.", TaintAPIResponse},
	{"http.get", TaintAPIResponse},
	{"requests.get", TaintAPIResponse},
	{"requests.post", TaintAPIResponse},

	{"readFile", TaintFileRead},
	{"readFileSync", TaintFileRead},
	{"open(", TaintFileRead},

	{"process.env", TaintEnvironment},
	{"os.environ", TaintEnvironment},
	{"os.getenv", TaintEnvironment},
}

var taintSinks = []taintSinkPattern{
	{"query", SinkSQLInjection, SeverityCritical},
	{"execute", SinkSQLInjection, SeverityCritical},
	{"raw", SinkSQLInjection, SeverityCritical},

	{"exec", SinkCommand, SeverityCritical},
	{"execSync", SinkCommand, SeverityCritical},
	{"spawn", SinkCommand, SeverityCritical},
	{"system", SinkCommand, SeverityCritical},
	{"popen", SinkCommand, SeverityCritical},

	{"innerHTML", SinkXSS, SeverityHigh},
	{"outerHTML", SinkXSS, SeverityHigh},
	{"write", SinkXSS, SeverityHigh},

	{"readFile", SinkPathTraversal, SeverityHigh},
	{"readFileSync", SinkPathTraversal, SeverityHigh},
	{"writeFile", SinkPathTraversal, SeverityHigh},
	{"createReadStream", SinkPathTraversal, SeverityHigh},
	{"sendFile", SinkPathTraversal, SeverityHigh},
	{"unlink", SinkPathTraversal, SeverityHigh},
}

var sanitizers = []string{
	"sanitize",
	"escape",
	"escapeHtml",
	"encodeURIComponent",
	"DOMPurify",
	"validator",
	"parameterize",
	"quote",
	"shlex.quote",
	"parseInt",
	"Number(",
}

// TaintSource is a detected entry point of untrusted data.
type TaintSource struct {
	Category TaintCategory `json:"category"`
	Pattern  string        `json:"pattern"`
	Variable string        `json:"variable"`
	FilePath string        `json:"filePath"`
	Line     int           `json:"line"`
}

// TaintSink is a detected dangerous operation.
type TaintSink struct {
	Category TaintCategory `json:"category"`
	Name     string        `json:"name"`
	Argument string        `json:"argument"`
	FilePath string        `json:"filePath"`
	Line     int           `json:"line"`
	Severity Severity      `json:"severity"`
}

// TaintVulnerability is an unsanitized source-to-sink flow.
type TaintVulnerability struct {
	Source      TaintSource `json:"source"`
	Sink        TaintSink   `json:"sink"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
}

// DataflowResult is the full output of one dataflow pass over one file.
type DataflowResult struct {
	FilePath        string               `json:"filePath"`
	Sources         []TaintSource        `json:"sources"`
	Sinks           []TaintSink          `json:"sinks"`
	Vulnerabilities []TaintVulnerability `json:"vulnerabilities"`
	Summary         string               `json:"summary"`
}

// AnalyzeDataflow runs the single-pass taint analysis over one tree.
//
// Vulnerability detection is a syntactic, intra-statement-text heuristic: a
// (source, sink) pair is flagged when the sink's argument text contains the
// tainted variable name as a substring and no sanitizer name appears in that
// same text. Reassignment chains and branches are not tracked. The substring
// semantics, including their false-positive/false-negative character, are a
// compatibility contract, not an implementation shortcut to fix.
func AnalyzeDataflow(tree *graph.SyntaxTree) *DataflowResult {
	d := tree.Plugin.Dialect
	src := tree.Source
	result := &DataflowResult{FilePath: tree.Path}

	seenSources := map[string]bool{}
	seenSinks := map[string]bool{}

	graph.Walk(tree.Root, func(n *tree_sitter.Node) bool {
		kind := n.Kind()

		// Every node is tested against both tables independently; a node may
		// match both, or neither.
		if kind == d.Member || kind == d.Call {
			text := n.Utf8Text(src)
			for _, sp := range taintSources {
				if !strings.Contains(text, sp.pattern) {
					continue
				}
				// Attribute the match to the smallest node containing the
				// pattern so a wrapping call does not duplicate it.
				if inner := childContaining(n, src, sp.pattern, d); inner != nil && inner.Id() != n.Id() {
					continue
				}
				variable := taintedVariable(n, src, d, text)
				key := fmt.Sprintf("%s@%d", sp.pattern, n.StartPosition().Row)
				if seenSources[key] {
					continue
				}
				seenSources[key] = true
				result.Sources = append(result.Sources, TaintSource{
					Category: sp.category,
					Pattern:  sp.pattern,
					Variable: variable,
					FilePath: tree.Path,
					Line:     int(n.StartPosition().Row) + 1,
				})
			}
		}

		if kind == d.Call {
			callee := calleeName(n, src)
			args := argumentText(n, src)
			for _, sk := range taintSinks {
				if callee != sk.name {
					continue
				}
				key := fmt.Sprintf("%s@%d", sk.name, n.StartPosition().Row)
				if seenSinks[key] {
					continue
				}
				seenSinks[key] = true
				result.Sinks = append(result.Sinks, TaintSink{
					Category: sk.category,
					Name:     sk.name,
					Argument: args,
					FilePath: tree.Path,
					Line:     int(n.StartPosition().Row) + 1,
					Severity: sk.severity,
				})
			}
		}

		if kind == d.Assignment {
			left := n.ChildByFieldName("left")
			right := n.ChildByFieldName("right")
			if left != nil && right != nil {
				leftName := trailingName(left.Utf8Text(src))
				for _, sk := range taintSinks {
					if leftName != sk.name {
						continue
					}
					key := fmt.Sprintf("%s@%d", sk.name, n.StartPosition().Row)
					if seenSinks[key] {
						continue
					}
					seenSinks[key] = true
					result.Sinks = append(result.Sinks, TaintSink{
						Category: sk.category,
						Name:     sk.name,
						Argument: right.Utf8Text(src),
						FilePath: tree.Path,
						Line:     int(n.StartPosition().Row) + 1,
						Severity: sk.severity,
					})
				}
			}
		}

		return true
	})

	// Post-pass: pair every source with every sink by substring containment.
	for _, source := range result.Sources {
		if source.Variable == "" {
			continue
		}
		for _, sink := range result.Sinks {
			if !strings.Contains(sink.Argument, source.Variable) {
				continue
			}
			if containsSanitizer(sink.Argument) {
				continue
			}
			result.Vulnerabilities = append(result.Vulnerabilities, TaintVulnerability{
				Source:   source,
				Sink:     sink,
				Severity: sink.Severity,
				Description: fmt.Sprintf("%s data %q reaches %s sink %q without sanitization",
					source.Category, source.Variable, sink.Category, sink.Name),
			})
		}
	}

	result.Summary = fmt.Sprintf("%d sources, %d sinks, %d vulnerabilities",
		len(result.Sources), len(result.Sinks), len(result.Vulnerabilities))
	return result
}

// taintedVariable finds the variable a source flows into: the enclosing
// declaration or assignment target when present, else the matched text.
func taintedVariable(n *tree_sitter.Node, src []byte, d graph.Dialect, matched string) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		kind := p.Kind()
		if kind == d.Declarator {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Utf8Text(src)
			}
			if left := p.ChildByFieldName("left"); left != nil {
				return left.Utf8Text(src)
			}
		}
		if kind == d.Assignment {
			if left := p.ChildByFieldName("left"); left != nil {
				return left.Utf8Text(src)
			}
		}
		// Stop at statement boundaries.
		if strings.HasSuffix(kind, "statement") || kind == "module" || kind == "source_file" || kind == "program" {
			break
		}
	}
	return matched
}

// childContaining returns a member/call child whose text still contains the
// pattern, if any.
func childContaining(n *tree_sitter.Node, src []byte, pattern string, d graph.Dialect) *tree_sitter.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		kind := c.Kind()
		if (kind == d.Member || kind == d.Call) && strings.Contains(c.Utf8Text(src), pattern) {
			return c
		}
	}
	return nil
}

// calleeName returns the trailing identifier of a call's callee: the method
// name for member calls, the function name otherwise.
func calleeName(call *tree_sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	return trailingName(fn.Utf8Text(src))
}

func argumentText(call *tree_sitter.Node, src []byte) string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	return strings.Trim(args.Utf8Text(src), "()")
}

func trailingName(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func containsSanitizer(text string) bool {
	for _, s := range sanitizers {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
