package analysis

import (
	"fmt"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codescope/internal/graph"
)

// Severity ranks findings for triage.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// FindingType identifies a security rule.
type FindingType string

const (
	FindingSQLInjection     FindingType = "sql_injection"
	FindingXSS              FindingType = "xss"
	FindingCommandInjection FindingType = "command_injection"
	FindingPathTraversal    FindingType = "path_traversal"
	FindingHardcodedSecret  FindingType = "hardcoded_secret"
	FindingEval             FindingType = "eval_usage"

	FindingUnvalidatedAmount     FindingType = "unvalidated_amount"
	FindingPCIDataLogging        FindingType = "pci_data_logging"
	FindingHardcodedPaymentKey   FindingType = "hardcoded_payment_key"
	FindingMissingIdempotencyKey FindingType = "missing_idempotency_key"
)

// SecurityFinding is one rule match at one node.
type SecurityFinding struct {
	Type        FindingType `json:"type"`
	Severity    Severity    `json:"severity"`
	FilePath    string      `json:"filePath"`
	Line        int         `json:"line"`
	Column      int         `json:"column"`
	Snippet     string      `json:"snippet"`
	Description string      `json:"description"`
	Suggestion  string      `json:"suggestion"`
}

// SecurityReport is the scanner output for one file.
type SecurityReport struct {
	FilePath string            `json:"filePath"`
	Findings []SecurityFinding `json:"findings"`
	Summary  string            `json:"summary"`
}

const snippetLimit = 120

// Known call-name sets for the generic rules.
var (
	queryCallNames = map[string]bool{
		"query": true, "execute": true, "raw": true, "rawQuery": true,
	}
	spawnCallNames = map[string]bool{
		"exec": true, "execSync": true, "spawn": true, "spawnSync": true,
		"system": true, "popen": true,
	}
	pathCallNames = map[string]bool{
		"readFile": true, "readFileSync": true, "writeFile": true,
		"writeFileSync": true, "createReadStream": true,
		"createWriteStream": true, "unlink": true, "unlinkSync": true,
		"sendFile": true,
	}
	rawHTMLSinks = map[string]bool{
		"innerHTML": true, "outerHTML": true,
	}
	evalCallNames  = map[string]bool{"eval": true, "Function": true}
	timerCallNames = map[string]bool{"setTimeout": true, "setInterval": true}
)

// secretPatterns match provider-shaped keys inside string literals;
// secretAssignmentPattern needs the surrounding declaration text, so it runs
// against assignment and declarator nodes instead.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk_test_[0-9a-zA-Z]{10,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`ghp_[0-9a-zA-Z]{36}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
	regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`),
}

var secretAssignmentPattern = regexp.MustCompile(`(?i)(?:password|passwd|secret|api[_-]?key)\s*[:=]\s*['"][^'"]{8,}['"]`)

// ScanSecurity runs the generic rule set plus the payment-specific rule set
// over one tree. Findings are deduplicated to at most one per (rule, node).
func ScanSecurity(tree *graph.SyntaxTree) *SecurityReport {
	s := &scanner{
		tree:   tree,
		d:      tree.Plugin.Dialect,
		src:    tree.Source,
		report: &SecurityReport{FilePath: tree.Path},
		seen:   make(map[string]bool),
	}

	graph.Walk(tree.Root, func(n *tree_sitter.Node) bool {
		s.visit(n)
		return true
	})

	counts := map[Severity]int{}
	for _, f := range s.report.Findings {
		counts[f.Severity]++
	}
	s.report.Summary = fmt.Sprintf("%d findings (%d critical, %d high)",
		len(s.report.Findings), counts[SeverityCritical], counts[SeverityHigh])
	return s.report
}

type scanner struct {
	tree   *graph.SyntaxTree
	d      graph.Dialect
	src    []byte
	report *SecurityReport
	seen   map[string]bool
}

func (s *scanner) visit(n *tree_sitter.Node) {
	kind := n.Kind()

	switch kind {
	case s.d.Call:
		s.checkQueryCall(n)
		s.checkSpawnCall(n)
		s.checkPathCall(n)
		s.checkEvalCall(n)
		s.checkChargeCall(n)
		s.checkPCILogging(n)
	case s.d.Assignment:
		s.checkRawHTMLAssignment(n)
	case s.d.String, s.d.Template:
		if kind != "" && !s.checkPaymentKeyLiteral(n) {
			s.checkSecretLiteral(n)
		}
	}

	// The credential-assignment shape needs the binding name, which only the
	// enclosing declarator or assignment text carries.
	if kind == s.d.Declarator || kind == s.d.Assignment {
		if secretAssignmentPattern.MatchString(n.Utf8Text(s.src)) {
			s.add(n, FindingHardcodedSecret, SeverityCritical,
				"credential assigned from a string literal",
				"move secrets to environment configuration or a secret manager")
		}
	}

	// The raw-HTML opt-in marker can appear anywhere in JSX attributes.
	if kind == "jsx_attribute" && strings.Contains(n.Utf8Text(s.src), "dangerouslySetInnerHTML") {
		s.add(n, FindingXSS, SeverityHigh,
			"raw HTML opt-in marker bypasses framework escaping",
			"render sanitized content instead of opting into raw HTML")
	}
}

// --- generic rules ---

func (s *scanner) checkQueryCall(n *tree_sitter.Node) {
	if !queryCallNames[calleeName(n, s.src)] {
		return
	}
	arg := firstArgument(n)
	if arg == nil {
		return
	}
	if isInterpolatedString(arg, s.d) || isStringConcat(arg, s.d, s.src) {
		s.add(n, FindingSQLInjection, SeverityCritical,
			"query built from string interpolation or concatenation",
			"use parameterized queries with placeholder arguments")
	}
}

func (s *scanner) checkSpawnCall(n *tree_sitter.Node) {
	if !spawnCallNames[calleeName(n, s.src)] {
		return
	}
	arg := firstArgument(n)
	if arg == nil || isLiteralString(arg, s.d) {
		return
	}
	s.add(n, FindingCommandInjection, SeverityCritical,
		"process spawned with a dynamic command argument",
		"pass a fixed command with an argument vector, never interpolated strings")
}

func (s *scanner) checkPathCall(n *tree_sitter.Node) {
	if !pathCallNames[calleeName(n, s.src)] {
		return
	}
	arg := firstArgument(n)
	if arg == nil || isLiteralString(arg, s.d) {
		return
	}
	s.add(n, FindingPathTraversal, SeverityHigh,
		"file path argument is dynamic",
		"resolve against a fixed base directory and reject traversal segments")
}

func (s *scanner) checkEvalCall(n *tree_sitter.Node) {
	callee := calleeName(n, s.src)
	if evalCallNames[callee] {
		s.add(n, FindingEval, SeverityHigh,
			"dynamic code execution",
			"replace dynamic code execution with explicit dispatch")
		return
	}
	// Timers are only flagged when handed a string body instead of a
	// function value.
	if timerCallNames[callee] {
		arg := firstArgument(n)
		if arg != nil && isLiteralString(arg, s.d) {
			s.add(n, FindingEval, SeverityHigh,
				"timer callback given as a string is evaluated as code",
				"pass a function value to the timer instead of a string")
		}
	}
}

func (s *scanner) checkRawHTMLAssignment(n *tree_sitter.Node) {
	left := n.ChildByFieldName("left")
	if left == nil {
		return
	}
	if !rawHTMLSinks[trailingName(left.Utf8Text(s.src))] {
		return
	}
	s.add(n, FindingXSS, SeverityHigh,
		"assignment to a raw HTML sink property",
		"assign textContent or sanitize the markup first")
}

func (s *scanner) checkSecretLiteral(n *tree_sitter.Node) {
	text := n.Utf8Text(s.src)
	for _, re := range secretPatterns {
		if re.MatchString(text) {
			s.add(n, FindingHardcodedSecret, SeverityCritical,
				"credential material embedded in source",
				"move secrets to environment configuration or a secret manager")
			return
		}
	}
}

// --- shared plumbing ---

// add records a finding, deduplicating per (rule, node).
func (s *scanner) add(n *tree_sitter.Node, t FindingType, sev Severity, desc, fix string) {
	key := fmt.Sprintf("%s@%d", t, n.StartByte())
	if s.seen[key] {
		return
	}
	s.seen[key] = true

	snippet := n.Utf8Text(s.src)
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit] + "..."
	}
	s.report.Findings = append(s.report.Findings, SecurityFinding{
		Type:        t,
		Severity:    sev,
		FilePath:    s.tree.Path,
		Line:        int(n.StartPosition().Row) + 1,
		Column:      int(n.StartPosition().Column) + 1,
		Snippet:     snippet,
		Description: desc,
		Suggestion:  fix,
	})
}

func firstArgument(call *tree_sitter.Node) *tree_sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	return args.NamedChild(0)
}

func isStringNode(n *tree_sitter.Node, d graph.Dialect) bool {
	kind := n.Kind()
	if kind == d.String {
		return true
	}
	return d.Template != "" && kind == d.Template
}

// hasInterpolation reports whether a string node carries at least one
// substitution. Grammars without string interpolation leave the kind empty.
func hasInterpolation(n *tree_sitter.Node, d graph.Dialect) bool {
	if d.Interpolation == "" {
		return false
	}
	found := false
	graph.Walk(n, func(c *tree_sitter.Node) bool {
		if c.Kind() == d.Interpolation {
			found = true
			return false
		}
		return true
	})
	return found
}

// isLiteralString reports whether n is a fixed string with no substitutions.
// An f-string or template with interpolation is dynamic, not literal.
func isLiteralString(n *tree_sitter.Node, d graph.Dialect) bool {
	return isStringNode(n, d) && !hasInterpolation(n, d)
}

// isInterpolatedString reports whether n is a string node containing at least
// one substitution.
func isInterpolatedString(n *tree_sitter.Node, d graph.Dialect) bool {
	return isStringNode(n, d) && hasInterpolation(n, d)
}

// isStringConcat reports whether n is a + expression mixing a string literal
// with non-literal operands.
func isStringConcat(n *tree_sitter.Node, d graph.Dialect, src []byte) bool {
	if n.Kind() != d.Concat {
		return false
	}
	op := n.ChildByFieldName("operator")
	if op == nil || op.Utf8Text(src) != "+" {
		return false
	}
	hasString := false
	hasDynamic := false
	graph.Walk(n, func(c *tree_sitter.Node) bool {
		switch c.Kind() {
		case d.String, d.Template:
			hasString = true
		case "identifier", "member_expression", "attribute", "call_expression", "call":
			hasDynamic = true
		}
		return true
	})
	return hasString && hasDynamic
}
