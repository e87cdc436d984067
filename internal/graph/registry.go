package graph

import (
	"log"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Extractor turns a parsed syntax tree into entities and same-file reference
// stubs in a single pass.
type Extractor interface {
	ExtractAll(tree *SyntaxTree) ([]Entity, []Reference)
}

// Dialect carries the grammar-specific node-type vocabulary that the analyzer
// passes need. The analysis algorithms are language-agnostic; the concrete
// node-type membership is not, so each plugin supplies its own sets.
type Dialect struct {
	// Complexity sets.
	DecisionPoints map[string]bool // branch/loop/case/catch/ternary node kinds
	FlowBreaks     map[string]bool // DecisionPoints plus break/continue kinds
	Nesting        map[string]bool // kinds that increase structural nesting
	FunctionNodes  map[string]bool // function-like declaration/literal kinds

	// Expression shapes used by complexity and dataflow.
	BinaryExpression string          // kind of binary-expression nodes
	ShortCircuit     map[string]bool // short-circuit operator tokens (&&, ||, and, or)

	// Statement shapes used by dataflow and the security scanner.
	Call          string // call-expression kind
	Member        string // member/selector/attribute access kind
	Assignment    string // assignment-expression kind
	Declarator    string // variable-declarator (binding) kind
	String        string // plain string literal kind
	Template      string // template/interpolated string kind ("" if none)
	Concat        string // binary-expression kind carrying + concatenation
	Interpolation string // substitution kind inside string nodes ("" if none)
}

// Plugin bundles everything the pipeline needs for one language: a grammar
// handle, an extractor set, and the dialect vocabulary. There is no central
// language enum; adding a language is one Register call.
type Plugin struct {
	ID         string
	Extensions []string
	Grammar    *tree_sitter.Language
	Extractor  Extractor
	Dialect    Dialect
}

// Registry maps file extensions to language plugins.
type Registry struct {
	byExt map[string]*Plugin
	byID  map[string]*Plugin

	// Warn is called for non-fatal registration problems (collisions).
	// Defaults to log.Printf.
	Warn func(format string, args ...any)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byExt: make(map[string]*Plugin),
		byID:  make(map[string]*Plugin),
		Warn:  log.Printf,
	}
}

// Register adds a plugin. A plugin must have a non-empty id and at least one
// extension; extensions are normalized to lower-case with a leading dot. On an
// id or extension collision the new registration wins and a warning is
// surfaced; collisions are not errors.
func (r *Registry) Register(p *Plugin) error {
	if p == nil || p.ID == "" {
		return errEmptyPluginID
	}
	exts := make([]string, 0, len(p.Extensions))
	for _, e := range p.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	if len(exts) == 0 {
		return errNoExtensions
	}
	p.Extensions = exts

	if prev, ok := r.byID[p.ID]; ok && prev != p {
		r.warnf("plugin %q re-registered; replacing previous registration", p.ID)
	}
	r.byID[p.ID] = p

	for _, e := range exts {
		if prev, ok := r.byExt[e]; ok && prev.ID != p.ID {
			r.warnf("extension %q moves from plugin %q to %q", e, prev.ID, p.ID)
		}
		r.byExt[e] = p
	}
	return nil
}

// Resolve returns the plugin governing an extension, or nil. The extension is
// normalized the same way Register normalizes it.
func (r *Registry) Resolve(ext string) *Plugin {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return r.byExt[ext]
}

// PluginByID returns the plugin with the given id, or nil.
func (r *Registry) PluginByID(id string) *Plugin {
	return r.byID[id]
}

// IsSupported reports whether any plugin claims the extension.
func (r *Registry) IsSupported(ext string) bool {
	return r.Resolve(ext) != nil
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for e := range r.byExt {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Plugins returns all registered plugins, sorted by id.
func (r *Registry) Plugins() []*Plugin {
	out := make([]*Plugin, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) warnf(format string, args ...any) {
	if r.Warn != nil {
		r.Warn(format, args...)
	}
}

// DefaultRegistry returns a registry with all built-in language plugins.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []*Plugin{
		TypeScriptPlugin(),
		TSXPlugin(),
		JavaScriptPlugin(),
		PythonPlugin(),
		GoPlugin(),
		RustPlugin(),
	} {
		// Built-in plugins are well-formed; Register only fails on empty
		// ids or extension lists.
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}
