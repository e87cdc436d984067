package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// SyntaxTree is an immutable parse result owned by the caller. HasError marks
// best-effort recovery: the erroneous region is still navigable and extraction
// proceeds over whatever parsed correctly.
type SyntaxTree struct {
	Root     *tree_sitter.Node
	Source   []byte
	Plugin   *Plugin
	Path     string
	HasError bool

	tree *tree_sitter.Tree
}

// Close releases the underlying tree-sitter memory. The tree must not be used
// afterwards.
func (t *SyntaxTree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Parser turns source text into syntax trees. It owns a single tree-sitter
// engine; the grammar slot is engine state, so grammar-set plus parse runs as
// one critical section. For data-parallel batch use, construct one Parser per
// worker instead of sharing one across goroutines.
type Parser struct {
	registry *Registry

	mu     sync.Mutex
	engine *tree_sitter.Parser
}

// NewParser creates a Parser backed by the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{
		registry: registry,
		engine:   tree_sitter.NewParser(),
	}
}

// Parse parses source with the grammar of the plugin identified by langID.
// Malformed input is not an error: the returned tree carries HasError and
// recovery markers are preserved.
func (p *Parser) Parse(source []byte, langID string) (*SyntaxTree, error) {
	plugin := p.registry.PluginByID(langID)
	if plugin == nil {
		return nil, fmt.Errorf("unknown language: %s", langID)
	}
	return p.parse(source, plugin, "")
}

// ParseFile reads path and parses it with the plugin claiming its extension.
// The extension is the sole language signal; no content sniffing is performed.
func (p *Parser) ParseFile(path string) (*SyntaxTree, error) {
	ext := filepath.Ext(path)
	plugin := p.registry.Resolve(ext)
	if plugin == nil {
		return nil, &UnsupportedExtensionError{Path: path, Ext: ext}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return p.parse(source, plugin, path)
}

func (p *Parser) parse(source []byte, plugin *Plugin, path string) (*SyntaxTree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Grammar-set and parse stay inside the lock so no interleaved call can
	// observe a stale grammar.
	if err := p.engine.SetLanguage(plugin.Grammar); err != nil {
		return nil, fmt.Errorf("set grammar %s: %w", plugin.ID, err)
	}

	tree := p.engine.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", plugin.ID)
	}

	root := tree.RootNode()
	return &SyntaxTree{
		Root:     root,
		Source:   source,
		Plugin:   plugin,
		Path:     path,
		HasError: root.HasError(),
		tree:     tree,
	}, nil
}

// Close releases the parser engine.
func (p *Parser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil {
		p.engine.Close()
		p.engine = nil
	}
	return nil
}
