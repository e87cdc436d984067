package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

// JavaScriptPlugin returns the plugin for JavaScript sources. The JavaScript
// grammar shares its node vocabulary with the TypeScript grammars (minus the
// type-only declarations), so the extractor and dialect are shared; JSX is
// part of the grammar, so component extraction works for .jsx files too.
func JavaScriptPlugin() *Plugin {
	return &Plugin{
		ID:         "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		Grammar:    tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
		Extractor:  &tsExtractor{langID: "javascript"},
		Dialect:    ecmaDialect(),
	}
}
