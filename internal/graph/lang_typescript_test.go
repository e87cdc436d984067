package graph

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// findEntity returns the first entity matching kind and name, or nil.
func findEntity(entities []Entity, kind EntityKind, name string) *Entity {
	for i := range entities {
		if entities[i].Kind == kind && entities[i].Name == name {
			return &entities[i]
		}
	}
	return nil
}

// findRefs returns all references matching kind, from and to.
func findRefs(refs []Reference, kind ReferenceKind, from, to string) []Reference {
	var out []Reference
	for _, r := range refs {
		if r.Kind == kind && r.FromName == from && r.ToName == to {
			out = append(out, r)
		}
	}
	return out
}

// readFixture reads a test fixture file relative to the project root.
// Tests run from internal/graph/, so the relative path is ../../testdata/...
func readFixture(t *testing.T, relPath string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../" + relPath)
	require.NoError(t, err, "reading fixture %s", relPath)
	return data
}

// parseFixture parses a fixture with the named plugin and keys the tree to
// the fixture's relative path.
func parseFixture(t *testing.T, relPath, langID string) *SyntaxTree {
	t.Helper()
	p := NewParser(DefaultRegistry())
	t.Cleanup(func() { p.Close() })

	tree, err := p.Parse(readFixture(t, relPath), langID)
	require.NoError(t, err)
	require.NotNil(t, tree)
	t.Cleanup(tree.Close)
	tree.Path = relPath
	return tree
}

// extractFixture parses and extracts a fixture in one step.
func extractFixture(t *testing.T, relPath, langID string) ([]Entity, []Reference) {
	t.Helper()
	tree := parseFixture(t, relPath, langID)
	return tree.Plugin.Extractor.ExtractAll(tree)
}

// assertLineRange checks that StartLine and EndLine are populated and valid.
func assertLineRange(t *testing.T, ent *Entity) {
	t.Helper()
	assert.Greater(t, ent.StartLine, 0, "StartLine should be > 0 for %s", ent.Name)
	assert.Greater(t, ent.EndLine, 0, "EndLine should be > 0 for %s", ent.Name)
	assert.LessOrEqual(t, ent.StartLine, ent.EndLine, "StartLine <= EndLine for %s", ent.Name)
}

// ---------------------------------------------------------------------------
// TestExtract_TypeScript
// ---------------------------------------------------------------------------

func TestExtract_TypeScript(t *testing.T) {
	t.Run("utils.ts", func(t *testing.T) {
		entities, _ := extractFixture(t, "testdata/fixtures/ts_project/utils.ts", "typescript")

		fn := findEntity(entities, EntityKindFunction, "formatPrice")
		require.NotNil(t, fn, "formatPrice should be extracted")
		assert.True(t, fn.Exported)
		assert.Contains(t, fn.Doc, "Formats a price")
		require.NotNil(t, fn.Function)
		require.Len(t, fn.Function.Params, 1)
		assert.Equal(t, "cents", fn.Function.Params[0].Name)
		assert.Equal(t, "number", fn.Function.Params[0].Type)
		assert.Equal(t, "string", fn.Function.ReturnType)
		assertLineRange(t, fn)

		v := findEntity(entities, EntityKindVariable, "TAX_RATE")
		require.NotNil(t, v, "TAX_RATE should be extracted")
		assert.True(t, v.Exported)
		require.NotNil(t, v.Variable)
		assert.False(t, v.Variable.Mutable)
		assert.Equal(t, "const", v.Variable.DeclKeyword)

		arrow := findEntity(entities, EntityKindFunction, "applyTax")
		require.NotNil(t, arrow, "applyTax should be extracted as a function")
		assert.True(t, arrow.Exported)
		assert.Contains(t, arrow.Doc, "flat tax rate")
		require.NotNil(t, arrow.Function)
		assert.True(t, arrow.Function.Arrow)
		assert.Equal(t, "number", arrow.Function.ReturnType)

		// The arrow-bound name must not also appear as a variable.
		assert.Nil(t, findEntity(entities, EntityKindVariable, "applyTax"))
	})

	t.Run("service.ts", func(t *testing.T) {
		entities, refs := extractFixture(t, "testdata/fixtures/ts_project/service.ts", "typescript")

		imp := findEntity(entities, EntityKindImport, "./utils")
		require.NotNil(t, imp, "import entity should be extracted")
		require.NotNil(t, imp.Import)
		assert.Equal(t, "./utils", imp.Import.Source)
		require.Len(t, imp.Import.Specifiers, 2)
		assert.Equal(t, SpecifierNamed, imp.Import.Specifiers[0].Kind)
		assert.Equal(t, "formatPrice", imp.Import.Specifiers[0].Name)
		assert.Equal(t, "applyTax", imp.Import.Specifiers[1].Name)

		iface := findEntity(entities, EntityKindInterface, "Order")
		require.NotNil(t, iface)
		assert.True(t, iface.Exported)
		assert.Contains(t, iface.Doc, "order held in the cart")

		cls := findEntity(entities, EntityKindClass, "OrderService")
		require.NotNil(t, cls)
		assert.True(t, cls.Exported)

		method := findEntity(entities, EntityKindFunction, "displayTotal")
		require.NotNil(t, method)
		require.NotNil(t, method.Function)
		require.Len(t, method.Function.Params, 1)
		assert.Equal(t, "Order", method.Function.Params[0].Type)

		assert.Len(t, findRefs(refs, RefKindCalls, "displayTotal", "formatPrice"), 1)
		assert.Len(t, findRefs(refs, RefKindCalls, "displayTotal", "applyTax"), 1)
	})

	t.Run("parse error recovery", func(t *testing.T) {
		p := NewParser(DefaultRegistry())
		defer p.Close()

		tree, err := p.Parse([]byte("function broken( {\n  return 1;\n"), "typescript")
		require.NoError(t, err, "malformed input parses with recovery markers")
		defer tree.Close()
		assert.True(t, tree.HasError)
		assert.NotNil(t, tree.Root)
	})
}

// ---------------------------------------------------------------------------
// TestExtract_TSXComponents
// ---------------------------------------------------------------------------

func TestExtract_TSXComponents(t *testing.T) {
	entities, refs := extractFixture(t, "testdata/fixtures/ts_project/App.tsx", "tsx")

	// A JSX-returning upper-case function is both a function and a component.
	require.NotNil(t, findEntity(entities, EntityKindFunction, "PriceTag"))
	comp := findEntity(entities, EntityKindComponent, "PriceTag")
	require.NotNil(t, comp, "PriceTag should also be a component")
	require.NotNil(t, comp.Component)
	assert.Equal(t, []string{"cents", "label"}, comp.Component.Props)
	assert.Equal(t, "PriceTagProps", comp.Component.PropTypeName)

	cart := findEntity(entities, EntityKindComponent, "Cart")
	require.NotNil(t, cart, "arrow components should be extracted")
	require.NotNil(t, cart.Component)
	assert.Equal(t, []string{"items"}, cart.Component.Props)
	// The export keyword sits on the lexical declaration, not the arrow node.
	assert.True(t, cart.Exported, "exported arrow components carry the export flag")
	assert.True(t, comp.Exported)

	// Upper-case tags produce RENDERS edges; host elements do not.
	assert.NotEmpty(t, findRefs(refs, RefKindRenders, "Cart", "PriceTag"))
	for _, r := range refs {
		if r.Kind == RefKindRenders {
			assert.NotEqual(t, "span", r.ToName)
			assert.NotEqual(t, "div", r.ToName)
		}
	}

	// Lower-case helpers never become components.
	assert.Nil(t, findEntity(entities, EntityKindComponent, "formatPrice"))
}
