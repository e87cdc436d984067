package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Python(t *testing.T) {
	t.Run("models.py", func(t *testing.T) {
		entities, refs := extractFixture(t, "testdata/fixtures/py_project/models.py", "python")

		v := findEntity(entities, EntityKindVariable, "TAX_RATE")
		require.NotNil(t, v, "module-level assignment should be extracted")
		assert.True(t, v.Exported)

		order := findEntity(entities, EntityKindClass, "Order")
		require.NotNil(t, order)
		assert.Equal(t, "An order with a total in cents.", order.Doc)
		assertLineRange(t, order)

		init := findEntity(entities, EntityKindFunction, "__init__")
		require.NotNil(t, init)
		assert.False(t, init.Exported, "dunder names follow the underscore convention")
		require.NotNil(t, init.Function)
		var names []string
		for _, p := range init.Function.Params {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"self", "order_id", "total_cents"}, names)

		sub := findEntity(entities, EntityKindClass, "DiscountedOrder")
		require.NotNil(t, sub)
		require.NotNil(t, sub.Class)
		assert.Equal(t, "Order", sub.Class.Extends)
		assert.Len(t, findRefs(refs, RefKindExtends, "DiscountedOrder", "Order"), 1)

		// Assignments to attributes inside methods are locals, not entities.
		assert.Nil(t, findEntity(entities, EntityKindVariable, "self.order_id"))
	})

	t.Run("service.py", func(t *testing.T) {
		entities, refs := extractFixture(t, "testdata/fixtures/py_project/service.py", "python")

		imp := findEntity(entities, EntityKindImport, ".models")
		require.NotNil(t, imp, "relative from-import should be extracted")
		require.NotNil(t, imp.Import)
		require.Len(t, imp.Import.Specifiers, 1)
		assert.Equal(t, SpecifierNamed, imp.Import.Specifiers[0].Kind)
		assert.Equal(t, "Order", imp.Import.Specifiers[0].Name)

		fn := findEntity(entities, EntityKindFunction, "build_order")
		require.NotNil(t, fn)
		assert.True(t, fn.Exported)
		assert.Equal(t, "Create an order for the given id.", fn.Doc)
		require.NotNil(t, fn.Function)
		require.Len(t, fn.Function.Params, 2)
		assert.Equal(t, "order_id", fn.Function.Params[0].Name)
		assert.Equal(t, "total_cents", fn.Function.Params[1].Name)
		assert.True(t, fn.Function.Params[1].Optional)
		assert.Equal(t, "0", fn.Function.Params[1].Default)

		private := findEntity(entities, EntityKindFunction, "_reset_counters")
		require.NotNil(t, private)
		assert.False(t, private.Exported)

		assert.Len(t, findRefs(refs, RefKindCalls, "build_order", "Order"), 1)
	})
}
