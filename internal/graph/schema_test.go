package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityID(t *testing.T) {
	id := EntityID("src/a.ts", EntityKindFunction, "foo", 10)
	assert.Len(t, id, 16, "ids are 16 hex characters")

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, id, EntityID("src/a.ts", EntityKindFunction, "foo", 10))
	})

	t.Run("every field participates", func(t *testing.T) {
		assert.NotEqual(t, id, EntityID("src/b.ts", EntityKindFunction, "foo", 10))
		assert.NotEqual(t, id, EntityID("src/a.ts", EntityKindVariable, "foo", 10))
		assert.NotEqual(t, id, EntityID("src/a.ts", EntityKindFunction, "bar", 10))
		assert.NotEqual(t, id, EntityID("src/a.ts", EntityKindFunction, "foo", 11))
	})

	t.Run("stable across unrelated edits", func(t *testing.T) {
		// Re-extracting the same declaration site after edits elsewhere in
		// the file must produce the same id.
		entities, _ := extractFixture(t, "testdata/fixtures/ts_project/utils.ts", "typescript")
		fn := findEntity(entities, EntityKindFunction, "formatPrice")
		require.NotNil(t, fn)
		assert.Equal(t, EntityID(fn.FilePath, fn.Kind, fn.Name, fn.StartLine), fn.ID)
	})
}
