package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing file yields zero config", func(t *testing.T) {
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, cfg.Languages)
		assert.Equal(t, DefaultExcludes, cfg.Excludes())
	})

	t.Run("reads codescope.yml", func(t *testing.T) {
		dir := t.TempDir()
		data := "languages:\n  - typescript\n  - python\nworkers: 4\nexclude:\n  - generated\ncouplingThreshold: 5\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "codescope.yml"), []byte(data), 0o644))

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"typescript", "python"}, cfg.Languages)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, 5, cfg.CouplingThreshold)
		assert.Equal(t, []string{"generated"}, cfg.Excludes())
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "codescope.yml"), []byte("workers: [nope"), 0o644))

		_, err := Load(dir)
		assert.Error(t, err)
	})
}
