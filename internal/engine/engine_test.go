package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codescope/internal/graph"
)

func scanFixtures(t *testing.T, opts Options) *Result {
	t.Helper()
	res, err := New(nil).ScanDir(context.Background(), "../../testdata/fixtures", opts)
	require.NoError(t, err)
	return res
}

func TestEngine_ScanDir(t *testing.T) {
	res := scanFixtures(t, Options{Workers: 2})

	assert.Equal(t, 7, res.Stats.FilesScanned)
	assert.Empty(t, res.Errors)

	// Files come back in path order.
	var paths []string
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		"go_project/model.go",
		"go_project/service.go",
		"py_project/models.py",
		"py_project/service.py",
		"ts_project/App.tsx",
		"ts_project/service.ts",
		"ts_project/utils.ts",
	}, paths)

	// Every file carries a file entity keyed to its relative path.
	for _, f := range res.Files {
		require.NotEmpty(t, f.Entities, f.Path)
		assert.Equal(t, graph.EntityKindFile, f.Entities[0].Kind, f.Path)
		assert.Equal(t, f.Path, f.Entities[0].FilePath, f.Path)
	}
}

func TestEngine_CrossFileResolution(t *testing.T) {
	res := scanFixtures(t, Options{})

	var serviceTS *FileReport
	for i := range res.Files {
		if res.Files[i].Path == "ts_project/service.ts" {
			serviceTS = &res.Files[i]
		}
	}
	require.NotNil(t, serviceTS)

	// displayTotal calls resolve across the import into utils.ts.
	var resolved int
	for _, ref := range serviceTS.References {
		if ref.Kind == graph.RefKindCalls && ref.ToFile == "ts_project/utils.ts" {
			resolved++
		}
	}
	assert.Equal(t, 2, resolved, "formatPrice and applyTax resolve to utils.ts")

	// The import entity records its resolution.
	var imp *graph.Entity
	for i := range serviceTS.Entities {
		if serviceTS.Entities[i].Kind == graph.EntityKindImport {
			imp = &serviceTS.Entities[i]
		}
	}
	require.NotNil(t, imp)
	require.NotNil(t, imp.Import)
	assert.Equal(t, "ts_project/utils.ts", imp.Import.ResolvedPath)
}

func TestEngine_Impact(t *testing.T) {
	res := scanFixtures(t, Options{ImpactTarget: "formatPrice"})

	require.NotNil(t, res.Impact)
	assert.Equal(t, "formatPrice", res.Impact.Target)

	// Both call sites resolve through the utils import; rendering Cart does
	// not reach formatPrice through CALLS edges.
	require.Len(t, res.Impact.DirectCallers, 2)
	assert.Equal(t, "PriceTag", res.Impact.DirectCallers[0].Name)
	assert.Equal(t, "ts_project/App.tsx", res.Impact.DirectCallers[0].FilePath)
	assert.Equal(t, "displayTotal", res.Impact.DirectCallers[1].Name)
	assert.Equal(t, "ts_project/service.ts", res.Impact.DirectCallers[1].FilePath)
	assert.Empty(t, res.Impact.TransitiveCallers)

	// Two untested direct callers: 2*2 + 10.
	assert.InDelta(t, 14.0, res.Impact.RiskScore, 0.001)
	assert.Equal(t, "medium", string(res.Impact.RiskLevel))

	_, err := New(nil).ScanDir(context.Background(), "../../testdata/fixtures",
		Options{ImpactTarget: "noSuchFunction"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "noSuchFunction")
}

func TestEngine_Determinism(t *testing.T) {
	// Two scans with different worker counts produce identical output.
	first := scanFixtures(t, Options{Workers: 1})
	second := scanFixtures(t, Options{Workers: 4})
	assert.Equal(t, first, second)
}

func TestEngine_Options(t *testing.T) {
	t.Run("language filter", func(t *testing.T) {
		res := scanFixtures(t, Options{Languages: []string{"python"}})
		assert.Equal(t, 2, res.Stats.FilesScanned)
		for _, f := range res.Files {
			assert.Equal(t, "python", f.Language)
		}
	})

	t.Run("excluded directories are skipped", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "main.ts"), []byte("const a = 1;\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep.ts"), []byte("const b = 2;\n"), 0o644))

		res, err := New(nil).ScanDir(context.Background(), root, Options{Excludes: []string{"node_modules"}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Stats.FilesScanned)
		assert.Equal(t, "main.ts", res.Files[0].Path)
	})

	t.Run("per-file analyzers attach to reports", func(t *testing.T) {
		root := t.TempDir()
		src := "function risky(x) {\n  if (x) {\n    db.query(\"SELECT \" + x);\n  }\n}\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, "risky.ts"), []byte(src), 0o644))

		res, err := New(nil).ScanDir(context.Background(), root, Options{
			Complexity: true,
			Security:   true,
			Dataflow:   true,
		})
		require.NoError(t, err)
		require.Len(t, res.Files, 1)

		report := res.Files[0]
		require.NotNil(t, report.Complexity)
		assert.NotEmpty(t, report.Complexity.Functions)
		require.NotNil(t, report.Security)
		assert.NotEmpty(t, report.Security.Findings)
		require.NotNil(t, report.Dataflow)
	})

	t.Run("refactoring rows derive from method dispatch", func(t *testing.T) {
		root := t.TempDir()
		src := "class Store {\n" +
			"  load() {\n" +
			"    return this.cache;\n" +
			"  }\n" +
			"\n" +
			"  refresh() {\n" +
			"    this.load();\n" +
			"    this.save();\n" +
			"    return this.cache;\n" +
			"  }\n" +
			"\n" +
			"  save() {\n" +
			"    this.data = this.cache;\n" +
			"  }\n" +
			"}\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, "store.ts"), []byte(src), 0o644))

		res, err := New(nil).ScanDir(context.Background(), root, Options{Refactoring: true})
		require.NoError(t, err)
		require.Len(t, res.Files, 1)

		ref := res.Files[0].Refactoring
		require.NotNil(t, ref)
		// load reads one field; save reads two; refresh adds two internal calls.
		require.Len(t, ref.Candidates, 2)
		assert.Equal(t, "load", ref.Candidates[0].Name)
		assert.Equal(t, 1, ref.Candidates[0].CouplingScore)
		assert.Equal(t, "save", ref.Candidates[1].Name)
		assert.Equal(t, 2, ref.Candidates[1].CouplingScore)
		assert.InDelta(t, 2.0, ref.AverageCoupling, 0.001)

		// All three methods connect through refresh's calls.
		require.Len(t, ref.Responsibilities, 1)
		assert.Equal(t, []string{"load", "refresh", "save"}, ref.Responsibilities[0].Functions)

		// A tighter threshold narrows the candidate list.
		res, err = New(nil).ScanDir(context.Background(), root, Options{Refactoring: true, CouplingThreshold: 2})
		require.NoError(t, err)
		require.NotNil(t, res.Files[0].Refactoring)
		require.Len(t, res.Files[0].Refactoring.Candidates, 1)
		assert.Equal(t, "load", res.Files[0].Refactoring.Candidates[0].Name)
	})

	t.Run("parse errors are recoverable, not fatal", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "broken.ts"),
			[]byte("function broken( {\n"), 0o644))

		res, err := New(nil).ScanDir(context.Background(), root, Options{})
		require.NoError(t, err)
		assert.Empty(t, res.Errors)
		require.Len(t, res.Files, 1)
		assert.True(t, res.Files[0].HasParseError)
	})
}
