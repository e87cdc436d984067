// Package engine drives whole-repository scans: it walks the tree, fans
// parse+extract out across workers, then resolves cross-file references
// once every file's entities are known.
package engine

import (
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/codescope/internal/analysis"
	"github.com/dusk-indust/codescope/internal/graph"
)

// Options control one scan.
type Options struct {
	// Workers caps parse parallelism; defaults to runtime.NumCPU.
	Workers int

	// Excludes are directory names skipped anywhere in the tree.
	Excludes []string

	// Languages restricts the scan to the named plugin ids; empty means all
	// registered plugins.
	Languages []string

	// IncludeExternal keeps references whose import target falls outside the
	// scanned repository, with an empty target file.
	IncludeExternal bool

	// Per-file analyzers to run after extraction.
	Complexity  bool
	Dataflow    bool
	Security    bool
	Refactoring bool

	// CouplingThreshold feeds the refactoring analysis; zero means the
	// analyzer default.
	CouplingThreshold int

	// ImpactTarget names a function to run impact analysis against after
	// resolution; empty skips impact. MaxCallerDepth bounds the caller
	// traversal, zero means the analyzer default.
	ImpactTarget   string
	MaxCallerDepth int
}

// FileError records a file that could not be scanned. The scan continues
// past it.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
	Msg  string `json:"error"`
}

func (e FileError) Error() string { return e.Path + ": " + e.Msg }

// FileReport is everything the scan produced for one file.
type FileReport struct {
	Path          string                      `json:"path"`
	Language      string                      `json:"language"`
	HasParseError bool                        `json:"hasParseError,omitempty"`
	Entities      []graph.Entity              `json:"entities"`
	References    []graph.Reference           `json:"references"`
	Complexity    *analysis.FileComplexity    `json:"complexity,omitempty"`
	Dataflow      *analysis.DataflowResult    `json:"dataflow,omitempty"`
	Security      *analysis.SecurityReport    `json:"security,omitempty"`
	Refactoring   *analysis.RefactoringResult `json:"refactoring,omitempty"`
}

// Stats summarize a scan.
type Stats struct {
	FilesScanned int `json:"filesScanned"`
	FilesFailed  int `json:"filesFailed"`
	Entities     int `json:"entities"`
	References   int `json:"references"`
}

// Result is a complete scan of one repository root. Files are ordered by
// path, so repeated scans of the same tree produce identical output.
type Result struct {
	Root       string                 `json:"root"`
	Files      []FileReport           `json:"files"`
	Entities   []graph.Entity         `json:"entities"`
	References []graph.Reference      `json:"references"`
	Impact     *analysis.ImpactResult `json:"impact,omitempty"`
	Errors     []FileError            `json:"errors,omitempty"`
	Stats      Stats                  `json:"stats"`
}

// Engine scans directories using a plugin registry.
type Engine struct {
	registry *graph.Registry
}

// New creates an Engine. A nil registry means the default plugin set.
func New(registry *graph.Registry) *Engine {
	if registry == nil {
		registry = graph.DefaultRegistry()
	}
	return &Engine{registry: registry}
}

// ScanDir parses and extracts every supported file under root, then resolves
// cross-file references. Individual file failures are collected in
// Result.Errors rather than aborting the scan.
func (e *Engine) ScanDir(ctx context.Context, root string, opts Options) (*Result, error) {
	paths, err := e.collectFiles(root, opts)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) && len(paths) > 0 {
		workers = len(paths)
	}

	var (
		mu       sync.Mutex
		reports  = make(map[string]*FileReport, len(paths))
		failures []FileError
	)

	jobs := make(chan string)
	g, gctx := errgroup.WithContext(ctx)

	// One parser per worker: the engine's grammar slot is worker-local state.
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			parser := graph.NewParser(e.registry)
			defer parser.Close()

			for rel := range jobs {
				report, ferr := e.scanFile(parser, root, rel, opts)
				mu.Lock()
				if ferr != nil {
					failures = append(failures, *ferr)
				} else {
					reports[rel] = report
				}
				mu.Unlock()
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, rel := range paths {
			select {
			case jobs <- rel:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := e.assemble(root, paths, reports, failures, opts)
	if opts.ImpactTarget != "" {
		req, rerr := buildImpactRequest(res, opts.ImpactTarget, opts.MaxCallerDepth)
		if rerr != nil {
			return nil, rerr
		}
		res.Impact = analysis.AnalyzeImpact(req)
	}
	return res, nil
}

// scanFile parses one file and runs extraction plus any requested analyzers.
func (e *Engine) scanFile(parser *graph.Parser, root, rel string, opts Options) (*FileReport, *FileError) {
	tree, err := parser.ParseFile(filepath.Join(root, rel))
	if err != nil {
		return nil, &FileError{Path: rel, Err: err, Msg: err.Error()}
	}
	defer tree.Close()

	// Entities and findings are keyed by repository-relative path.
	tree.Path = rel

	report := &FileReport{
		Path:          rel,
		Language:      tree.Plugin.ID,
		HasParseError: tree.HasError,
	}

	lines := bytes.Count(tree.Source, []byte{'\n'}) + 1
	fileEnt := graph.NewEntity(graph.EntityKindFile, filepath.Base(rel), rel, 1, lines)
	ents, refs := tree.Plugin.Extractor.ExtractAll(tree)
	report.Entities = append([]graph.Entity{fileEnt}, ents...)
	report.References = refs

	if opts.Complexity {
		report.Complexity = analysis.AnalyzeFileComplexity(tree)
	}
	if opts.Dataflow {
		report.Dataflow = analysis.AnalyzeDataflow(tree)
	}
	if opts.Security {
		report.Security = analysis.ScanSecurity(tree)
	}
	if opts.Refactoring {
		rows, pairs := couplingRows(tree, report.Entities)
		report.Refactoring = analysis.AnalyzeRefactoring(rel, rows, pairs, opts.CouplingThreshold)
	}
	return report, nil
}

// assemble resolves references across files and flattens per-file reports
// into deterministic path order.
func (e *Engine) assemble(root string, paths []string, reports map[string]*FileReport, failures []FileError, opts Options) *Result {
	scanned := make([]string, 0, len(reports))
	for rel := range reports {
		scanned = append(scanned, rel)
	}
	sort.Strings(scanned)

	modules := graph.NewModuleIndex(root, scanned)
	resolver := graph.NewResolver(modules, func(file string) string {
		if p := e.registry.Resolve(filepath.Ext(file)); p != nil {
			return p.ID
		}
		return ""
	})
	ropts := graph.ResolveOptions{IncludeExternal: opts.IncludeExternal}

	res := &Result{Root: root}
	for _, rel := range scanned {
		report := reports[rel]
		report.References = resolver.ResolveFile(rel, report.Entities, report.References, ropts)

		res.Files = append(res.Files, *report)
		res.Entities = append(res.Entities, report.Entities...)
		res.References = append(res.References, report.References...)
	}

	sort.SliceStable(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	res.Errors = failures
	res.Stats = Stats{
		FilesScanned: len(scanned),
		FilesFailed:  len(failures),
		Entities:     len(res.Entities),
		References:   len(res.References),
	}
	return res
}

// collectFiles walks root and returns repository-relative paths of every
// file a registered plugin claims, in sorted order.
func (e *Engine) collectFiles(root string, opts Options) ([]string, error) {
	langFilter := make(map[string]bool, len(opts.Languages))
	for _, l := range opts.Languages {
		langFilter[l] = true
	}
	excluded := make(map[string]bool, len(opts.Excludes))
	for _, d := range opts.Excludes {
		excluded[d] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (excluded[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		plugin := e.registry.Resolve(filepath.Ext(path))
		if plugin == nil {
			return nil
		}
		if len(langFilter) > 0 && !langFilter[plugin.ID] {
			return nil
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
