package graph

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ModuleIndex maps raw import specifiers (as extracted from source) to
// repo-relative file paths. It is built once per scan from the set of known
// files plus module metadata discovered at the repository root; resolution
// itself does no filesystem I/O.
type ModuleIndex struct {
	repoRoot  string
	fileSet   map[string]bool
	dirIndex  map[string][]string
	goModPath string
}

// NewModuleIndex builds a ModuleIndex from the repository root and the known
// repo-relative file paths.
func NewModuleIndex(repoRoot string, knownFiles []string) *ModuleIndex {
	m := &ModuleIndex{
		repoRoot: repoRoot,
		fileSet:  make(map[string]bool, len(knownFiles)),
		dirIndex: make(map[string][]string),
	}
	for _, f := range knownFiles {
		m.fileSet[f] = true
		dir := filepath.Dir(f)
		m.dirIndex[dir] = append(m.dirIndex[dir], f)
	}
	m.scanGoMod()
	return m
}

// Resolve maps an import specifier from sourceFile to a repo-relative file
// path. langID selects the specifier syntax. A false return means the
// specifier names an external dependency or an unknown file; both are
// terminal, not errors.
func (m *ModuleIndex) Resolve(specifier, sourceFile, langID string) (string, bool) {
	switch langID {
	case "typescript", "tsx", "javascript":
		return m.resolveEcma(specifier, sourceFile)
	case "python":
		return m.resolvePython(specifier, sourceFile)
	case "go":
		return m.resolveGo(specifier)
	case "rust":
		return m.resolveRust(specifier, sourceFile)
	default:
		return "", false
	}
}

var ecmaExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".mjs",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

func (m *ModuleIndex) resolveEcma(specifier, sourceFile string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return "", false // bare specifier: external package
	}
	base := filepath.Clean(filepath.Join(filepath.Dir(sourceFile), specifier))
	return m.probe(base, ecmaExtensions)
}

func (m *ModuleIndex) resolvePython(specifier, sourceFile string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		// Absolute import: try it as a repo-rooted module path before
		// declaring it external.
		rel := strings.ReplaceAll(specifier, ".", "/")
		return m.probe(rel, []string{".py", "/__init__.py"})
	}

	dots := 0
	for _, c := range specifier {
		if c != '.' {
			break
		}
		dots++
	}
	baseDir := filepath.Dir(sourceFile)
	for i := 1; i < dots; i++ {
		baseDir = filepath.Dir(baseDir)
	}

	modulePart := specifier[dots:]
	if modulePart == "" {
		return m.probe(filepath.Join(baseDir, "__init__"), []string{".py"})
	}
	rel := strings.ReplaceAll(modulePart, ".", "/")
	return m.probe(filepath.Join(baseDir, rel), []string{".py", "/__init__.py"})
}

func (m *ModuleIndex) resolveGo(specifier string) (string, bool) {
	if m.goModPath == "" || !strings.HasPrefix(specifier, m.goModPath) {
		return "", false // stdlib or external module
	}
	relDir := strings.TrimPrefix(strings.TrimPrefix(specifier, m.goModPath), "/")

	files := append([]string(nil), m.dirIndex[relDir]...)
	sort.Strings(files)
	for _, f := range files {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			return f, true
		}
	}
	return "", false
}

func (m *ModuleIndex) resolveRust(specifier, sourceFile string) (string, bool) {
	if idx := strings.Index(specifier, "::{"); idx != -1 {
		specifier = specifier[:idx]
	}

	var baseDir string
	var modulePath string
	switch {
	case strings.HasPrefix(specifier, "crate::"):
		modulePath = strings.TrimPrefix(specifier, "crate::")
		baseDir = rustCrateRoot(sourceFile)
	case strings.HasPrefix(specifier, "self::"):
		modulePath = strings.TrimPrefix(specifier, "self::")
		baseDir = filepath.Dir(sourceFile)
	case strings.HasPrefix(specifier, "super::"):
		modulePath = strings.TrimPrefix(specifier, "super::")
		baseDir = filepath.Dir(filepath.Dir(sourceFile))
	default:
		return "", false // external crate
	}

	rel := strings.ReplaceAll(modulePath, "::", "/")
	// The leaf path segment is often an item, not a module; probe the full
	// path first, then its parent module file.
	if resolved, ok := m.probe(filepath.Join(baseDir, rel), []string{".rs", "/mod.rs"}); ok {
		return resolved, true
	}
	if parent := filepath.Dir(rel); parent != "." {
		return m.probe(filepath.Join(baseDir, parent), []string{".rs", "/mod.rs"})
	}
	return "", false
}

// rustCrateRoot walks up from a file to the nearest src directory, the
// conventional crate source root.
func rustCrateRoot(filePath string) string {
	dir := filepath.Dir(filePath)
	for dir != "." && dir != "/" && dir != "" {
		if filepath.Base(dir) == "src" {
			return dir
		}
		dir = filepath.Dir(dir)
	}
	return "src"
}

// probe checks basePath, then basePath with each extension appended, against
// the known file set.
func (m *ModuleIndex) probe(basePath string, extensions []string) (string, bool) {
	if m.fileSet[basePath] {
		return basePath, true
	}
	for _, ext := range extensions {
		if candidate := basePath + ext; m.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

func (m *ModuleIndex) scanGoMod() {
	f, err := os.Open(filepath.Join(m.repoRoot, "go.mod"))
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			m.goModPath = strings.TrimSpace(strings.TrimPrefix(line, "module"))
			return
		}
	}
}
