package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/codescope/internal/engine"
	"github.com/dusk-indust/codescope/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a scan result.
// Files are grouped by top-level directory; resolved import edges between
// files become arrows.
func GenerateMermaid(res *engine.Result) string {
	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(path string) string {
		if id, ok := nodeIDs[path]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[path] = id
		return id
	}

	// Group files by their top-level directory.
	groups := make(map[string][]string)
	for _, f := range res.Files {
		groups[topDir(f.Path)] = append(groups[topDir(f.Path)], f.Path)
	}
	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range groupNames {
		members := groups[name]
		sort.Strings(members)

		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(name+"_dir"), name))
		for _, member := range members {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(member), shortPath(member)))
		}
		sb.WriteString("  end\n")
	}

	// Emit file-to-file edges from resolved import entities, deduplicated.
	seen := make(map[string]bool)
	for _, ent := range res.Entities {
		if ent.Kind != graph.EntityKindImport || ent.Import == nil || ent.Import.ResolvedPath == "" {
			continue
		}
		key := ent.FilePath + "->" + ent.Import.ResolvedPath
		if seen[key] || ent.FilePath == ent.Import.ResolvedPath {
			continue
		}
		seen[key] = true
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(ent.FilePath), getID(ent.Import.ResolvedPath)))
	}

	return sb.String()
}

func topDir(path string) string {
	parts := strings.SplitN(filepath.ToSlash(path), "/", 2)
	if len(parts) < 2 {
		return "."
	}
	return parts[0]
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
