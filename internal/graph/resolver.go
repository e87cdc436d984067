package graph

// ResolveOptions controls reference resolution for one file.
type ResolveOptions struct {
	// IncludeExternal keeps references whose target matches neither a
	// same-file entity nor an import binding. They are kept with an empty
	// ToFile, representing builtins, external dependencies, or unresolved
	// symbols. When false such references are dropped.
	IncludeExternal bool
}

// Resolver converts locally-scoped reference stubs into file-qualified edges
// using each file's own entities plus its import table. Construction needs
// only the names of other files' top-level entities, so whole-repo resolution
// is a DAG by file, never a cycle.
type Resolver struct {
	modules *ModuleIndex
	langOf  func(file string) string
}

// NewResolver builds a Resolver over the known file set. langOf maps a file
// path to its plugin id (callers usually close over the registry).
func NewResolver(modules *ModuleIndex, langOf func(file string) string) *Resolver {
	return &Resolver{modules: modules, langOf: langOf}
}

// ResolveFile resolves all references of one file. entities must be the full
// extraction output for that file, including its import entities. Import
// entities gain ResolvedPath as a side effect when their source module maps
// to a known file.
func (r *Resolver) ResolveFile(file string, entities []Entity, refs []Reference, opts ResolveOptions) []Reference {
	local := make(map[string]bool, len(entities))
	imports := r.importTable(file, entities)

	for _, e := range entities {
		if e.Kind == EntityKindImport || e.Kind == EntityKindFile {
			continue
		}
		local[e.Name] = true
	}

	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		// Self-references are filtered for the structural kinds, where they
		// only produce trivial presentation cycles. Calls legitimately
		// self-reference via recursion and pass through.
		if ref.Kind != RefKindCalls && ref.FromName == ref.ToName {
			continue
		}

		switch {
		case local[ref.ToName]:
			ref.ToFile = file
			out = append(out, ref)
		case imports[ref.ToName] != "":
			ref.ToFile = imports[ref.ToName]
			out = append(out, ref)
		case opts.IncludeExternal:
			out = append(out, ref) // ToFile stays empty: external/unresolved
		}
	}
	return out
}

// importTable builds the locally-visible-name to resolved-file map from a
// file's import entities, resolving each import's source module once. The
// visible name for a named specifier is its alias when present.
func (r *Resolver) importTable(file string, entities []Entity) map[string]string {
	table := make(map[string]string)
	lang := ""
	if r.langOf != nil {
		lang = r.langOf(file)
	}

	for i := range entities {
		ent := &entities[i]
		if ent.Kind != EntityKindImport || ent.Import == nil {
			continue
		}

		resolved, ok := r.modules.Resolve(ent.Import.Source, file, lang)
		if ok {
			ent.Import.ResolvedPath = resolved
		}

		for _, spec := range ent.Import.Specifiers {
			name := spec.Alias
			if name == "" {
				name = spec.Name
			}
			if name == "" || name == "*" {
				continue
			}
			if resolved != "" {
				table[name] = resolved
			}
		}
	}
	return table
}
