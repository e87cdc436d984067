package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonPlugin returns the plugin for Python sources.
func PythonPlugin() *Plugin {
	decisions := map[string]bool{
		"if_statement":           true,
		"elif_clause":            true,
		"else_clause":            true,
		"for_statement":          true,
		"while_statement":        true,
		"except_clause":          true,
		"conditional_expression": true,
		"case_clause":            true,
	}
	flowBreaks := map[string]bool{
		"break_statement":    true,
		"continue_statement": true,
	}
	for k := range decisions {
		flowBreaks[k] = true
	}
	return &Plugin{
		ID:         "python",
		Extensions: []string{".py"},
		Grammar:    tree_sitter.NewLanguage(tree_sitter_python.Language()),
		Extractor:  &pyExtractor{},
		Dialect: Dialect{
			DecisionPoints: decisions,
			FlowBreaks:     flowBreaks,
			Nesting: map[string]bool{
				"if_statement":        true,
				"for_statement":       true,
				"while_statement":     true,
				"try_statement":       true,
				"with_statement":      true,
				"match_statement":     true,
				"function_definition": true,
				"lambda":              true,
			},
			FunctionNodes: map[string]bool{
				"function_definition": true,
				"lambda":              true,
			},
			BinaryExpression: "boolean_operator",
			ShortCircuit:     map[string]bool{"and": true, "or": true},
			Call:             "call",
			Member:           "attribute",
			Assignment:       "assignment",
			Declarator:       "assignment",
			String:           "string",
			Template:         "",
			Concat:           "binary_operator",
			Interpolation:    "interpolation",
		},
	}
}

// pyExtractor extracts entities and reference stubs from Python trees.
type pyExtractor struct{}

func (e *pyExtractor) ExtractAll(tree *SyntaxTree) ([]Entity, []Reference) {
	var entities []Entity
	var refs []Reference
	src := tree.Source
	path := tree.Path

	Walk(tree.Root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			e.extractFunction(n, src, path, &entities)

		case "class_definition":
			e.extractClass(n, src, path, &entities, &refs)

		case "assignment":
			e.extractVariable(n, src, path, &entities)

		case "import_statement":
			e.extractImport(n, src, path, &entities)

		case "import_from_statement":
			e.extractFromImport(n, src, path, &entities)

		case "call":
			e.extractCall(n, src, path, &refs)
		}
		return true
	})

	return entities, refs
}

func (e *pyExtractor) extractFunction(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	ent := NewEntity(EntityKindFunction, name, path, line(n), endLine(n))
	ent.Exported = isPyExported(name)
	ent.Doc = pyDocstring(n, src)
	ent.Function = &FunctionInfo{
		Params:     e.params(n.ChildByFieldName("parameters"), src),
		ReturnType: trimAnnotation(n.ChildByFieldName("return_type"), src),
		Async:      hasKeywordChild(n, "async"),
	}
	*entities = append(*entities, ent)
}

func (e *pyExtractor) extractClass(n *tree_sitter.Node, src []byte, path string, entities *[]Entity, refs *[]Reference) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	info := &ClassInfo{}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.NamedChildCount(); i++ {
			base := supers.NamedChild(i)
			if base == nil {
				continue
			}
			switch base.Kind() {
			case "identifier", "attribute":
				baseName := base.Utf8Text(src)
				if info.Extends == "" {
					info.Extends = baseName
				} else {
					// Multiple bases after the first are tracked as implements;
					// the reference kind is still EXTENDS.
					info.Implements = append(info.Implements, baseName)
				}
				*refs = append(*refs, Reference{
					Kind: RefKindExtends, FromName: name, FromFile: path,
					ToName: baseName, Line: line(n),
				})
			}
		}
	}

	ent := NewEntity(EntityKindClass, name, path, line(n), endLine(n))
	ent.Exported = isPyExported(name)
	ent.Doc = pyDocstring(n, src)
	ent.Class = info
	*entities = append(*entities, ent)
}

// extractVariable emits module-level assignments with identifier targets.
// Assignments inside functions or classes are scoped locals, not entities.
func (e *pyExtractor) extractVariable(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	stmt := n.Parent()
	if stmt == nil || stmt.Kind() != "expression_statement" {
		return
	}
	if mod := stmt.Parent(); mod == nil || mod.Kind() != "module" {
		return
	}
	left := n.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := left.Utf8Text(src)

	ent := NewEntity(EntityKindVariable, name, path, line(n), endLine(n))
	ent.Exported = isPyExported(name)
	ent.Variable = &VariableInfo{
		Mutable:    true,
		Annotation: trimAnnotation(n.ChildByFieldName("type"), src),
	}
	*entities = append(*entities, ent)
}

// extractImport handles "import a.b" and "import a.b as c".
func (e *pyExtractor) extractImport(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		var module, alias string
		switch c.Kind() {
		case "dotted_name":
			module = c.Utf8Text(src)
		case "aliased_import":
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				module = nameNode.Utf8Text(src)
			}
			if aliasNode := c.ChildByFieldName("alias"); aliasNode != nil {
				alias = aliasNode.Utf8Text(src)
			}
		default:
			continue
		}
		if module == "" {
			continue
		}

		local := alias
		if local == "" {
			// "import a.b" binds the top package name.
			local = strings.SplitN(module, ".", 2)[0]
		}
		ent := NewEntity(EntityKindImport, module, path, line(n), endLine(n))
		ent.Import = &ImportInfo{
			Source: module,
			Specifiers: []ImportSpecifier{
				{Kind: SpecifierNamespace, Name: local},
			},
		}
		*entities = append(*entities, ent)
	}
}

// extractFromImport handles "from m import a, b as c" including relative
// modules.
func (e *pyExtractor) extractFromImport(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := moduleNode.Utf8Text(src)
	if module == "" {
		return
	}

	info := &ImportInfo{Source: module}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Id() == moduleNode.Id() {
			continue
		}
		switch c.Kind() {
		case "dotted_name", "identifier":
			info.Specifiers = append(info.Specifiers, ImportSpecifier{
				Kind: SpecifierNamed, Name: c.Utf8Text(src),
			})
		case "aliased_import":
			spec := ImportSpecifier{Kind: SpecifierNamed}
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				spec.Name = nameNode.Utf8Text(src)
			}
			if aliasNode := c.ChildByFieldName("alias"); aliasNode != nil {
				spec.Alias = aliasNode.Utf8Text(src)
			}
			if spec.Name != "" {
				info.Specifiers = append(info.Specifiers, spec)
			}
		case "wildcard_import":
			info.Specifiers = append(info.Specifiers, ImportSpecifier{
				Kind: SpecifierNamespace, Name: "*",
			})
		}
	}

	ent := NewEntity(EntityKindImport, module, path, line(n), endLine(n))
	ent.Import = info
	*entities = append(*entities, ent)
}

func (e *pyExtractor) extractCall(n *tree_sitter.Node, src []byte, path string, refs *[]Reference) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = fn.Utf8Text(src)
	case "attribute":
		if obj := fn.ChildByFieldName("object"); obj != nil && obj.Kind() == "identifier" {
			callee = obj.Utf8Text(src)
		} else {
			return
		}
	default:
		return
	}
	if callee == "" {
		return
	}

	*refs = append(*refs, Reference{
		Kind:     RefKindCalls,
		FromName: pyEnclosingName(n, src),
		FromFile: path,
		ToName:   callee,
		Line:     line(n),
	})
}

func (e *pyExtractor) params(paramsNode *tree_sitter.Node, src []byte) []Param {
	if paramsNode == nil {
		return nil
	}
	var out []Param
	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		p := paramsNode.NamedChild(i)
		if p == nil {
			continue
		}
		var param Param
		switch p.Kind() {
		case "identifier":
			param.Name = p.Utf8Text(src)
		case "typed_parameter":
			if id := firstNamed(p); id != nil {
				param.Name = id.Utf8Text(src)
			}
			param.Type = trimAnnotation(p.ChildByFieldName("type"), src)
		case "default_parameter", "typed_default_parameter":
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				param.Name = nameNode.Utf8Text(src)
			}
			param.Type = trimAnnotation(p.ChildByFieldName("type"), src)
			if v := p.ChildByFieldName("value"); v != nil {
				param.Default = v.Utf8Text(src)
			}
			param.Optional = true
		case "list_splat_pattern", "dictionary_splat_pattern":
			param.Rest = true
			if id := firstNamed(p); id != nil {
				param.Name = id.Utf8Text(src)
			}
		default:
			continue
		}
		if param.Name == "" {
			continue
		}
		out = append(out, param)
	}
	return out
}

// pyDocstring returns a function or class docstring: the first statement of
// the body when it is a plain string expression.
func pyDocstring(n *tree_sitter.Node, src []byte) string {
	body := n.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	stmt := body.NamedChild(0)
	if stmt == nil || stmt.Kind() != "expression_statement" {
		return ""
	}
	expr := firstNamed(stmt)
	if expr == nil || expr.Kind() != "string" {
		return ""
	}
	return strings.Trim(expr.Utf8Text(src), "\"' \n\t")
}

func pyEnclosingName(n *tree_sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "function_definition" || p.Kind() == "class_definition" {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Utf8Text(src)
			}
		}
	}
	return ""
}

// isPyExported follows the underscore convention: a leading underscore marks
// a module-private name.
func isPyExported(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func trimAnnotation(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Utf8Text(src))
}
