package graph

import (
	"path"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

// GoPlugin returns the plugin for Go sources.
func GoPlugin() *Plugin {
	decisions := map[string]bool{
		"if_statement":       true,
		"for_statement":      true,
		"expression_case":    true,
		"type_case":          true,
		"communication_case": true,
		"default_case":       true,
	}
	flowBreaks := map[string]bool{
		"break_statement":    true,
		"continue_statement": true,
		"goto_statement":     true,
	}
	for k := range decisions {
		flowBreaks[k] = true
	}
	return &Plugin{
		ID:         "go",
		Extensions: []string{".go"},
		Grammar:    tree_sitter.NewLanguage(tree_sitter_go.Language()),
		Extractor:  &goExtractor{},
		Dialect: Dialect{
			DecisionPoints: decisions,
			FlowBreaks:     flowBreaks,
			Nesting: map[string]bool{
				"if_statement":                true,
				"for_statement":               true,
				"expression_switch_statement": true,
				"type_switch_statement":       true,
				"select_statement":            true,
				"func_literal":                true,
			},
			FunctionNodes: map[string]bool{
				"function_declaration": true,
				"method_declaration":   true,
				"func_literal":         true,
			},
			BinaryExpression: "binary_expression",
			ShortCircuit:     map[string]bool{"&&": true, "||": true},
			Call:             "call_expression",
			Member:           "selector_expression",
			Assignment:       "assignment_statement",
			Declarator:       "short_var_declaration",
			String:           "interpreted_string_literal",
			Template:         "raw_string_literal",
			Concat:           "binary_expression",
			Interpolation:    "",
		},
	}
}

// goExtractor extracts entities and reference stubs from Go source files.
type goExtractor struct{}

func (e *goExtractor) ExtractAll(tree *SyntaxTree) ([]Entity, []Reference) {
	var entities []Entity
	var refs []Reference
	src := tree.Source
	filePath := tree.Path

	Walk(tree.Root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_declaration", "method_declaration":
			e.extractFunction(n, src, filePath, &entities)

		case "type_declaration":
			e.extractTypeDeclaration(n, src, filePath, &entities)

		case "const_declaration", "var_declaration":
			e.extractVariables(n, src, filePath, &entities)

		case "import_spec":
			e.extractImport(n, src, filePath, &entities)

		case "call_expression":
			e.extractCall(n, src, filePath, &refs)
		}
		return true
	})

	return entities, refs
}

func (e *goExtractor) extractFunction(n *tree_sitter.Node, src []byte, filePath string, entities *[]Entity) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	ent := NewEntity(EntityKindFunction, name, filePath, line(n), endLine(n))
	ent.Exported = isGoExported(name)
	ent.Doc = goLeadingDoc(n, src)
	ent.Function = &FunctionInfo{
		Params:     e.params(n.ChildByFieldName("parameters"), src),
		ReturnType: goResultText(n.ChildByFieldName("result"), src),
	}
	*entities = append(*entities, ent)
}

// extractTypeDeclaration walks the type_spec children of a type_declaration.
// Structs map to class entities, interfaces to interface entities, and other
// specs (aliases, defined types) to type entities.
func (e *goExtractor) extractTypeDeclaration(n *tree_sitter.Node, src []byte, filePath string, entities *[]Entity) {
	for i := uint(0); i < n.ChildCount(); i++ {
		spec := n.Child(i)
		if spec == nil || (spec.Kind() != "type_spec" && spec.Kind() != "type_alias") {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(src)

		kind := EntityKindType
		typeNode := spec.ChildByFieldName("type")
		if typeNode != nil {
			switch typeNode.Kind() {
			case "interface_type":
				kind = EntityKindInterface
			case "struct_type":
				kind = EntityKindClass
			}
		}

		ent := NewEntity(kind, name, filePath, line(spec), endLine(spec))
		ent.Exported = isGoExported(name)
		ent.Doc = goLeadingDoc(n, src)
		switch kind {
		case EntityKindInterface:
			ent.Interface = &InterfaceInfo{}
		case EntityKindClass:
			ent.Class = &ClassInfo{}
		default:
			ent.Type = &TypeInfo{Form: TypeFormAlias}
		}
		*entities = append(*entities, ent)
	}
}

func (e *goExtractor) extractVariables(n *tree_sitter.Node, src []byte, filePath string, entities *[]Entity) {
	// Top-level declarations only; function-local vars are scoped locals.
	if p := n.Parent(); p == nil || p.Kind() != "source_file" {
		return
	}
	isConst := n.Kind() == "const_declaration"
	keyword := "var"
	if isConst {
		keyword = "const"
	}

	Walk(n, func(spec *tree_sitter.Node) bool {
		if spec.Kind() != "const_spec" && spec.Kind() != "var_spec" {
			return true
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			return false
		}
		name := nameNode.Utf8Text(src)

		ent := NewEntity(EntityKindVariable, name, filePath, line(spec), endLine(spec))
		ent.Exported = isGoExported(name)
		ent.Variable = &VariableInfo{
			Mutable:     !isConst,
			DeclKeyword: keyword,
			Annotation:  trimAnnotation(spec.ChildByFieldName("type"), src),
		}
		*entities = append(*entities, ent)
		return false
	})
}

func (e *goExtractor) extractImport(n *tree_sitter.Node, src []byte, filePath string, entities *[]Entity) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	importPath := strings.Trim(pathNode.Utf8Text(src), "\"")
	if importPath == "" {
		return
	}

	// Local package name: explicit alias or the import path base.
	local := path.Base(importPath)
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		local = nameNode.Utf8Text(src)
	}

	ent := NewEntity(EntityKindImport, importPath, filePath, line(n), endLine(n))
	ent.Import = &ImportInfo{
		Source: importPath,
		Specifiers: []ImportSpecifier{
			{Kind: SpecifierNamespace, Name: local},
		},
	}
	*entities = append(*entities, ent)
}

func (e *goExtractor) extractCall(n *tree_sitter.Node, src []byte, filePath string, refs *[]Reference) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = fn.Utf8Text(src)
	case "selector_expression":
		if operand := fn.ChildByFieldName("operand"); operand != nil && operand.Kind() == "identifier" {
			callee = operand.Utf8Text(src)
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
		FromName: goEnclosingName(n, src),
		FromFile: filePath,
		ToName:   callee,
		Line:     line(n),
	})
}

func (e *goExtractor) params(paramsNode *tree_sitter.Node, src []byte) []Param {
	if paramsNode == nil {
		return nil
	}
	var out []Param
	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		p := paramsNode.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case "parameter_declaration":
			typeText := trimAnnotation(p.ChildByFieldName("type"), src)
			named := false
			for j := uint(0); j < p.ChildCount(); j++ {
				c := p.Child(j)
				if c != nil && c.Kind() == "identifier" {
					out = append(out, Param{Name: c.Utf8Text(src), Type: typeText})
					named = true
				}
			}
			if !named && typeText != "" {
				out = append(out, Param{Name: "_", Type: typeText})
			}
		case "variadic_parameter_declaration":
			param := Param{Rest: true, Type: trimAnnotation(p.ChildByFieldName("type"), src)}
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				param.Name = nameNode.Utf8Text(src)
			} else {
				param.Name = "_"
			}
			out = append(out, param)
		}
	}
	return out
}

// goLeadingDoc attaches an adjacent leading // comment block, Go's
// conventional doc form.
func goLeadingDoc(n *tree_sitter.Node, src []byte) string {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Kind() != "comment" {
		return ""
	}
	if int(prev.EndPosition().Row)+1 < int(n.StartPosition().Row) {
		return ""
	}
	return prev.Utf8Text(src)
}

func goResultText(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Utf8Text(src))
}

func goEnclosingName(n *tree_sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "function_declaration" || p.Kind() == "method_declaration" {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Utf8Text(src)
			}
		}
	}
	return ""
}

// isGoExported returns true if the first rune of name is an uppercase letter.
func isGoExported(name string) bool {
	return startsUpper(name)
}
