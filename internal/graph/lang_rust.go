package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// RustPlugin returns the plugin for Rust sources.
func RustPlugin() *Plugin {
	decisions := map[string]bool{
		"if_expression":    true,
		"else_clause":      true,
		"match_arm":        true,
		"while_expression": true,
		"loop_expression":  true,
		"for_expression":   true,
	}
	flowBreaks := map[string]bool{
		"break_expression":    true,
		"continue_expression": true,
	}
	for k := range decisions {
		flowBreaks[k] = true
	}
	return &Plugin{
		ID:         "rust",
		Extensions: []string{".rs"},
		Grammar:    tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		Extractor:  &rsExtractor{},
		Dialect: Dialect{
			DecisionPoints: decisions,
			FlowBreaks:     flowBreaks,
			Nesting: map[string]bool{
				"if_expression":      true,
				"match_expression":   true,
				"while_expression":   true,
				"loop_expression":    true,
				"for_expression":     true,
				"closure_expression": true,
			},
			FunctionNodes: map[string]bool{
				"function_item":      true,
				"closure_expression": true,
			},
			BinaryExpression: "binary_expression",
			ShortCircuit:     map[string]bool{"&&": true, "||": true},
			Call:             "call_expression",
			Member:           "field_expression",
			Assignment:       "assignment_expression",
			Declarator:       "let_declaration",
			String:           "string_literal",
			Template:         "",
			Concat:           "binary_expression",
			Interpolation:    "",
		},
	}
}

// rsExtractor extracts entities and reference stubs from Rust source files.
type rsExtractor struct{}

func (e *rsExtractor) ExtractAll(tree *SyntaxTree) ([]Entity, []Reference) {
	var entities []Entity
	var refs []Reference
	src := tree.Source
	path := tree.Path

	Walk(tree.Root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_item":
			e.extractNamed(n, src, path, EntityKindFunction, &entities)

		case "struct_item":
			e.extractNamed(n, src, path, EntityKindClass, &entities)

		case "enum_item":
			e.extractNamed(n, src, path, EntityKindType, &entities)

		case "trait_item":
			e.extractNamed(n, src, path, EntityKindInterface, &entities)

		case "type_item":
			e.extractNamed(n, src, path, EntityKindType, &entities)

		case "const_item", "static_item":
			e.extractConst(n, src, path, &entities)

		case "impl_item":
			e.extractImpl(n, src, path, &refs)

		case "use_declaration":
			e.extractUse(n, src, path, &entities)

		case "call_expression":
			e.extractCall(n, src, path, &refs)
		}
		return true
	})

	return entities, refs
}

func (e *rsExtractor) extractNamed(n *tree_sitter.Node, src []byte, path string, kind EntityKind, entities *[]Entity) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	ent := NewEntity(kind, name, path, line(n), endLine(n))
	ent.Exported = rsIsPublic(n, src)
	ent.Doc = rsLeadingDoc(n, src)
	switch kind {
	case EntityKindFunction:
		ent.Function = &FunctionInfo{
			Params:     e.params(n.ChildByFieldName("parameters"), src),
			ReturnType: trimAnnotation(n.ChildByFieldName("return_type"), src),
			Async:      hasKeywordChild(n, "async"),
		}
	case EntityKindClass:
		ent.Class = &ClassInfo{}
	case EntityKindInterface:
		ent.Interface = &InterfaceInfo{}
	case EntityKindType:
		form := TypeFormAlias
		if n.Kind() == "enum_item" {
			form = TypeFormEnum
		}
		ent.Type = &TypeInfo{Form: form}
	}
	*entities = append(*entities, ent)
}

func (e *rsExtractor) extractConst(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	ent := NewEntity(EntityKindVariable, name, path, line(n), endLine(n))
	ent.Exported = rsIsPublic(n, src)
	keyword := "const"
	mutable := false
	if n.Kind() == "static_item" {
		keyword = "static"
		mutable = hasKeywordChild(n, "mutable_specifier")
	}
	ent.Variable = &VariableInfo{
		Mutable:     mutable,
		DeclKeyword: keyword,
		Annotation:  trimAnnotation(n.ChildByFieldName("type"), src),
	}
	*entities = append(*entities, ent)
}

// extractImpl emits an IMPLEMENTS reference for "impl Trait for Type" blocks.
func (e *rsExtractor) extractImpl(n *tree_sitter.Node, src []byte, path string, refs *[]Reference) {
	traitNode := n.ChildByFieldName("trait")
	typeNode := n.ChildByFieldName("type")
	if traitNode == nil || typeNode == nil {
		return
	}
	*refs = append(*refs, Reference{
		Kind:     RefKindImplements,
		FromName: baseTypeName(typeNode.Utf8Text(src)),
		FromFile: path,
		ToName:   baseTypeName(traitNode.Utf8Text(src)),
		Line:     line(n),
	})
}

// extractUse records a use declaration as an import entity. The specifier is
// the trailing segment (or alias), which is the locally-visible name.
func (e *rsExtractor) extractUse(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	module := arg.Utf8Text(src)
	if module == "" {
		return
	}

	info := &ImportInfo{Source: module}
	if arg.Kind() == "use_as_clause" {
		if pathNode := arg.ChildByFieldName("path"); pathNode != nil {
			info.Source = pathNode.Utf8Text(src)
		}
		if alias := arg.ChildByFieldName("alias"); alias != nil {
			info.Specifiers = append(info.Specifiers, ImportSpecifier{
				Kind: SpecifierNamed, Name: lastPathSegment(info.Source), Alias: alias.Utf8Text(src),
			})
		}
	} else {
		info.Specifiers = append(info.Specifiers, ImportSpecifier{
			Kind: SpecifierNamed, Name: lastPathSegment(module),
		})
	}

	ent := NewEntity(EntityKindImport, info.Source, path, line(n), endLine(n))
	ent.Import = info
	*entities = append(*entities, ent)
}

func (e *rsExtractor) extractCall(n *tree_sitter.Node, src []byte, path string, refs *[]Reference) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = fn.Utf8Text(src)
	case "scoped_identifier":
		callee = lastPathSegment(fn.Utf8Text(src))
	case "field_expression":
		if v := fn.ChildByFieldName("value"); v != nil && v.Kind() == "identifier" {
			callee = v.Utf8Text(src)
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
		FromName: rsEnclosingName(n, src),
		FromFile: path,
		ToName:   callee,
		Line:     line(n),
	})
}

func (e *rsExtractor) params(paramsNode *tree_sitter.Node, src []byte) []Param {
	if paramsNode == nil {
		return nil
	}
	var out []Param
	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		p := paramsNode.NamedChild(i)
		if p == nil || p.Kind() != "parameter" {
			continue
		}
		var param Param
		if pattern := p.ChildByFieldName("pattern"); pattern != nil {
			param.Name = pattern.Utf8Text(src)
		}
		param.Type = trimAnnotation(p.ChildByFieldName("type"), src)
		if param.Name == "" {
			continue
		}
		out = append(out, param)
	}
	return out
}

// rsLeadingDoc attaches adjacent /// line_comment docs.
func rsLeadingDoc(n *tree_sitter.Node, src []byte) string {
	prev := n.PrevNamedSibling()
	if prev == nil || (prev.Kind() != "line_comment" && prev.Kind() != "block_comment") {
		return ""
	}
	if int(prev.EndPosition().Row)+1 < int(n.StartPosition().Row) {
		return ""
	}
	text := prev.Utf8Text(src)
	if !strings.HasPrefix(text, "///") && !strings.HasPrefix(text, "/**") {
		return ""
	}
	return text
}

func rsIsPublic(n *tree_sitter.Node, src []byte) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == "visibility_modifier" {
			return true
		}
	}
	return false
}

func rsEnclosingName(n *tree_sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "function_item" {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Utf8Text(src)
			}
		}
	}
	return ""
}

func lastPathSegment(s string) string {
	if idx := strings.LastIndex(s, "::"); idx >= 0 {
		return s[idx+2:]
	}
	return s
}
