package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// TypeScriptPlugin returns the plugin for plain TypeScript sources.
func TypeScriptPlugin() *Plugin {
	return &Plugin{
		ID:         "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		Grammar:    tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		Extractor:  &tsExtractor{langID: "typescript"},
		Dialect:    ecmaDialect(),
	}
}

// TSXPlugin returns the plugin for TSX sources. The grammar differs from
// plain TypeScript, so JSX-based component extraction only works here and in
// JavaScript.
func TSXPlugin() *Plugin {
	return &Plugin{
		ID:         "tsx",
		Extensions: []string{".tsx"},
		Grammar:    tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		Extractor:  &tsExtractor{langID: "tsx"},
		Dialect:    ecmaDialect(),
	}
}

// ecmaDialect is the shared node-type vocabulary for TypeScript, TSX and
// JavaScript grammars.
func ecmaDialect() Dialect {
	decisions := map[string]bool{
		"if_statement":       true,
		"else_clause":        true,
		"for_statement":      true,
		"for_in_statement":   true,
		"while_statement":    true,
		"do_statement":       true,
		"switch_case":        true,
		"catch_clause":       true,
		"ternary_expression": true,
	}
	flowBreaks := map[string]bool{
		"break_statement":    true,
		"continue_statement": true,
	}
	for k := range decisions {
		flowBreaks[k] = true
	}
	return Dialect{
		DecisionPoints: decisions,
		FlowBreaks:     flowBreaks,
		Nesting: map[string]bool{
			"if_statement":         true,
			"for_statement":        true,
			"for_in_statement":     true,
			"while_statement":      true,
			"do_statement":         true,
			"switch_statement":     true,
			"try_statement":        true,
			"catch_clause":         true,
			"arrow_function":       true,
			"function_expression":  true,
			"function_declaration": true,
		},
		FunctionNodes: map[string]bool{
			"function_declaration":           true,
			"generator_function_declaration": true,
			"function_expression":            true,
			"arrow_function":                 true,
			"method_definition":              true,
		},
		BinaryExpression: "binary_expression",
		ShortCircuit:     map[string]bool{"&&": true, "||": true, "??": true},
		Call:             "call_expression",
		Member:           "member_expression",
		Assignment:       "assignment_expression",
		Declarator:       "variable_declarator",
		String:           "string",
		Template:         "template_string",
		Concat:           "binary_expression",
		Interpolation:    "template_substitution",
	}
}

// tsExtractor extracts entities and reference stubs from TypeScript, TSX and
// JavaScript trees. The three grammars share node vocabulary; kinds absent
// from a grammar simply never match.
type tsExtractor struct {
	langID string
}

func (e *tsExtractor) ExtractAll(tree *SyntaxTree) ([]Entity, []Reference) {
	var entities []Entity
	var refs []Reference
	src := tree.Source
	path := tree.Path

	Walk(tree.Root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_declaration", "generator_function_declaration":
			e.extractFunctionDecl(n, src, path, &entities, &refs)

		case "arrow_function", "function_expression", "function":
			e.extractBoundFunction(n, src, path, &entities, &refs)

		case "method_definition":
			e.extractMethod(n, src, path, &entities)

		case "class_declaration", "abstract_class_declaration":
			e.extractClass(n, src, path, &entities, &refs)

		case "interface_declaration":
			e.extractInterface(n, src, path, &entities, &refs)

		case "type_alias_declaration":
			e.extractTypeDecl(n, src, path, TypeFormAlias, &entities)

		case "enum_declaration":
			e.extractTypeDecl(n, src, path, TypeFormEnum, &entities)

		case "lexical_declaration", "variable_declaration":
			e.extractVariables(n, src, path, &entities)

		case "import_statement":
			e.extractImport(n, src, path, &entities)

		case "call_expression", "new_expression":
			e.extractCall(n, src, path, &refs)

		case "jsx_element", "jsx_self_closing_element":
			e.extractRender(n, src, path, &refs)
		}
		return true
	})

	return entities, refs
}

// --- functions ---

func (e *tsExtractor) extractFunctionDecl(n *tree_sitter.Node, src []byte, path string, entities *[]Entity, refs *[]Reference) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	ent := NewEntity(EntityKindFunction, name, path, line(n), endLine(n))
	ent.Exported = isEcmaExported(n)
	ent.Doc = leadingDoc(n, src)
	ent.Function = &FunctionInfo{
		Params:     e.params(n.ChildByFieldName("parameters"), src),
		ReturnType: annotationText(n.ChildByFieldName("return_type"), src),
		Async:      hasKeywordChild(n, "async"),
		Generator:  n.Kind() == "generator_function_declaration",
	}
	*entities = append(*entities, ent)

	e.maybeComponent(n, n.ChildByFieldName("body"), name, ent.Exported, src, path, ent.Function, entities)
}

// extractBoundFunction handles anonymous function-like nodes whose name comes
// from the enclosing binding. Unbound function values have no resolvable name
// and are skipped.
func (e *tsExtractor) extractBoundFunction(n *tree_sitter.Node, src []byte, path string, entities *[]Entity, refs *[]Reference) {
	binding := n.Parent()
	if binding == nil || binding.Kind() != "variable_declarator" {
		return
	}
	nameNode := binding.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return
	}
	name := nameNode.Utf8Text(src)

	decl := binding.Parent() // lexical_declaration / variable_declaration
	ent := NewEntity(EntityKindFunction, name, path, line(binding), endLine(binding))
	if decl != nil {
		ent.Exported = isEcmaExported(decl)
		ent.Doc = leadingDoc(decl, src)
	}

	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil {
		paramsNode = n.ChildByFieldName("parameter") // single-arg arrow shorthand
	}
	ent.Function = &FunctionInfo{
		Params:     e.params(paramsNode, src),
		ReturnType: annotationText(n.ChildByFieldName("return_type"), src),
		Async:      hasKeywordChild(n, "async"),
		Arrow:      n.Kind() == "arrow_function",
	}
	*entities = append(*entities, ent)

	e.maybeComponent(n, n.ChildByFieldName("body"), name, ent.Exported, src, path, ent.Function, entities)
}

func (e *tsExtractor) extractMethod(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	ent := NewEntity(EntityKindFunction, name, path, line(n), endLine(n))
	ent.Doc = leadingDoc(n, src)
	ent.Function = &FunctionInfo{
		Params:     e.params(n.ChildByFieldName("parameters"), src),
		ReturnType: annotationText(n.ChildByFieldName("return_type"), src),
		Async:      hasKeywordChild(n, "async"),
		Generator:  hasKeywordChild(n, "*"),
	}
	*entities = append(*entities, ent)
}

// maybeComponent emits an additional Component entity when the function name
// starts upper-case and its body contains JSX markup. The Function entity for
// the same node is kept; the kinds are not mutually exclusive.
func (e *tsExtractor) maybeComponent(fn *tree_sitter.Node, body *tree_sitter.Node, name string, exported bool, src []byte, path string, info *FunctionInfo, entities *[]Entity) {
	if body == nil || !startsUpper(name) {
		return
	}
	if !containsJSX(body) {
		return
	}

	ent := NewEntity(EntityKindComponent, name, path, line(fn), endLine(fn))
	ent.Exported = exported
	comp := &ComponentInfo{}
	if len(info.Params) > 0 {
		comp.PropTypeName = info.Params[0].Type
	}
	comp.Props = objectPatternProps(fn, src)
	ent.Component = comp
	*entities = append(*entities, ent)
}

// containsJSX reports whether any node under root is JSX markup.
func containsJSX(root *tree_sitter.Node) bool {
	found := false
	Walk(root, func(n *tree_sitter.Node) bool {
		if found {
			return false
		}
		switch n.Kind() {
		case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
			found = true
			return false
		}
		return true
	})
	return found
}

// objectPatternProps collects destructured prop names from a function's first
// parameter when it is an object pattern.
func objectPatternProps(fn *tree_sitter.Node, src []byte) []string {
	paramsNode := fn.ChildByFieldName("parameters")
	if paramsNode == nil || paramsNode.NamedChildCount() == 0 {
		return nil
	}
	first := paramsNode.NamedChild(0)
	if first == nil {
		return nil
	}
	pattern := first
	if p := first.ChildByFieldName("pattern"); p != nil {
		pattern = p
	}
	if pattern.Kind() != "object_pattern" {
		return nil
	}

	var props []string
	for i := uint(0); i < pattern.NamedChildCount(); i++ {
		c := pattern.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
			props = append(props, c.Utf8Text(src))
		case "pair_pattern":
			if key := c.ChildByFieldName("key"); key != nil {
				props = append(props, key.Utf8Text(src))
			}
		}
	}
	return props
}

// --- classes, interfaces, types ---

func (e *tsExtractor) extractClass(n *tree_sitter.Node, src []byte, path string, entities *[]Entity, refs *[]Reference) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	info := &ClassInfo{Abstract: n.Kind() == "abstract_class_declaration"}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.Kind() != "class_heritage" {
			continue
		}
		for j := uint(0); j < c.ChildCount(); j++ {
			clause := c.Child(j)
			if clause == nil {
				continue
			}
			switch clause.Kind() {
			case "extends_clause":
				if t := firstNamed(clause); t != nil {
					info.Extends = baseTypeName(t.Utf8Text(src))
				}
			case "implements_clause":
				for k := uint(0); k < clause.NamedChildCount(); k++ {
					t := clause.NamedChild(k)
					if t != nil {
						info.Implements = append(info.Implements, baseTypeName(t.Utf8Text(src)))
					}
				}
			}
		}
	}

	ent := NewEntity(EntityKindClass, name, path, line(n), endLine(n))
	ent.Exported = isEcmaExported(n)
	ent.Doc = leadingDoc(n, src)
	ent.Class = info
	*entities = append(*entities, ent)

	if info.Extends != "" {
		*refs = append(*refs, Reference{
			Kind: RefKindExtends, FromName: name, FromFile: path,
			ToName: info.Extends, Line: line(n),
		})
	}
	for _, impl := range info.Implements {
		*refs = append(*refs, Reference{
			Kind: RefKindImplements, FromName: name, FromFile: path,
			ToName: impl, Line: line(n),
		})
	}
}

func (e *tsExtractor) extractInterface(n *tree_sitter.Node, src []byte, path string, entities *[]Entity, refs *[]Reference) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	info := &InterfaceInfo{}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.Kind() == "extends_type_clause" || c.Kind() == "extends_clause" {
			for j := uint(0); j < c.NamedChildCount(); j++ {
				t := c.NamedChild(j)
				if t != nil {
					info.Extends = append(info.Extends, baseTypeName(t.Utf8Text(src)))
				}
			}
		}
	}

	ent := NewEntity(EntityKindInterface, name, path, line(n), endLine(n))
	ent.Exported = isEcmaExported(n)
	ent.Doc = leadingDoc(n, src)
	ent.Interface = info
	*entities = append(*entities, ent)

	for _, base := range info.Extends {
		*refs = append(*refs, Reference{
			Kind: RefKindExtends, FromName: name, FromFile: path,
			ToName: base, Line: line(n),
		})
	}
}

func (e *tsExtractor) extractTypeDecl(n *tree_sitter.Node, src []byte, path string, form TypeForm, entities *[]Entity) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	ent := NewEntity(EntityKindType, nameNode.Utf8Text(src), path, line(n), endLine(n))
	ent.Exported = isEcmaExported(n)
	ent.Doc = leadingDoc(n, src)
	ent.Type = &TypeInfo{Form: form}
	*entities = append(*entities, ent)
}

// --- variables ---

func (e *tsExtractor) extractVariables(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	keyword := declKeyword(n, src)
	exported := isEcmaExported(n)

	for i := uint(0); i < n.NamedChildCount(); i++ {
		d := n.NamedChild(i)
		if d == nil || d.Kind() != "variable_declarator" {
			continue
		}
		nameNode := d.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() != "identifier" {
			continue
		}
		// Function values become Function entities instead.
		if v := d.ChildByFieldName("value"); v != nil {
			switch v.Kind() {
			case "arrow_function", "function_expression", "function":
				continue
			}
		}

		ent := NewEntity(EntityKindVariable, nameNode.Utf8Text(src), path, line(d), endLine(d))
		ent.Exported = exported
		ent.Variable = &VariableInfo{
			Mutable:     keyword != "const",
			DeclKeyword: keyword,
			Annotation:  annotationText(d.ChildByFieldName("type"), src),
		}
		*entities = append(*entities, ent)
	}
}

func declKeyword(n *tree_sitter.Node, src []byte) string {
	if n.Kind() == "variable_declaration" {
		return "var"
	}
	if c := n.Child(0); c != nil {
		return c.Utf8Text(src) // "const" or "let"
	}
	return ""
}

// --- imports ---

func (e *tsExtractor) extractImport(n *tree_sitter.Node, src []byte, path string, entities *[]Entity) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	module := strings.Trim(sourceNode.Utf8Text(src), "\"'`")
	if module == "" {
		return
	}

	info := &ImportInfo{Source: module}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < c.NamedChildCount(); j++ {
			spec := c.NamedChild(j)
			if spec == nil {
				continue
			}
			switch spec.Kind() {
			case "identifier":
				info.Specifiers = append(info.Specifiers, ImportSpecifier{
					Kind: SpecifierDefault, Name: spec.Utf8Text(src),
				})
			case "namespace_import":
				if id := firstOfKind(spec, "identifier"); id != nil {
					info.Specifiers = append(info.Specifiers, ImportSpecifier{
						Kind: SpecifierNamespace, Name: id.Utf8Text(src),
					})
				}
			case "named_imports":
				for k := uint(0); k < spec.NamedChildCount(); k++ {
					is := spec.NamedChild(k)
					if is == nil || is.Kind() != "import_specifier" {
						continue
					}
					s := ImportSpecifier{Kind: SpecifierNamed}
					if nameNode := is.ChildByFieldName("name"); nameNode != nil {
						s.Name = nameNode.Utf8Text(src)
					}
					if alias := is.ChildByFieldName("alias"); alias != nil {
						s.Alias = alias.Utf8Text(src)
					}
					if s.Name != "" {
						info.Specifiers = append(info.Specifiers, s)
					}
				}
			}
		}
	}

	ent := NewEntity(EntityKindImport, module, path, line(n), endLine(n))
	ent.Import = info
	*entities = append(*entities, ent)
}

// --- references ---

func (e *tsExtractor) extractCall(n *tree_sitter.Node, src []byte, path string, refs *[]Reference) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		fn = n.ChildByFieldName("constructor")
	}
	if fn == nil {
		return
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = fn.Utf8Text(src)
	case "member_expression":
		// For member calls the head object is what resolves through imports.
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
		FromName: enclosingFunctionName(n, src),
		FromFile: path,
		ToName:   callee,
		Line:     line(n),
	})
}

func (e *tsExtractor) extractRender(n *tree_sitter.Node, src []byte, path string, refs *[]Reference) {
	var nameNode *tree_sitter.Node
	if n.Kind() == "jsx_self_closing_element" {
		nameNode = n.ChildByFieldName("name")
	} else if open := firstOfKind(n, "jsx_opening_element"); open != nil {
		nameNode = open.ChildByFieldName("name")
	}
	if nameNode == nil {
		return
	}
	tag := nameNode.Utf8Text(src)
	// Lower-case tags are intrinsic host elements, not components.
	if !startsUpper(tag) {
		return
	}

	from := enclosingFunctionName(n, src)
	if from == "" {
		return
	}
	*refs = append(*refs, Reference{
		Kind: RefKindRenders, FromName: from, FromFile: path,
		ToName: tag, Line: line(n),
	})
}

// --- shared helpers (ECMA grammars) ---

func (e *tsExtractor) params(paramsNode *tree_sitter.Node, src []byte) []Param {
	if paramsNode == nil {
		return nil
	}
	// Single-identifier arrow shorthand: x => x * 2
	if paramsNode.Kind() == "identifier" {
		return []Param{{Name: paramsNode.Utf8Text(src)}}
	}

	var out []Param
	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		p := paramsNode.NamedChild(i)
		if p == nil {
			continue
		}
		var param Param
		switch p.Kind() {
		case "required_parameter", "optional_parameter":
			param.Optional = p.Kind() == "optional_parameter"
			pattern := p.ChildByFieldName("pattern")
			if pattern == nil {
				continue
			}
			if pattern.Kind() == "rest_pattern" {
				param.Rest = true
				if id := firstNamed(pattern); id != nil {
					param.Name = id.Utf8Text(src)
				}
			} else {
				param.Name = pattern.Utf8Text(src)
			}
			param.Type = annotationText(p.ChildByFieldName("type"), src)
			if v := p.ChildByFieldName("value"); v != nil {
				param.Default = v.Utf8Text(src)
			}
		case "identifier":
			param.Name = p.Utf8Text(src)
		case "assignment_pattern":
			if left := p.ChildByFieldName("left"); left != nil {
				param.Name = left.Utf8Text(src)
			}
			if right := p.ChildByFieldName("right"); right != nil {
				param.Default = right.Utf8Text(src)
			}
		case "rest_pattern":
			param.Rest = true
			if id := firstNamed(p); id != nil {
				param.Name = id.Utf8Text(src)
			}
		case "object_pattern", "array_pattern":
			param.Name = p.Utf8Text(src)
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

// isEcmaExported checks whether a declaration is wrapped in an export
// statement.
func isEcmaExported(n *tree_sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Kind() == "export_statement"
}

// leadingDoc returns the text of a doc comment immediately preceding the
// declaration. Only comments using the /** marker attach; an unrelated
// preceding comment does not.
func leadingDoc(n *tree_sitter.Node, src []byte) string {
	anchor := n
	if p := n.Parent(); p != nil && p.Kind() == "export_statement" {
		anchor = p
	}
	prev := anchor.PrevNamedSibling()
	if prev == nil || prev.Kind() != "comment" {
		return ""
	}
	// Adjacency: the comment must end on the line directly above.
	if int(prev.EndPosition().Row)+1 < int(anchor.StartPosition().Row) {
		return ""
	}
	text := prev.Utf8Text(src)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	return text
}

// enclosingFunctionName walks the parent chain to the nearest function-like
// node and resolves its name, using the enclosing binding for anonymous
// function values. Returns "" at module scope.
func enclosingFunctionName(n *tree_sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "function_declaration", "generator_function_declaration", "method_definition":
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Utf8Text(src)
			}
		case "arrow_function", "function_expression", "function":
			if binding := p.Parent(); binding != nil && binding.Kind() == "variable_declarator" {
				if nameNode := binding.ChildByFieldName("name"); nameNode != nil {
					return nameNode.Utf8Text(src)
				}
			}
		}
	}
	return ""
}

func hasKeywordChild(n *tree_sitter.Node, keyword string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == keyword {
			return true
		}
	}
	return false
}

// annotationText renders a type annotation without its leading colon.
func annotationText(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n.Utf8Text(src)), ":"))
}

// baseTypeName strips generic arguments from a heritage type expression.
func baseTypeName(s string) string {
	if idx := strings.IndexByte(s, '<'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func firstNamed(n *tree_sitter.Node) *tree_sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func firstOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func startsUpper(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func line(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func endLine(n *tree_sitter.Node) int {
	return int(n.EndPosition().Row) + 1
}
