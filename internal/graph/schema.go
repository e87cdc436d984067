package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// --- Enums ---

// EntityKind classifies entities in the code graph.
type EntityKind string

const (
	EntityKindFile      EntityKind = "file"
	EntityKindFunction  EntityKind = "function"
	EntityKindClass     EntityKind = "class"
	EntityKindInterface EntityKind = "interface"
	EntityKindVariable  EntityKind = "variable"
	EntityKindType      EntityKind = "type"
	EntityKindComponent EntityKind = "component"
	EntityKindImport    EntityKind = "import"
)

// ReferenceKind classifies relationships between entities.
type ReferenceKind string

const (
	RefKindCalls      ReferenceKind = "CALLS"
	RefKindExtends    ReferenceKind = "EXTENDS"
	RefKindImplements ReferenceKind = "IMPLEMENTS"
	RefKindRenders    ReferenceKind = "RENDERS"
)

// --- Models ---

// Entity is a typed, located record describing one declared code construct.
// At most one of the kind-specific payloads is set.
type Entity struct {
	ID        string     `json:"id"`
	Kind      EntityKind `json:"kind"`
	Name      string     `json:"name"`
	FilePath  string     `json:"filePath"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
	Exported  bool       `json:"exported,omitempty"`
	Doc       string     `json:"doc,omitempty"`

	Function  *FunctionInfo  `json:"function,omitempty"`
	Class     *ClassInfo     `json:"class,omitempty"`
	Interface *InterfaceInfo `json:"interface,omitempty"`
	Variable  *VariableInfo  `json:"variable,omitempty"`
	Type      *TypeInfo      `json:"type,omitempty"`
	Component *ComponentInfo `json:"component,omitempty"`
	Import    *ImportInfo    `json:"import,omitempty"`
}

// Param describes a single function parameter.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Default  string `json:"default,omitempty"`
	Rest     bool   `json:"rest,omitempty"`
}

// FunctionInfo holds function-specific fields.
type FunctionInfo struct {
	Params     []Param `json:"params,omitempty"`
	ReturnType string  `json:"returnType,omitempty"`
	Async      bool    `json:"async,omitempty"`
	Generator  bool    `json:"generator,omitempty"`
	Arrow      bool    `json:"arrow,omitempty"`
}

// ClassInfo holds class-specific fields.
type ClassInfo struct {
	Extends    string   `json:"extends,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Abstract   bool     `json:"abstract,omitempty"`
}

// InterfaceInfo holds interface-specific fields.
type InterfaceInfo struct {
	Extends []string `json:"extends,omitempty"`
}

// VariableInfo holds variable-specific fields. Mutable is false for const-like
// declarations; DeclKeyword preserves the source keyword for display.
type VariableInfo struct {
	Mutable     bool   `json:"mutable"`
	DeclKeyword string `json:"declKeyword,omitempty"`
	Annotation  string `json:"annotation,omitempty"`
}

// TypeForm distinguishes type aliases from enums.
type TypeForm string

const (
	TypeFormAlias TypeForm = "alias"
	TypeFormEnum  TypeForm = "enum"
)

// TypeInfo holds type-declaration fields.
type TypeInfo struct {
	Form TypeForm `json:"form"`
}

// ComponentInfo holds UI-component fields.
type ComponentInfo struct {
	Props        []string `json:"props,omitempty"`
	PropTypeName string   `json:"propTypeName,omitempty"`
}

// SpecifierKind classifies import specifiers.
type SpecifierKind string

const (
	SpecifierDefault   SpecifierKind = "default"
	SpecifierNamespace SpecifierKind = "namespace"
	SpecifierNamed     SpecifierKind = "named"
)

// ImportSpecifier is one binding introduced by an import.
type ImportSpecifier struct {
	Kind  SpecifierKind `json:"kind"`
	Name  string        `json:"name"`
	Alias string        `json:"alias,omitempty"`
}

// ImportInfo holds import-specific fields. ResolvedPath is filled by the
// resolver when the source module maps to a file in the scanned tree.
type ImportInfo struct {
	Source       string            `json:"source"`
	Specifiers   []ImportSpecifier `json:"specifiers,omitempty"`
	ResolvedPath string            `json:"resolvedPath,omitempty"`
}

// Reference is a directed relationship between two entities. ToFile is empty
// until resolution, and stays empty for external or unresolved targets, which
// are legitimate terminal states rather than errors.
type Reference struct {
	Kind     ReferenceKind `json:"kind"`
	FromName string        `json:"fromName"`
	FromFile string        `json:"fromFile"`
	ToName   string        `json:"toName"`
	ToFile   string        `json:"toFile,omitempty"`
	Line     int           `json:"line"`
}

// EntityID computes the stable id for an entity declared at startLine. The id
// depends only on the declaration site, so re-extracting a file after an edit
// elsewhere in it yields the same id (idempotent upsert downstream).
func EntityID(filePath string, kind EntityKind, name string, startLine int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", filePath, kind, name, startLine)))
	return hex.EncodeToString(sum[:8])
}

// NewEntity builds an entity with its id precomputed.
func NewEntity(kind EntityKind, name, filePath string, startLine, endLine int) Entity {
	return Entity{
		ID:        EntityID(filePath, kind, name, startLine),
		Kind:      kind,
		Name:      name,
		FilePath:  filePath,
		StartLine: startLine,
		EndLine:   endLine,
	}
}
