package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rustSample = `use std::collections::HashMap;
use crate::token::Token as Tok;

pub const MAX_DEPTH: usize = 64;

/// A lexer over one source buffer.
pub struct Lexer {
    offset: usize,
}

pub trait Advance {
    fn advance(&mut self) -> Option<char>;
}

impl Advance for Lexer {
    fn advance(&mut self) -> Option<char> {
        None
    }
}

pub fn lex(input: &str) -> Vec<Tok> {
    tokenize(input)
}

fn tokenize(input: &str) -> Vec<Tok> {
    Vec::new()
}
`

func TestExtract_Rust(t *testing.T) {
	p := NewParser(DefaultRegistry())
	defer p.Close()

	tree, err := p.Parse([]byte(rustSample), "rust")
	require.NoError(t, err)
	require.False(t, tree.HasError)
	defer tree.Close()
	tree.Path = "src/lexer.rs"

	entities, refs := tree.Plugin.Extractor.ExtractAll(tree)

	t.Run("items", func(t *testing.T) {
		lexer := findEntity(entities, EntityKindClass, "Lexer")
		require.NotNil(t, lexer, "structs map to class entities")
		assert.True(t, lexer.Exported)
		assert.Contains(t, lexer.Doc, "lexer over one source buffer")

		trait := findEntity(entities, EntityKindInterface, "Advance")
		require.NotNil(t, trait, "traits map to interface entities")

		c := findEntity(entities, EntityKindVariable, "MAX_DEPTH")
		require.NotNil(t, c)
		assert.False(t, c.Variable.Mutable)
		assert.Equal(t, "const", c.Variable.DeclKeyword)

		lex := findEntity(entities, EntityKindFunction, "lex")
		require.NotNil(t, lex)
		assert.True(t, lex.Exported)

		tok := findEntity(entities, EntityKindFunction, "tokenize")
		require.NotNil(t, tok)
		assert.False(t, tok.Exported, "no visibility modifier means private")
	})

	t.Run("uses", func(t *testing.T) {
		std := findEntity(entities, EntityKindImport, "std::collections::HashMap")
		require.NotNil(t, std)
		require.Len(t, std.Import.Specifiers, 1)
		assert.Equal(t, "HashMap", std.Import.Specifiers[0].Name)

		aliased := findEntity(entities, EntityKindImport, "crate::token::Token")
		require.NotNil(t, aliased, "use-as records the unaliased path as source")
		require.Len(t, aliased.Import.Specifiers, 1)
		assert.Equal(t, "Token", aliased.Import.Specifiers[0].Name)
		assert.Equal(t, "Tok", aliased.Import.Specifiers[0].Alias)
	})

	t.Run("references", func(t *testing.T) {
		assert.Len(t, findRefs(refs, RefKindImplements, "Lexer", "Advance"), 1)
		assert.Len(t, findRefs(refs, RefKindCalls, "lex", "tokenize"), 1)
		assert.Len(t, findRefs(refs, RefKindCalls, "tokenize", "new"), 1,
			"scoped calls resolve to their trailing segment")
	})
}
