package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spk121/sh23/pkg/token"
)

type aliasMap map[string]string

func (m aliasMap) Lookup(name string) (string, bool) {
	def, ok := m[name]
	return def, ok
}

func expandAliases(t *testing.T, text string, aliases aliasMap) []*token.Token {
	t.Helper()
	toks := tokenize(t, text)
	out, err := ExpandAliases(toks, aliases, 0)
	require.NoError(t, err)
	return out
}

func words(toks []*token.Token) []string {
	var out []string
	for _, t := range toks {
		if t.Type == token.EOF {
			continue
		}
		out = append(out, t.Text)
	}
	return out
}

func TestExpandAliases(t *testing.T) {
	aliases := aliasMap{"ll": "ls -l"}
	out := expandAliases(t, "ll /tmp", aliases)
	assert.Equal(t, []string{"ls", "-l", "/tmp"}, words(out))
}

func TestExpandAliases_OnlyCommandPosition(t *testing.T) {
	aliases := aliasMap{"ll": "ls -l"}
	out := expandAliases(t, "echo ll; ll", aliases)
	assert.Equal(t, []string{"echo", "ll", ";", "ls", "-l"}, words(out))
}

func TestExpandAliases_NotWhenQuoted(t *testing.T) {
	aliases := aliasMap{"ll": "ls -l"}
	out := expandAliases(t, `'ll' \ll`, aliases)
	assert.Equal(t, []string{"'ll'", `\ll`}, words(out))
}

func TestExpandAliases_EmptyStoreIsIdentity(t *testing.T) {
	toks := tokenize(t, "a && b | c")
	out, err := ExpandAliases(toks, aliasMap{}, 0)
	require.NoError(t, err)
	assert.Equal(t, toks, out)
}

func TestExpandAliases_Nested(t *testing.T) {
	aliases := aliasMap{"a": "b 1", "b": "c 2"}
	out := expandAliases(t, "a x", aliases)
	assert.Equal(t, []string{"c", "2", "1", "x"}, words(out))
}

func TestExpandAliases_RecursionStops(t *testing.T) {
	// A self-referential alias expands once; the inner occurrence is left
	// alone.
	aliases := aliasMap{"ls": "ls -F"}
	out := expandAliases(t, "ls", aliases)
	assert.Equal(t, []string{"ls", "-F"}, words(out))

	// Mutual recursion likewise terminates.
	aliases = aliasMap{"a": "b", "b": "a"}
	out = expandAliases(t, "a", aliases)
	assert.Equal(t, []string{"a"}, words(out))
}

func TestExpandAliases_TrailingBlankChains(t *testing.T) {
	aliases := aliasMap{"sudo": "sudo ", "ll": "ls -l"}
	out := expandAliases(t, "sudo ll", aliases)
	assert.Equal(t, []string{"sudo", "ls", "-l"}, words(out))

	// Without the trailing blank the next word is not expanded.
	aliases = aliasMap{"sudo": "sudo", "ll": "ls -l"}
	out = expandAliases(t, "sudo ll", aliases)
	assert.Equal(t, []string{"sudo", "ll"}, words(out))
}

func TestExpandAliases_AfterSeparators(t *testing.T) {
	aliases := aliasMap{"ll": "ls -l"}
	out := expandAliases(t, "x && ll", aliases)
	assert.Equal(t, []string{"x", "&&", "ls", "-l"}, words(out))

	out = expandAliases(t, "if ll", aliases)
	assert.Equal(t, []string{"if", "ls", "-l"}, words(out))
}

func TestExpandAliases_DepthLimit(t *testing.T) {
	// A chain of distinct aliases longer than the cap errors out instead of
	// splicing arbitrarily deep.
	aliases := aliasMap{"a": "b", "b": "c", "c": "d", "d": "e", "e": "f"}
	toks := tokenize(t, "a")
	_, err := ExpandAliases(toks, aliases, 4)
	require.Error(t, err)

	out, err := ExpandAliases(toks, aliases, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, words(out))
}
