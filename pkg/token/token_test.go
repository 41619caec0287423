package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecompute(t *testing.T) {
	tests := []struct {
		name                 string
		parts                []Part
		expansion, split, glob bool
	}{
		{"plain literal", []Part{Literal{Text: "abc"}}, false, false, false},
		{"glob literal", []Part{Literal{Text: "*.go"}}, false, false, true},
		{"quoted glob", []Part{Literal{Text: "*.go", SingleQuoted: true}}, false, false, false},
		{"parameter", []Part{Parameter{Spec: "x"}}, true, true, false},
		{"quoted parameter", []Part{Parameter{Spec: "x", DoubleQuoted: true}}, true, false, false},
		{"command subst", []Part{CmdSubst{Body: "ls"}}, true, true, false},
		{"quoted command subst", []Part{CmdSubst{Body: "ls", DoubleQuoted: true}}, true, false, false},
		{"arith", []Part{Arith{Expr: "1+1"}}, true, true, false},
		{"tilde", []Part{Tilde{}}, true, false, false},
		{"mixed", []Part{Literal{Text: "a"}, Parameter{Spec: "x", DoubleQuoted: true}, Literal{Text: "["}}, true, false, true},
	}
	for _, test := range tests {
		tok := &Token{Type: Word, Parts: test.parts}
		tok.Recompute()
		assert.Equal(t, test.expansion, tok.NeedsExpansion, "%v: NeedsExpansion", test.name)
		assert.Equal(t, test.split, tok.NeedsFieldSplit, "%v: NeedsFieldSplit", test.name)
		assert.Equal(t, test.glob, tok.NeedsGlob, "%v: NeedsGlob", test.name)
	}
}

func TestClone(t *testing.T) {
	orig := &Token{
		Type:    Word,
		Text:    `a$x`,
		Parts:   []Part{Literal{Text: "a"}, Parameter{Spec: "x"}},
		Heredoc: &Heredoc{Delim: "EOF", Body: "hi\n"},
	}
	orig.Recompute()

	c := orig.Clone()
	assert.Equal(t, orig, c)

	// Mutating the clone leaves the original alone.
	c.Parts[0] = Literal{Text: "b"}
	c.Heredoc.Body = "bye\n"
	assert.Equal(t, Literal{Text: "a"}, orig.Parts[0])
	assert.Equal(t, "hi\n", orig.Heredoc.Body)

	var nilTok *Token
	assert.Nil(t, nilTok.Clone())
}

func TestSingleLiteral(t *testing.T) {
	tok := &Token{Type: Word, Parts: []Part{Literal{Text: "if"}}}
	name, ok := tok.SingleLiteral()
	assert.True(t, ok)
	assert.Equal(t, "if", name)

	quoted := &Token{Type: Word, Parts: []Part{Literal{Text: "if", SingleQuoted: true}}}
	_, ok = quoted.SingleLiteral()
	assert.False(t, ok)

	two := &Token{Type: Word, Parts: []Part{Literal{Text: "i"}, Literal{Text: "f"}}}
	_, ok = two.SingleLiteral()
	assert.False(t, ok)
}

func TestKeyword(t *testing.T) {
	for s, want := range map[string]Type{
		"if": If, "fi": Fi, "do": Do, "done": Done, "{": Lbrace, "}": Rbrace, "!": Bang,
	} {
		got, ok := Keyword(s)
		assert.True(t, ok, s)
		assert.Equal(t, want, got, s)
	}
	_, ok := Keyword("echo")
	assert.False(t, ok)
}
