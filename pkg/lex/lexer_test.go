package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spk121/sh23/pkg/token"
)

func tokenize(t *testing.T, text string) []*token.Token {
	t.Helper()
	toks, err := Tokenize(text)
	require.NoError(t, err, "Tokenize(%q)", text)
	return toks
}

func types(toks []*token.Token) []token.Type {
	var out []token.Type
	for _, tok := range toks {
		out = append(out, tok.Type)
	}
	return out
}

func TestTokenize_Words(t *testing.T) {
	toks := tokenize(t, "echo hello world")
	assert.Equal(t, []token.Type{token.Word, token.Word, token.Word, token.EOF}, types(toks))
	assert.Equal(t, "echo", toks[0].Text)
	assert.Equal(t, "world", toks[2].Text)
}

func TestTokenize_Operators(t *testing.T) {
	toks := tokenize(t, "a&&b||c;d&e|f")
	assert.Equal(t, []token.Type{
		token.Word, token.AndIf, token.Word, token.OrIf, token.Word,
		token.Semi, token.Word, token.Amp, token.Word, token.Pipe, token.Word,
		token.EOF,
	}, types(toks))

	toks = tokenize(t, "x>>f 2>g <h <>i >|j")
	assert.Equal(t, []token.Type{
		token.Word, token.DGreat, token.Word,
		token.IoNumber, token.Great, token.Word,
		token.Less, token.Word,
		token.LessGreat, token.Word,
		token.Clobber, token.Word,
		token.EOF,
	}, types(toks))
}

func TestTokenize_IoNumberNeedsOperator(t *testing.T) {
	// A number is only an io number directly before < or >.
	toks := tokenize(t, "echo 2 >f")
	assert.Equal(t, []token.Type{token.Word, token.Word, token.Great, token.Word, token.EOF}, types(toks))
}

func TestTokenize_IoLocation(t *testing.T) {
	toks := tokenize(t, "{fd}>out")
	require.Equal(t, []token.Type{token.IoLocation, token.Great, token.Word, token.EOF}, types(toks))
	assert.Equal(t, "fd", toks[0].IoLoc)

	// Without a redirection operator, {fd} is an ordinary word.
	toks = tokenize(t, "{fd} out")
	assert.Equal(t, []token.Type{token.Word, token.Word, token.EOF}, types(toks))
}

func TestTokenize_AssignmentWord(t *testing.T) {
	toks := tokenize(t, "a=1 PATH=~/bin:~joe/x 3=x =x")
	assert.Equal(t, []token.Type{
		token.AssignmentWord, token.AssignmentWord, token.Word, token.Word, token.EOF,
	}, types(toks))
	assert.Equal(t, []token.Part{
		token.Literal{Text: "PATH="},
		token.Tilde{},
		token.Literal{Text: "/bin:"},
		token.Tilde{Prefix: "joe"},
		token.Literal{Text: "/x"},
	}, toks[1].Parts)
}

func TestTokenize_AssignmentWordTildeAfterQuotedText(t *testing.T) {
	// A ~ at the start of a later literal part follows quoted text, not an
	// unquoted = or :, so it stays literal.
	toks := tokenize(t, `x=a"b"~c`)
	assert.Equal(t, []token.Part{
		token.Literal{Text: "x=a"},
		token.Literal{Text: "b", DoubleQuoted: true},
		token.Literal{Text: "~c"},
	}, toks[0].Parts)

	// An unquoted : before the ~ makes it expandable even after quoted
	// text.
	toks = tokenize(t, `y="q":~u`)
	assert.Equal(t, []token.Part{
		token.Literal{Text: "y="},
		token.Literal{Text: "q", DoubleQuoted: true},
		token.Literal{Text: ":"},
		token.Tilde{Prefix: "u"},
	}, toks[0].Parts)
}

func TestTokenize_Quoting(t *testing.T) {
	toks := tokenize(t, `echo 'a b' "c $x" d\ e`)
	require.Equal(t, []token.Type{token.Word, token.Word, token.Word, token.Word, token.EOF}, types(toks))

	sq := toks[1]
	assert.Equal(t, []token.Part{token.Literal{Text: "a b", SingleQuoted: true}}, sq.Parts)
	assert.True(t, sq.Quoted)
	assert.False(t, sq.NeedsFieldSplit)

	dq := toks[2]
	assert.Equal(t, []token.Part{
		token.Literal{Text: "c ", DoubleQuoted: true},
		token.Parameter{Spec: "x", DoubleQuoted: true},
	}, dq.Parts)
	assert.True(t, dq.NeedsExpansion)
	assert.False(t, dq.NeedsFieldSplit)

	esc := toks[3]
	assert.Equal(t, []token.Part{
		token.Literal{Text: "d"},
		token.Literal{Text: " ", SingleQuoted: true},
		token.Literal{Text: "e"},
	}, esc.Parts)
}

func TestTokenize_EmptyQuotes(t *testing.T) {
	toks := tokenize(t, `'' ""`)
	require.Equal(t, []token.Type{token.Word, token.Word, token.EOF}, types(toks))
	assert.Equal(t, []token.Part{token.Literal{SingleQuoted: true}}, toks[0].Parts)
	assert.Equal(t, []token.Part{token.Literal{DoubleQuoted: true}}, toks[1].Parts)
}

func TestTokenize_Expansions(t *testing.T) {
	toks := tokenize(t, "echo $x ${y:-d} $10 $(pwd) `pwd` $((1 + 2)) $? $")
	require.Equal(t, 10, len(toks))
	assert.Equal(t, []token.Part{token.Parameter{Spec: "x"}}, toks[1].Parts)
	assert.Equal(t, []token.Part{token.Parameter{Spec: "y:-d"}}, toks[2].Parts)
	// Without braces a positional parameter is one digit.
	assert.Equal(t, []token.Part{token.Parameter{Spec: "1"}, token.Literal{Text: "0"}}, toks[3].Parts)
	assert.Equal(t, []token.Part{token.CmdSubst{Body: "pwd"}}, toks[4].Parts)
	assert.Equal(t, []token.Part{token.CmdSubst{Body: "pwd", Backquoted: true}}, toks[5].Parts)
	assert.Equal(t, []token.Part{token.Arith{Expr: "1 + 2"}}, toks[6].Parts)
	assert.Equal(t, []token.Part{token.Parameter{Spec: "?"}}, toks[7].Parts)
	assert.Equal(t, []token.Part{token.Literal{Text: "$"}}, toks[8].Parts)
}

func TestTokenize_ParameterWithNestedCommandSubst(t *testing.T) {
	// A } inside a nested $(...) does not close the parameter.
	toks := tokenize(t, "echo ${x:-$(echo })}")
	require.Equal(t, 3, len(toks))
	assert.Equal(t, []token.Part{token.Parameter{Spec: "x:-$(echo })"}}, toks[1].Parts)
}

func TestTokenize_ArithVersusSubshell(t *testing.T) {
	// $(( can also open a command substitution whose first command is a
	// subshell.
	toks := tokenize(t, "$( (echo a) )")
	require.Equal(t, 2, len(toks))
	assert.Equal(t, []token.Part{token.CmdSubst{Body: " (echo a) "}}, toks[0].Parts)

	toks = tokenize(t, "$((echo a); b)")
	require.Equal(t, 2, len(toks))
	assert.Equal(t, []token.Part{token.CmdSubst{Body: "(echo a); b"}}, toks[0].Parts)
}

func TestTokenize_NestedSubstitution(t *testing.T) {
	toks := tokenize(t, `echo $(echo "nested )" '(' $(inner))`)
	require.Equal(t, 3, len(toks))
	assert.Equal(t, []token.Part{
		token.CmdSubst{Body: `echo "nested )" '(' $(inner)`},
	}, toks[1].Parts)
}

func TestTokenize_Tilde(t *testing.T) {
	toks := tokenize(t, "ls ~ ~/x ~joe/y ~'a'")
	require.Equal(t, 6, len(toks))
	assert.Equal(t, []token.Part{token.Tilde{}}, toks[1].Parts)
	assert.Equal(t, []token.Part{token.Tilde{}, token.Literal{Text: "/x"}}, toks[2].Parts)
	assert.Equal(t, []token.Part{token.Tilde{Prefix: "joe"}, token.Literal{Text: "/y"}}, toks[3].Parts)
	// A quote in the prefix makes the ~ literal.
	assert.Equal(t, []token.Part{
		token.Literal{Text: "~"},
		token.Literal{Text: "a", SingleQuoted: true},
	}, toks[4].Parts)
}

func TestTokenize_Heredoc(t *testing.T) {
	toks := tokenize(t, "cat <<EOF\nline 1\nline 2\nEOF\n")
	require.Equal(t, []token.Type{
		token.Word, token.DLess, token.Word, token.Newline, token.EOF,
	}, types(toks))
	hd := toks[1].Heredoc
	require.NotNil(t, hd)
	assert.Equal(t, "EOF", hd.Delim)
	assert.Equal(t, "line 1\nline 2\n", hd.Body)
	assert.False(t, hd.Quoted)
	// The newline token's text spans the collected body.
	assert.Equal(t, "\nline 1\nline 2\nEOF\n", toks[3].Text)
}

func TestTokenize_HeredocQuotedDelim(t *testing.T) {
	for _, text := range []string{
		"cat <<'E'\n$x\nE\n",
		`cat <<E\F` + "\nbody\nEF\n",
	} {
		toks, err := Tokenize(text)
		require.NoError(t, err, "%q", text)
		hd := toks[1].Heredoc
		require.NotNil(t, hd, "%q", text)
		assert.True(t, hd.Quoted, "%q", text)
	}
}

func TestTokenize_HeredocStripTabs(t *testing.T) {
	toks := tokenize(t, "cat <<-E\n\tindented\n\tE\nx")
	hd := toks[1].Heredoc
	require.NotNil(t, hd)
	assert.True(t, hd.StripTabs)
	assert.Equal(t, "indented\n", hd.Body)
}

func TestTokenize_MultipleHeredocs(t *testing.T) {
	toks := tokenize(t, "paste <<A <<B\n1\nA\n2\nB\n")
	assert.Equal(t, "1\n", toks[1].Heredoc.Body)
	assert.Equal(t, "2\n", toks[3].Heredoc.Body)
}

func TestTokenize_Comments(t *testing.T) {
	toks := tokenize(t, "echo a # the rest\nb")
	assert.Equal(t, []token.Type{
		token.Word, token.Word, token.Newline, token.Word, token.EOF,
	}, types(toks))
}

func TestTokenize_LineContinuation(t *testing.T) {
	toks := tokenize(t, "ec\\\nho hi")
	require.Equal(t, 3, len(toks))
	name, ok := toks[0].SingleLiteral()
	require.True(t, ok)
	assert.Equal(t, "echo", name)
}

func TestTokenize_Incomplete(t *testing.T) {
	for _, text := range []string{
		"echo 'abc",
		`echo "abc`,
		"echo $(foo",
		"echo ${x",
		"echo `foo",
		"echo $((1+",
		"cat <<EOF",
		"cat <<EOF\npartial",
	} {
		_, err := Tokenize(text)
		assert.ErrorIs(t, err, ErrIncomplete, "%q", text)
	}
}

func TestTokenize_FeedContinuation(t *testing.T) {
	l := NewLexer()
	l.Feed("echo 'a ")
	_, err := l.Tokenize()
	require.ErrorIs(t, err, ErrIncomplete)
	l.Feed("b'")
	toks, err := l.Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []token.Part{token.Literal{Text: "a b", SingleQuoted: true}}, toks[1].Parts)
}

// Every token's text is exactly the input slice it spans, so the token
// sequence can be mapped back onto the source.
func TestTokenize_TextMatchesSpan(t *testing.T) {
	inputs := []string{
		"echo hello",
		"a=1 b='x y' cmd <input >>output 2>&1 &",
		"if true; then echo a; fi\n",
		"cat <<EOF\nbody\nEOF\nnext\n",
		"x | y && z\n\n(sub; shell)\n",
	}
	for _, input := range inputs {
		toks := tokenize(t, input)
		last := 0
		for _, tok := range toks {
			assert.Equal(t, input[tok.Pos:tok.End], tok.Text, "input %q", input)
			assert.GreaterOrEqual(t, tok.Pos, last, "input %q", input)
			last = tok.End
		}
	}
}
