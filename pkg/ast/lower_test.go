package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spk121/sh23/pkg/lex"
	"github.com/spk121/sh23/pkg/parse"
	"github.com/spk121/sh23/pkg/token"
)

func lower(t *testing.T, text string) *List {
	t.Helper()
	toks, err := lex.Tokenize(text)
	require.NoError(t, err, "Tokenize(%q)", text)
	prog, res, err := parse.Parse(toks)
	require.NoError(t, err, "Parse(%q)", text)
	require.NotEqual(t, parse.Error, res, "Parse(%q)", text)
	return Lower(prog)
}

func TestLower_CollapsesDegenerateWrappers(t *testing.T) {
	l := lower(t, "echo hi")
	require.Equal(t, 1, len(l.Items))
	_, ok := l.Items[0].Cmd.(*SimpleCommand)
	assert.True(t, ok, "a bare command lowers to a SimpleCommand, got %T", l.Items[0].Cmd)

	l = lower(t, "a | b")
	_, ok = l.Items[0].Cmd.(*Pipeline)
	assert.True(t, ok)

	// Negation keeps the pipeline wrapper even for one command.
	l = lower(t, "! a")
	pl, ok := l.Items[0].Cmd.(*Pipeline)
	require.True(t, ok)
	assert.True(t, pl.Negated)
	assert.Equal(t, 1, len(pl.Cmds))
}

func TestLower_FusesCompleteCommands(t *testing.T) {
	l := lower(t, "a; b &\nc\n")
	require.Equal(t, 3, len(l.Items))
	assert.Equal(t, Sequential, l.Items[0].Sep)
	assert.Equal(t, Background, l.Items[1].Sep)
	assert.Equal(t, End, l.Items[2].Sep)
}

func TestLower_ElifChain(t *testing.T) {
	l := lower(t, "if a; then b; elif c; then d; else e; fi")
	n, ok := l.Items[0].Cmd.(*If)
	require.True(t, ok)
	elif, ok := n.Else.(*If)
	require.True(t, ok, "elif lowers to a nested If, got %T", n.Else)
	_, ok = elif.Else.(*List)
	assert.True(t, ok)
}

func TestLower_Redirects(t *testing.T) {
	l := lower(t, "cmd <in >out >>log 2>&1 3<&- <<E >|f <>g\nbody\nE\n")
	sc, ok := l.Items[0].Cmd.(*SimpleCommand)
	require.True(t, ok)
	rds := sc.Redirs
	require.Equal(t, 8, len(rds))

	assert.Equal(t, Read, rds[0].Op)
	assert.Equal(t, File, rds[0].Kind)
	assert.Equal(t, -1, rds[0].FD)

	assert.Equal(t, Write, rds[1].Op)
	assert.Equal(t, Append, rds[2].Op)

	assert.Equal(t, DupOut, rds[3].Op)
	assert.Equal(t, FDTarget, rds[3].Kind)
	assert.Equal(t, 2, rds[3].FD)
	assert.Equal(t, 1, rds[3].TargetFD)

	assert.Equal(t, DupIn, rds[4].Op)
	assert.Equal(t, Close, rds[4].Kind)
	assert.Equal(t, 3, rds[4].FD)

	assert.Equal(t, FromBuffer, rds[5].Op)
	assert.Equal(t, Buffer, rds[5].Kind)
	require.NotNil(t, rds[5].Body)
	assert.Equal(t, "body\n", rds[5].Body.Body)

	assert.Equal(t, WriteForce, rds[6].Op)
	assert.Equal(t, ReadWrite, rds[7].Op)
}

func TestLower_ClonesTokens(t *testing.T) {
	toks, err := lex.Tokenize("echo $x")
	require.NoError(t, err)
	prog, _, err := parse.Parse(toks)
	require.NoError(t, err)
	l := Lower(prog)

	sc := l.Items[0].Cmd.(*SimpleCommand)
	// The lowered tree must not share token pointers with the input slice.
	for _, tok := range toks {
		for _, w := range sc.Words {
			assert.NotSame(t, tok, w)
		}
	}
	// Mutating the input tokens leaves the lowered tree alone.
	text := sc.Words[1].Text
	toks[1].Text = "clobbered"
	toks[1].Parts = nil
	assert.Equal(t, text, sc.Words[1].Text)
	assert.NotEmpty(t, sc.Words[1].Parts)
}

var ignorePositions = cmpopts.IgnoreFields(token.Token{}, "Pos", "End", "Line", "Col")

// Printing a lowered tree and running it back through the pipeline yields a
// structurally equal tree.
func TestPrintRoundTrip(t *testing.T) {
	inputs := []string{
		"echo hi\n",
		"a=1 b=2 cmd arg >out 2>&1\n",
		"a; b & c && d || e\n",
		"! a | b | c\n",
		"if a; then b; elif c; then d; else e; fi\n",
		"while a; do b; done\n",
		"until a; do b; done\n",
		"for x in a b c; do echo $x; done\n",
		"for x do echo $x; done\n",
		"case $x in a|b) one;; c) two;& *) three;; esac\n",
		"(a; b) >log\n",
		"{ a; b; } 2>&1\n",
		"f() { echo hi; }\nf\n",
		"cat <<EOF\nsome body\nEOF\n",
		"cat <<-E <<'F'\n\ttabbed\n\tE\nliteral $x\nF\n",
		"cat <<E | tr a-z A-Z\nhi\nE\n",
	}
	for _, input := range inputs {
		first := lower(t, input)
		printed := Print(first)
		second := lower(t, printed)
		if diff := cmp.Diff(first, second, ignorePositions); diff != "" {
			t.Errorf("round trip of %q via %q (-first+second):\n%v", input, printed, diff)
		}
	}
}
