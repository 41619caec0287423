package ast

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

var printTests = []struct {
	name string
	text string
}{
	{"simple", "echo hi there\n"},
	{"separators", "a; b &\nc\n"},
	{"pipeline", "! a | b && c\n"},
	{"redirs", "cat <f >g 2>&1 <<-EOF\n\thi\nEOF\n"},
	{"if_else", "if a; then b; else c; fi\n"},
	{"while_background", "while a; do b; done &\n"},
	{"for_case", "for x in p q; do r; done\ncase $x in (p|q) s;; t) u;& esac\n"},
	{"funcdef", "f () { a; b; }\nf\n"},
	{"subshell", "(a; b) >out\n"},
}

func TestPrint_Golden(t *testing.T) {
	g := goldie.New(t)
	for _, test := range printTests {
		t.Run(test.name, func(t *testing.T) {
			g.Assert(t, test.name, []byte(Print(lower(t, test.text))))
		})
	}
}

// Printing a lowered tree and lowering the output again must reach a
// fixpoint: the second print is identical to the first.
func TestPrint_LowerPrintFixpoint(t *testing.T) {
	for _, test := range printTests {
		t.Run(test.name, func(t *testing.T) {
			once := Print(lower(t, test.text))
			twice := Print(lower(t, once))
			require.Equal(t, once, twice)
		})
	}
}
