package eval

import (
	"testing"

	"github.com/spk121/sh23/pkg/lex"
	"github.com/spk121/sh23/pkg/token"
)

var quoteValueTests = []struct {
	value string
	want  string
}{
	{"", "''"},
	{"abc", "abc"},
	{"a b", `a\ b`},
	{"a'b", `a\'b`},
	{"$HOME", `\$HOME`},
	{"it's", `it\'s`},
	// No bare form can contain a newline; on the length tie the
	// double-quoted form wins over the single-quoted one.
	{"a\nb", "\"a\nb\""},
	{"*", `\*`},
	{"a=b", "a=b"},
	{"a b c d", "'a b c d'"},
}

func TestQuoteValue(t *testing.T) {
	for _, test := range quoteValueTests {
		if got := quoteValue(test.value); got != test.want {
			t.Errorf("quoteValue(%q) = %q, want %q", test.value, got, test.want)
		}
	}
}

// Quoting must be a fixpoint: lexing the quoted form back recovers the
// original value as a single fully literal word.
func TestQuoteValue_RoundTrip(t *testing.T) {
	values := []string{
		"", "abc", "a b", "a'b", `a"b`, "a\\b", "$v", "`cmd`", "a\nb",
		"it's a \"mixed\" $case\\", "*?[x]", "~user", "\x01\x7f\xff",
	}
	// Every byte except NUL, in one value.
	var all []byte
	for b := 1; b < 256; b++ {
		all = append(all, byte(b))
	}
	values = append(values, string(all))

	for _, value := range values {
		quoted := quoteValue(value)
		tok, err := lex.Word(quoted)
		if err != nil {
			t.Errorf("lexing %q (quoted from %q): %v", quoted, value, err)
			continue
		}
		var sb []byte
		ok := true
		for _, part := range tok.Parts {
			lit, isLit := part.(token.Literal)
			if !isLit {
				ok = false
				break
			}
			sb = append(sb, lit.Text...)
		}
		if !ok {
			t.Errorf("quoted form %q of %q lexes to non-literal parts", quoted, value)
			continue
		}
		if got := string(sb); got != value {
			t.Errorf("round trip of %q via %q = %q", value, quoted, got)
		}
	}
}
