package eval

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// POSIX groups expansions into three steps:
//
//  1. Tilde expansion, parameter expansion, command substitution and
//     arithmetic expansion.
//  2. Field splitting.
//  3. Pathname expansion.
//
// (POSIX also specifies a "quote removal" step, but it's an artifact of the
// evaluation model assumed by POSIX, and doesn't apply to this
// implementation: quoting is tracked per segment and simply dropped when a
// word is stringified.)
//
// Step 1 is driven by the token's part sequence and is done in one pass.
// Steps 2 and 3 are done dynamically on the result of step 1, and whether
// they apply depends on the syntactical environment: in "echo $x", $x is
// subject to field splitting and pathname expansion, whereas in "y=$x" it is
// subject to neither. Two environments perform neither but still parse
// globbing characters, for pattern matching instead of pathname expansion:
// the "foo*" in "${x%%foo*}" and in "case $x in foo*) ... esac".
//
// The intermediate result of step 1 is an expander, which provides methods
// for performing the further expansions. Since pathname expansion happens
// after the parts of a word are joined, an expander never globs; it produces
// an intermediate [word] that records which segments are unquoted for the
// purpose of parsing wildcard characters.
//
// Deciding up front whether field splitting applies does not work for one
// case: in "echo ${y:=$x"*"}", if $y is unset, $x"*" is expanded both
// without field splitting (to assign to $y) and with (to produce command
// arguments). The expander interface defers that decision to the use site.
type expander interface {
	// Expand with field splitting and parsing of globbing characters.
	expand(ifs string) []word
	// Expand without field splitting, but with parsing of glob characters.
	// This always results in one word.
	expandOneWord() word
	// Expand without field splitting or parsing of glob characters. This
	// always results in one string.
	expandOneString() string
}

type word []wordSegment

// A word segment, along with the bit of whether it is quoted or not for the
// purpose of parsing of glob characters.
type wordSegment struct {
	text   string
	quoted bool
}

func wordOfOneSeg(s string, q bool) word {
	if s == "" {
		return nil
	}
	return word{{s, q}}
}

func quotedWord(s string) word   { return wordOfOneSeg(s, true) }
func unquotedWord(s string) word { return wordOfOneSeg(s, false) }

// An unquoted literal run. Glob characters in it are parsed as such, but it
// is never field-split: splitting only applies to expansion results.
type bareword struct{ s string }

func (b bareword) expand(ifs string) []word { return []word{b.expandOneWord()} }
func (b bareword) expandOneWord() word      { return unquotedWord(b.s) }
func (b bareword) expandOneString() string  { return b.s }

// A quoted literal, not subject to field splitting or pathname expansion.
// Also used for tilde expansion results, which POSIX treats as quoted.
type literal struct{ s string }

func (l literal) expand(ifs string) []word { return []word{l.expandOneWord()} }
func (l literal) expandOneWord() word      { return quotedWord(l.s) }
func (l literal) expandOneString() string  { return l.s }

// The result of an unquoted expansion, subject to field splitting and
// parsing of glob characters.
type expanded struct{ s string }

func (e expanded) expand(ifs string) []word { return each(unquotedWord, split(e.s, ifs)) }
func (e expanded) expandOneWord() word      { return unquotedWord(e.s) }
func (e expanded) expandOneString() string  { return e.s }

// Concatenation of the expansions of successive parts of one word.
type compound struct{ elems []expander }

func (c compound) expand(ifs string) []word {
	return expandFromElems(nil, c.elems, func(e expander) []word {
		return e.expand(ifs)
	})
}

func (c compound) expandOneWord() word     { return expandOneWordFromElems(c.elems) }
func (c compound) expandOneString() string { return expandOneStringFromElems(c.elems) }

// A run of double-quoted parts. Expansion results inside are quoted and
// never split; $@ is special-cased to produce one field per argument.
type doubleQuoted struct{ elems []expander }

func (dq doubleQuoted) expand(ifs string) []word {
	return expandFromElems([]word{nil}, dq.elems, func(e expander) []word {
		if a, ok := e.(array); ok && a.isAt {
			return each(quotedWord, a.elems)
		}
		return []word{quotedWord(e.expandOneString())}
	})
}

func (dq doubleQuoted) expandOneWord() word     { return expandOneWordFromElems(dq.elems) }
func (dq doubleQuoted) expandOneString() string { return expandOneStringFromElems(dq.elems) }

// $* or $@, or the result of applying a trimming operator to them. Both have
// complex word splitting behavior, described in XCU 2.5.2. The behavior of
// $@ inside double quotes is implemented in doubleQuoted.expand.
type array struct {
	elems []string
	ifs   func() string // needed for expandOneString
	isAt  bool
}

func (a array) expand(ifs string) []word {
	var words []word
	for _, arg := range a.elems {
		if arg != "" {
			words = append(words, each(unquotedWord, split(arg, ifs))...)
		}
	}
	return words
}

func (a array) expandOneWord() word { return unquotedWord(a.expandOneString()) }

func (a array) expandOneString() string {
	// POSIX leaves unspecified how $@ expands in a one-word environment; we
	// let it behave like $*.
	var sep string
	if ifs := a.ifs(); ifs != "" {
		r, _ := utf8.DecodeRuneInString(ifs)
		sep = string(r)
	}
	return strings.Join(a.elems, sep)
}

// Provides expansion by concatenating the expansion of elems, using
// initWords as the initial value for the expansion result, and the f
// function to expand each element.
//
// Note: May mutate initWords.
func expandFromElems(initWords []word, elems []expander, f func(expander) []word) []word {
	words := initWords
	for _, elem := range elems {
		more := f(elem)
		if len(words) == 0 {
			words = more
		} else if len(more) > 0 {
			words[len(words)-1] = appendWord(words[len(words)-1], more[0])
			words = append(words, more[1:]...)
		}
	}
	return words
}

func expandOneWordFromElems(elems []expander) word {
	var w word
	for _, elem := range elems {
		w = appendWord(w, elem.expandOneWord())
	}
	return w
}

func expandOneStringFromElems(elems []expander) string {
	var sb strings.Builder
	for _, elem := range elems {
		sb.WriteString(elem.expandOneString())
	}
	return sb.String()
}

// Concatenates two words, merging the adjoining segments when they have the
// same quoting.
//
// Note: May mutate w1.
func appendWord(w1, w2 word) word {
	if len(w1) > 0 && len(w2) > 0 && w1[len(w1)-1].quoted == w2[0].quoted {
		w1[len(w1)-1].text += w2[0].text
		w2 = w2[1:]
	}
	return append(w1, w2...)
}

func split(s, ifs string) []string {
	// Implements the algorithm of XCU 2.6.5 clause 3; clause 1 describes the
	// default behavior but is consistent with the more general clause 3.
	//
	// The algorithm depends on a definition of "character", which matters
	// when IFS contains multi-byte codepoints. Dash treats each byte as a
	// character, whereas ksh and bash treat each codepoint as one. We follow
	// ksh and bash.
	if ifs == "" {
		if s == "" {
			// Unquoted null words are deleted even with an empty IFS.
			return nil
		}
		return []string{s}
	}
	var whitespaceRunes, nonWhitespaceRunes []rune
	for _, r := range ifs {
		if r == ' ' || r == '\t' || r == '\n' {
			whitespaceRunes = append(whitespaceRunes, r)
		} else {
			nonWhitespaceRunes = append(nonWhitespaceRunes, r)
		}
	}
	whitespaces := string(whitespaceRunes)
	nonWhitespaces := string(nonWhitespaceRunes)

	// a. Ignore leading and trailing IFS whitespace.
	s = strings.Trim(s, whitespaces)

	delimPatterns := make([]string, 0, 2)
	// b. Each occurrence of a non-whitespace IFS character, with optional
	// leading and trailing IFS whitespace, is a delimiter.
	if nonWhitespaces != "" {
		p := "[" + regexp.QuoteMeta(nonWhitespaces) + "]"
		if whitespaces != "" {
			whitePattern := "[" + regexp.QuoteMeta(whitespaces) + "]*"
			p = whitePattern + p + whitePattern
		}
		delimPatterns = append(delimPatterns, p)
	}
	// c. Non-zero-length IFS whitespace delimits a field.
	if whitespaces != "" {
		p := "[" + regexp.QuoteMeta(whitespaces) + "]+"
		delimPatterns = append(delimPatterns, p)
	}

	fields := splitterFor(strings.Join(delimPatterns, "|")).Split(s, -1)
	if len(fields) > 0 && fields[len(fields)-1] == "" {
		// A word that ends with a delimiter doesn't produce a final empty
		// field. This also deletes words that expand to exactly one null
		// field.
		fields = fields[:len(fields)-1]
	}
	return fields
}

var (
	splitterMu    sync.Mutex
	splitterCache = make(map[string]*regexp.Regexp)
)

func splitterFor(pattern string) *regexp.Regexp {
	splitterMu.Lock()
	defer splitterMu.Unlock()
	re, ok := splitterCache[pattern]
	if !ok {
		re = regexp.MustCompile(pattern)
		splitterCache[pattern] = re
	}
	return re
}
