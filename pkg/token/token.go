// Package token defines the lexical token model shared by the lexer, the
// alias substitution pass and the grammar parser.
package token

import "strings"

// Type identifies the kind of a token. The lexer only produces EOF, Newline,
// Word, AssignmentWord, IoNumber, IoLocation and the operator types; the
// reserved-word types exist so that the parser can refer to keywords by type
// without mutating tokens (keywords are recognized contextually, see
// [Keyword]).
type Type int

const (
	EOF Type = iota
	Newline
	Word
	AssignmentWord
	IoNumber   // digits immediately before a redirection operator
	IoLocation // {name} or {digits} immediately before a redirection operator

	// Operators.
	Semi      // ;
	Amp       // &
	Pipe      // |
	AndIf     // &&
	OrIf      // ||
	Lparen    // (
	Rparen    // )
	DSemi     // ;;
	SemiAmp   // ;&
	Less      // <
	Great     // >
	DGreat    // >>
	DLess     // <<
	DLessDash // <<-
	LessAnd   // <&
	GreatAnd  // >&
	LessGreat // <>
	Clobber   // >|

	// Reserved words.
	If
	Then
	Elif
	Else
	Fi
	Do
	Done
	While
	Until
	For
	Case
	Esac
	In
	Lbrace // {
	Rbrace // }
	Bang   // !
)

var typeNames = map[Type]string{
	EOF:            "EOF",
	Newline:        "newline",
	Word:           "word",
	AssignmentWord: "assignment word",
	IoNumber:       "io number",
	IoLocation:     "io location",
	Semi:           ";",
	Amp:            "&",
	Pipe:           "|",
	AndIf:          "&&",
	OrIf:           "||",
	Lparen:         "(",
	Rparen:         ")",
	DSemi:          ";;",
	SemiAmp:        ";&",
	Less:           "<",
	Great:          ">",
	DGreat:         ">>",
	DLess:          "<<",
	DLessDash:      "<<-",
	LessAnd:        "<&",
	GreatAnd:       ">&",
	LessGreat:      "<>",
	Clobber:        ">|",
	If:             "if",
	Then:           "then",
	Elif:           "elif",
	Else:           "else",
	Fi:             "fi",
	Do:             "do",
	Done:           "done",
	While:          "while",
	Until:          "until",
	For:            "for",
	Case:           "case",
	Esac:           "esac",
	In:             "in",
	Lbrace:         "{",
	Rbrace:         "}",
	Bang:           "!",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "invalid token"
}

// IsRedirOp reports whether t is one of the redirection operators.
func (t Type) IsRedirOp() bool {
	switch t {
	case Less, Great, DGreat, DLess, DLessDash, LessAnd, GreatAnd, LessGreat, Clobber:
		return true
	}
	return false
}

var keywords = map[string]Type{
	"if": If, "then": Then, "elif": Elif, "else": Else, "fi": Fi,
	"do": Do, "done": Done, "while": While, "until": Until, "for": For,
	"case": Case, "esac": Esac, "in": In, "{": Lbrace, "}": Rbrace, "!": Bang,
}

// Keyword returns the reserved-word type for s, if any. The lexer never emits
// these types; the parser calls Keyword when the syntactic position accepts a
// reserved word and the candidate token is an unquoted single-literal word.
func Keyword(s string) (Type, bool) {
	t, ok := keywords[s]
	return t, ok
}

// Part is one segment of a Word or AssignmentWord token. It is a sealed sum:
// exactly the five variants below implement it. Parts never straddle a quote
// boundary; adjacent parts with identical quoting may be merged.
type Part interface{ part() }

// Literal is a run of bytes that needs no expansion. SingleQuoted covers both
// '...' text and backslash-escaped characters, which behave identically from
// here on (no field splitting, no globbing).
type Literal struct {
	Text         string
	SingleQuoted bool
	DoubleQuoted bool
}

// Parameter is the text between $ or ${ and the end of the construct, e.g.
// "x" for $x and "x:-fallback" for ${x:-fallback}.
type Parameter struct {
	Spec         string
	DoubleQuoted bool
}

// CmdSubst is the raw body of $(...) or `...`, re-lexed at expansion time.
type CmdSubst struct {
	Body         string
	Backquoted   bool
	DoubleQuoted bool
}

// Arith is the raw body of $((...)).
type Arith struct {
	Expr         string
	DoubleQuoted bool
}

// Tilde is the literal after a ~ up to the first slash, e.g. "" for ~ and
// "user" for ~user.
type Tilde struct {
	Prefix string
}

func (Literal) part()   {}
func (Parameter) part() {}
func (CmdSubst) part()  {}
func (Arith) part()     {}
func (Tilde) part()     {}

// Heredoc is the collected body of a here-document, attached to the << or
// <<- token that introduced it.
type Heredoc struct {
	Delim     string
	Body      string
	Quoted    bool // delimiter was quoted; body is taken literally
	StripTabs bool // <<-: leading tabs stripped from body lines
}

// Token is one lexical unit. Pos and End are byte offsets into the input the
// token was lexed from; Text is the exact source slice, so that concatenating
// gaps and texts of successive tokens reproduces the input.
type Token struct {
	Type      Type
	Text      string
	Pos, End  int
	Line, Col int

	// Only Word and AssignmentWord carry parts.
	Parts []Part

	// Quoted is true iff at least one part was produced inside '...' or
	// "...".
	Quoted bool

	// Derived from Parts; must be recomputed whenever Parts change.
	NeedsExpansion  bool
	NeedsFieldSplit bool
	NeedsGlob       bool

	// Attached here-document body, on DLess and DLessDash tokens.
	Heredoc *Heredoc

	// Name from a {name} io-location prefix, on IoLocation tokens.
	IoLoc string
}

const globChars = "*?["

// Recompute re-derives the three expansion flags from Parts.
//
// NeedsFieldSplit implies NeedsExpansion: only expansion results are ever
// split. NeedsGlob requires an unquoted literal glob metacharacter.
func (t *Token) Recompute() {
	t.NeedsExpansion = false
	t.NeedsFieldSplit = false
	t.NeedsGlob = false
	for _, p := range t.Parts {
		switch p := p.(type) {
		case Literal:
			if !p.SingleQuoted && !p.DoubleQuoted && strings.ContainsAny(p.Text, globChars) {
				t.NeedsGlob = true
			}
		case Parameter:
			t.NeedsExpansion = true
			if !p.DoubleQuoted {
				t.NeedsFieldSplit = true
			}
		case CmdSubst:
			t.NeedsExpansion = true
			if !p.DoubleQuoted {
				t.NeedsFieldSplit = true
			}
		case Arith:
			t.NeedsExpansion = true
			if !p.DoubleQuoted {
				t.NeedsFieldSplit = true
			}
		case Tilde:
			t.NeedsExpansion = true
		}
	}
}

// Clone returns a deep copy. Lowering clones every token it embeds in the
// execution AST so that the grammar tree and the AST never share token
// ownership.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	tt := *t
	tt.Parts = append([]Part(nil), t.Parts...)
	if t.Heredoc != nil {
		hd := *t.Heredoc
		tt.Heredoc = &hd
	}
	return &tt
}

// SingleLiteral returns the text of the token if it consists of exactly one
// unquoted literal part. This is the shape eligible for alias substitution
// and reserved-word recognition.
func (t *Token) SingleLiteral() (string, bool) {
	if t.Type != Word || len(t.Parts) != 1 || t.Quoted {
		return "", false
	}
	lit, ok := t.Parts[0].(Literal)
	if !ok || lit.SingleQuoted || lit.DoubleQuoted {
		return "", false
	}
	return lit.Text, true
}
