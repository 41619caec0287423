// Package lex implements lexical analysis of POSIX shell input: the outer
// lexer with its single- and double-quote sub-modes, the here-document
// collector, and the alias substitution pass.
package lex

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spk121/sh23/pkg/token"
)

// ErrIncomplete is returned by Tokenize when the input ends inside an
// unterminated quote, expansion or here-document. An interactive caller
// should Feed more input and call Tokenize again.
var ErrIncomplete = errors.New("incomplete input")

// Error is a lexical error with position information.
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v:%v: %v", e.Line, e.Col, e.Msg)
}

// Lexer accumulates input text. Feed may be called between Tokenize
// invocations to supply continuation lines; Tokenize always re-scans the
// accumulated input from the beginning, so it is safe to retry after
// ErrIncomplete.
type Lexer struct {
	input strings.Builder
}

func NewLexer() *Lexer {
	return &Lexer{}
}

// Feed appends bytes to the input.
func (l *Lexer) Feed(s string) {
	l.input.WriteString(s)
}

// Input returns the accumulated input.
func (l *Lexer) Input() string {
	return l.input.String()
}

// Tokenize scans the accumulated input into a token sequence ending with an
// EOF token. The error is nil, ErrIncomplete, or an *Error.
func (l *Lexer) Tokenize() ([]*token.Token, error) {
	s := &scanner{text: l.input.String()}
	s.run()
	if s.err != nil {
		return nil, s.err
	}
	if s.incomplete {
		return nil, ErrIncomplete
	}
	return s.toks, nil
}

// Tokenize is a convenience for one-shot input.
func Tokenize(text string) ([]*token.Token, error) {
	l := NewLexer()
	l.Feed(text)
	return l.Tokenize()
}

type scanner struct {
	text string
	pos  int

	toks []*token.Token
	// Redirection tokens whose here-document bodies are still to be
	// collected, in source order. Resolved at the next newline.
	pending []*token.Token

	incomplete bool
	err        *Error
}

// Cursor helpers.

func (s *scanner) rest() string { return s.text[s.pos:] }
func (s *scanner) eof() bool    { return s.pos == len(s.text) }

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.rest(), p)
}

func (s *scanner) hasPrefixIn(prefixes ...string) string {
	for _, p := range prefixes {
		if s.hasPrefix(p) {
			return p
		}
	}
	return ""
}

func (s *scanner) consume(n int) string {
	c := s.rest()[:n]
	s.pos += n
	return c
}

func (s *scanner) consumePrefix(p string) bool {
	if s.hasPrefix(p) {
		s.pos += len(p)
		return true
	}
	return false
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.text[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.text) {
		return 0
	}
	return s.text[s.pos+off]
}

func (s *scanner) lineCol(pos int) (int, int) {
	line := 1 + strings.Count(s.text[:pos], "\n")
	col := pos - strings.LastIndexByte(s.text[:pos], '\n')
	return line, col
}

func (s *scanner) errorf(format string, args ...any) {
	if s.err != nil {
		return
	}
	line, col := s.lineCol(s.pos)
	s.err = &Error{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// tok builds a token spanning [start, s.pos).
func (s *scanner) tok(typ token.Type, start int) *token.Token {
	line, col := s.lineCol(start)
	return &token.Token{
		Type: typ,
		Text: s.text[start:s.pos],
		Pos:  start, End: s.pos,
		Line: line, Col: col,
	}
}

func (s *scanner) emit(t *token.Token) {
	t.End = s.pos
	t.Text = s.text[t.Pos:t.End]
	s.toks = append(s.toks, t)
}

const (
	blankSet = " \t\r"
	// Characters that terminate an unquoted word.
	metaSet = blankSet + "\n;&|()<>"
)

func isDigits(str string) bool {
	if str == "" {
		return false
	}
	for i := 0; i < len(str); i++ {
		if str[i] < '0' || str[i] > '9' {
			return false
		}
	}
	return true
}

// skipBlanks consumes inline whitespace, line continuations and comments.
// A # begins a comment only at the start of a token, which is the only place
// skipBlanks is called from.
func (s *scanner) skipBlanks() {
	for {
		switch {
		case !s.eof() && strings.IndexByte(blankSet, s.peek()) >= 0:
			s.pos++
		case s.hasPrefix("\\\n"):
			s.pos += 2
		case s.peek() == '#':
			for !s.eof() && s.peek() != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *scanner) run() {
	for {
		s.skipBlanks()
		start := s.pos
		switch {
		case s.eof():
			if len(s.pending) > 0 {
				// A here-document leader was seen but its body line was
				// never reached.
				s.incomplete = true
				return
			}
			s.emit(&token.Token{Type: token.EOF, Pos: start})
			s.toks[len(s.toks)-1].Line, s.toks[len(s.toks)-1].Col = s.lineCol(start)
			return
		case s.peek() == '\n':
			s.pos++
			t := s.tok(token.Newline, start)
			s.collectHeredocs()
			s.emit(t)
		case strings.IndexByte(";&|()<>", s.peek()) >= 0:
			s.lexOperator(start)
		default:
			s.lexWord(start)
		}
		if s.err != nil || s.incomplete {
			return
		}
	}
}

// Operators ordered so that a greedy prefix match implements maximal munch.
var operators = []struct {
	text string
	typ  token.Type
}{
	{"<<-", token.DLessDash},
	{"&&", token.AndIf},
	{"||", token.OrIf},
	{";;", token.DSemi},
	{";&", token.SemiAmp},
	{"<<", token.DLess},
	{">>", token.DGreat},
	{"<&", token.LessAnd},
	{">&", token.GreatAnd},
	{"<>", token.LessGreat},
	{">|", token.Clobber},
	{";", token.Semi},
	{"&", token.Amp},
	{"|", token.Pipe},
	{"(", token.Lparen},
	{")", token.Rparen},
	{"<", token.Less},
	{">", token.Great},
}

func (s *scanner) lexOperator(start int) {
	for _, op := range operators {
		if s.consumePrefix(op.text) {
			t := s.tok(op.typ, start)
			s.emit(t)
			if op.typ == token.DLess || op.typ == token.DLessDash {
				s.lexHeredocLeader(t)
			}
			return
		}
	}
	s.errorf("unexpected character %q", s.peek())
}

// lexHeredocLeader lexes the delimiter word following << or <<- and
// registers the redirection token for body collection at the next newline.
func (s *scanner) lexHeredocLeader(op *token.Token) {
	s.skipBlanks()
	if s.eof() || s.peek() == '\n' {
		s.errorf("missing here-document delimiter")
		return
	}
	start := s.pos
	s.lexWord(start)
	if s.err != nil || s.incomplete {
		return
	}
	delim := s.toks[len(s.toks)-1]
	text, quoted := heredocDelim(delim)
	op.Heredoc = &token.Heredoc{
		Delim:     text,
		Quoted:    quoted,
		StripTabs: op.Type == token.DLessDash,
	}
	s.pending = append(s.pending, op)
}

// heredocDelim computes the unquoted delimiter text and whether any of it
// was quoted. A backslash-escaped character counts as quoted, so <<E\OF
// suppresses expansion like <<'EOF' does.
func heredocDelim(t *token.Token) (string, bool) {
	var b strings.Builder
	quoted := false
	for _, p := range t.Parts {
		switch p := p.(type) {
		case token.Literal:
			b.WriteString(p.Text)
			if p.SingleQuoted || p.DoubleQuoted {
				quoted = true
			}
		case token.Parameter:
			b.WriteString("$" + p.Spec)
		case token.CmdSubst:
			b.WriteString(p.Body)
		case token.Arith:
			b.WriteString(p.Expr)
		case token.Tilde:
			b.WriteString("~" + p.Prefix)
		}
	}
	return b.String(), quoted
}

// collectHeredocs slurps the body of each pending here-document, in order,
// starting at the current position (just after a newline).
func (s *scanner) collectHeredocs() {
	for _, op := range s.pending {
		hd := op.Heredoc
		var body strings.Builder
		for {
			if s.eof() {
				s.incomplete = true
				s.pending = nil
				return
			}
			lineEnd := strings.IndexByte(s.rest(), '\n')
			var line string
			if lineEnd == -1 {
				line = s.rest()
				s.pos = len(s.text)
			} else {
				line = s.rest()[:lineEnd]
				s.pos += lineEnd + 1
			}
			if hd.StripTabs {
				line = strings.TrimLeft(line, "\t")
			}
			if line == hd.Delim {
				break
			}
			if lineEnd == -1 {
				// Last line of input is not the delimiter.
				s.incomplete = true
				s.pending = nil
				return
			}
			body.WriteString(line)
			body.WriteByte('\n')
		}
		hd.Body = body.String()
	}
	s.pending = nil
}

var (
	assignPrefix = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
	ioLocPattern = regexp.MustCompile(`^\{([A-Za-z_][A-Za-z0-9_]*|[0-9]+)\}$`)
)

func (s *scanner) lexWord(start int) {
	w := &wordScanner{s: s, stops: metaSet}
	if s.peek() == '~' {
		w.lexTilde()
	}
	for !s.eof() && strings.IndexByte(metaSet, s.peek()) < 0 {
		w.step()
		if s.err != nil || s.incomplete {
			return
		}
	}
	t := s.tok(token.Word, start)
	t.Parts = w.finish()
	t.Quoted = w.quoted

	if lit, ok := singleUnquotedLiteral(t); ok {
		next := s.peek()
		if isDigits(lit) && (next == '<' || next == '>') {
			t.Type = token.IoNumber
		} else if m := ioLocPattern.FindStringSubmatch(lit); m != nil && (next == '<' || next == '>') {
			t.Type = token.IoLocation
			t.IoLoc = m[1]
		}
	}
	if t.Type == token.Word {
		if first, ok := firstUnquotedLiteral(t); ok && assignPrefix.MatchString(first) {
			t.Type = token.AssignmentWord
			t.Parts = splitAssignTildes(t.Parts)
		}
	}
	t.Recompute()
	s.emit(t)
}

func singleUnquotedLiteral(t *token.Token) (string, bool) {
	if len(t.Parts) != 1 {
		return "", false
	}
	lit, ok := t.Parts[0].(token.Literal)
	if !ok || lit.SingleQuoted || lit.DoubleQuoted {
		return "", false
	}
	return lit.Text, true
}

func firstUnquotedLiteral(t *token.Token) (string, bool) {
	if len(t.Parts) == 0 {
		return "", false
	}
	lit, ok := t.Parts[0].(token.Literal)
	if !ok || lit.SingleQuoted || lit.DoubleQuoted {
		return "", false
	}
	return lit.Text, true
}

// splitAssignTildes rewrites the literal parts of an assignment word so that
// a ~ immediately after the = or after an unquoted : becomes a Tilde part.
// A ~ at the start of a later literal part follows quoted text or an
// expansion rather than = or :, so it stays literal.
func splitAssignTildes(parts []token.Part) []token.Part {
	var out []token.Part
	for i, p := range parts {
		lit, ok := p.(token.Literal)
		if !ok || lit.SingleQuoted || lit.DoubleQuoted {
			out = append(out, p)
			continue
		}
		text := lit.Text
		after := -1
		if i == 0 {
			eq := strings.IndexByte(text, '=')
			if eq == -1 {
				out = append(out, p)
				continue
			}
			after = eq
		}
		for {
			var idx int
			if after >= 0 {
				idx = tildeAfter(text, after)
				after = -1
			} else {
				idx = tildeAfterColon(text)
			}
			if idx == -1 {
				break
			}
			if idx > 0 {
				out = append(out, token.Literal{Text: text[:idx]})
			}
			end := strings.IndexAny(text[idx:], "/:")
			var prefix string
			if end == -1 {
				prefix = text[idx+1:]
				text = ""
			} else {
				prefix = text[idx+1 : idx+end]
				text = text[idx+end:]
			}
			out = append(out, token.Tilde{Prefix: prefix})
			if text == "" {
				break
			}
		}
		if text != "" {
			out = append(out, token.Literal{Text: text})
		}
	}
	return out
}

// tildeAfterColon returns the index of the first ~ directly after a :, or
// -1.
func tildeAfterColon(text string) int {
	for j := 0; j+1 < len(text); j++ {
		if text[j] == ':' && text[j+1] == '~' {
			return j + 1
		}
	}
	return -1
}

// tildeAfter returns the index of a ~ directly after position after (or
// after any : at position > after), or -1.
func tildeAfter(text string, after int) int {
	if after+1 < len(text) && text[after+1] == '~' {
		return after + 1
	}
	for j := after + 1; j < len(text); j++ {
		if text[j] == ':' && j+1 < len(text) && text[j+1] == '~' {
			return j + 1
		}
	}
	return -1
}
