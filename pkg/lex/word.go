package lex

import (
	"strings"

	"github.com/spk121/sh23/pkg/token"
)

// wordScanner accumulates the parts of one word. Literal bytes are buffered
// and flushed into a Literal part whenever the quoting context changes or a
// non-literal part is produced.
type wordScanner struct {
	s *scanner
	// Characters that terminate the word. Empty when lexing detached word
	// text at expansion time, where nothing but EOF terminates it.
	stops  string
	parts  []token.Part
	buf    strings.Builder
	bufSQ  bool // buffered bytes are single-quoted (or backslash-escaped)
	bufDQ  bool
	quoted bool // some part came from '...' or "..."
}

func (w *wordScanner) flush() {
	if w.buf.Len() > 0 {
		w.parts = append(w.parts, token.Literal{
			Text:         w.buf.String(),
			SingleQuoted: w.bufSQ,
			DoubleQuoted: w.bufDQ,
		})
		w.buf.Reset()
	}
}

func (w *wordScanner) literal(text string, sq, dq bool) {
	if text == "" {
		return
	}
	if w.buf.Len() > 0 && (w.bufSQ != sq || w.bufDQ != dq) {
		w.flush()
	}
	w.bufSQ, w.bufDQ = sq, dq
	w.buf.WriteString(text)
}

func (w *wordScanner) part(p token.Part) {
	w.flush()
	w.parts = append(w.parts, p)
}

func (w *wordScanner) finish() []token.Part {
	w.flush()
	if len(w.parts) == 0 {
		// A word was lexed but produced no parts; represent it as an empty
		// literal so the token is not partless. This happens for ''.
		w.parts = append(w.parts, token.Literal{SingleQuoted: w.quoted})
	}
	return w.parts
}

// Characters that end the literal prefix of a tilde: if any appears before a
// slash or a word terminator, the ~ is not a tilde expansion.
const tildeStopper = "'\"\\$`=:"

// lexTilde consumes a leading tilde prefix, or nothing if the ~ turns out to
// be literal.
func (w *wordScanner) lexTilde() {
	s := w.s
	rest := s.rest()
	for i := 1; i < len(rest); i++ {
		c := rest[i]
		if c == '/' || strings.IndexByte(metaSet, c) >= 0 {
			w.part(token.Tilde{Prefix: rest[1:i]})
			s.consume(i)
			return
		}
		if strings.IndexByte(tildeStopper, c) >= 0 {
			// Not a tilde prefix; leave everything for the normal scan.
			return
		}
	}
	w.part(token.Tilde{Prefix: rest[1:]})
	s.consume(len(rest))
}

// step consumes one construct at the current position: a quoted run, an
// expansion, an escape, or a run of plain literal bytes.
func (w *wordScanner) step() {
	s := w.s
	switch s.peek() {
	case '\'':
		s.pos++
		end := strings.IndexByte(s.rest(), '\'')
		if end == -1 {
			s.incomplete = true
			return
		}
		w.quoted = true
		if end == 0 && w.buf.Len() == 0 && len(w.parts) == 0 {
			// Preserve '' as an empty quoted literal.
			w.parts = append(w.parts, token.Literal{SingleQuoted: true})
		}
		w.literal(s.consume(end), true, false)
		s.pos++ // closing quote
	case '"':
		s.pos++
		w.quoted = true
		w.lexDoubleQuoted()
	case '\\':
		if s.peekAt(1) == '\n' {
			s.pos += 2 // line continuation
			return
		}
		if s.pos+1 >= len(s.text) {
			// Backslash before EOF acts as a line continuation.
			s.pos++
			return
		}
		s.pos++
		w.literal(s.consume(1), true, false)
	case '$':
		w.lexDollar(false)
	case '`':
		w.lexBackquote(false)
	default:
		i := 0
		rest := s.rest()
		for i < len(rest) && strings.IndexByte(w.stops+`'"\$`+"`", rest[i]) < 0 {
			i++
		}
		if i == 0 {
			// A stop character reached back here; consume it literally to
			// guarantee progress. Does not happen when stops is metaSet.
			i = 1
		}
		w.literal(s.consume(i), false, false)
	}
}

// The escapable characters inside double quotes. A backslash before any
// other character is literal.
const dqEscapable = "$`\"\\\n"

func (w *wordScanner) lexDoubleQuoted() {
	s := w.s
	for {
		if s.eof() {
			s.incomplete = true
			return
		}
		switch s.peek() {
		case '"':
			s.pos++
			if w.buf.Len() == 0 && len(w.parts) == 0 {
				w.parts = append(w.parts, token.Literal{DoubleQuoted: true})
			}
			return
		case '\\':
			c := s.peekAt(1)
			if c == '\n' {
				s.pos += 2
			} else if c != 0 && strings.IndexByte(dqEscapable, c) >= 0 {
				s.pos++
				w.literal(s.consume(1), false, true)
			} else {
				s.pos++
				w.literal("\\", false, true)
			}
		case '$':
			w.lexDollar(true)
		case '`':
			w.lexBackquote(true)
		default:
			i := 0
			rest := s.rest()
			for i < len(rest) && strings.IndexByte("\"\\$`", rest[i]) < 0 {
				i++
			}
			w.literal(s.consume(i), false, true)
		}
		if s.incomplete || s.err != nil {
			return
		}
	}
}

const (
	specialParamSet = "@*#?-$!"
	digitSet        = "0123456789"
	nameSet         = "_0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

func (w *wordScanner) lexDollar(dq bool) {
	s := w.s
	s.pos++ // $
	switch {
	case s.hasPrefix("(("):
		if expr, ok := w.tryArith(); ok {
			w.part(token.Arith{Expr: expr, DoubleQuoted: dq})
			return
		}
		// Not arithmetic after all: $( (subshell) ...).
		fallthrough
	case s.hasPrefix("("):
		s.pos++
		body, ok := s.balanced('(', ')')
		if !ok {
			s.incomplete = true
			return
		}
		w.part(token.CmdSubst{Body: body, DoubleQuoted: dq})
	case s.hasPrefix("{"):
		s.pos++
		spec, ok := s.balanced('{', '}')
		if !ok {
			s.incomplete = true
			return
		}
		w.part(token.Parameter{Spec: spec, DoubleQuoted: dq})
	case !s.eof() && strings.IndexByte(specialParamSet, s.peek()) >= 0:
		w.part(token.Parameter{Spec: s.consume(1), DoubleQuoted: dq})
	case !s.eof() && strings.IndexByte(digitSet, s.peek()) >= 0:
		// Without braces, a positional parameter is a single digit: $10 is
		// $1 followed by "0".
		w.part(token.Parameter{Spec: s.consume(1), DoubleQuoted: dq})
	case !s.eof() && isNameStart(s.peek()):
		i := 0
		rest := s.rest()
		for i < len(rest) && strings.IndexByte(nameSet, rest[i]) >= 0 {
			i++
		}
		w.part(token.Parameter{Spec: s.consume(i), DoubleQuoted: dq})
	default:
		// A lone $ is literal.
		w.literal("$", false, dq)
	}
}

func isNameStart(c byte) bool {
	return c == '_' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z'
}

// tryArith is called with the cursor on the (( of $((. It captures the body
// of an arithmetic expansion if the construct is one, leaving the cursor
// after the closing )); otherwise it restores the cursor and reports false.
func (w *wordScanner) tryArith() (string, bool) {
	s := w.s
	save := s.pos
	s.pos += 2
	start := s.pos
	depth := 0
	for !s.eof() {
		switch s.peek() {
		case '\'':
			s.pos++
			end := strings.IndexByte(s.rest(), '\'')
			if end == -1 {
				s.pos = len(s.text)
				continue
			}
			s.pos += end + 1
		case '\\':
			s.pos += 2
		case '(':
			depth++
			s.pos++
		case ')':
			if depth > 0 {
				depth--
				s.pos++
				continue
			}
			if s.peekAt(1) == ')' {
				body := s.text[start:s.pos]
				s.pos += 2
				return body, true
			}
			// A lone ) at depth 0: this is $( (...) ...), not arithmetic.
			s.pos = save
			return "", false
		default:
			s.pos++
		}
	}
	// Unterminated; treat as arithmetic so the caller reports incomplete
	// input rather than reinterpreting.
	s.pos = save
	s.incomplete = true
	return "", false
}

// balanced captures text up to the closing delimiter, honoring nesting and
// skipping quoted runs and escapes. The cursor starts just after the opening
// delimiter and ends just after the closing one.
func (s *scanner) balanced(open, close byte) (string, bool) {
	start := s.pos
	depth := 0
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '\\':
			s.pos += 2
		case c == '\'':
			s.pos++
			end := strings.IndexByte(s.rest(), '\'')
			if end == -1 {
				return "", false
			}
			s.pos += end + 1
		case c == '"':
			s.pos++
			if !s.skipDoubleQuoted() {
				return "", false
			}
		case c == '`':
			s.pos++
			if !s.skipBackquoted() {
				return "", false
			}
		case c == '$' && s.peekAt(1) == '(' && open != '(':
			// A nested $(...) may contain an unmatched close (as in
			// ${x:-$(echo })}); capture it as a unit.
			s.pos += 2
			if _, ok := s.balanced('(', ')'); !ok {
				return "", false
			}
		case c == open:
			depth++
			s.pos++
		case c == close:
			if depth == 0 {
				body := s.text[start:s.pos]
				s.pos++
				return body, true
			}
			depth--
			s.pos++
		default:
			s.pos++
		}
	}
	return "", false
}

func (s *scanner) skipDoubleQuoted() bool {
	for !s.eof() {
		switch s.peek() {
		case '"':
			s.pos++
			return true
		case '\\':
			s.pos += 2
		case '`':
			s.pos++
			if !s.skipBackquoted() {
				return false
			}
		default:
			s.pos++
		}
	}
	return false
}

func (s *scanner) skipBackquoted() bool {
	for !s.eof() {
		switch s.peek() {
		case '`':
			s.pos++
			return true
		case '\\':
			s.pos += 2
		default:
			s.pos++
		}
	}
	return false
}

// lexBackquote captures a `...` command substitution. Inside backquotes, a
// backslash retains its meaning only before $, ` and \; the processed body
// (with those escapes removed) is stored for re-lexing at expansion time.
func (w *wordScanner) lexBackquote(dq bool) {
	s := w.s
	s.pos++ // `
	var body strings.Builder
	for {
		if s.eof() {
			s.incomplete = true
			return
		}
		c := s.peek()
		if c == '`' {
			s.pos++
			w.part(token.CmdSubst{Body: body.String(), Backquoted: true, DoubleQuoted: dq})
			return
		}
		if c == '\\' {
			n := s.peekAt(1)
			if n == '$' || n == '`' || n == '\\' {
				s.pos += 2
				body.WriteByte(n)
				continue
			}
			// In a double-quoted context \" is also an escape.
			if dq && n == '"' {
				s.pos += 2
				body.WriteByte('"')
				continue
			}
			s.pos++
			body.WriteByte('\\')
			continue
		}
		s.pos++
		body.WriteByte(c)
	}
}
