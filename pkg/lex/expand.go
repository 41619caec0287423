package lex

import (
	"strings"

	"github.com/spk121/sh23/pkg/token"
)

// Word lexes detached word text into a single Word token. Metacharacters do
// not terminate the word and no operators or comments are recognized; quotes
// and expansions behave as in ordinary words. This is how the argument of a
// parameter modifier like ${x:-a b} is re-lexed at expansion time.
func Word(text string) (*token.Token, error) {
	s := &scanner{text: text}
	w := &wordScanner{s: s}
	for !s.eof() {
		w.step()
		if s.err != nil {
			return nil, s.err
		}
		if s.incomplete {
			return nil, ErrIncomplete
		}
	}
	t := &token.Token{Type: token.Word, Text: text, End: len(text), Line: 1, Col: 1}
	t.Parts = w.finish()
	t.Quoted = w.quoted
	t.Recompute()
	return t, nil
}

// BodyParts lexes here-document body text (and, with the same rules, the
// text of an arithmetic expansion): $, ` and \ are special, quotes are
// ordinary characters, and a backslash escapes only $, `, \ and newline.
// Unterminated constructs are taken literally rather than reported.
func BodyParts(text string) []token.Part {
	s := &scanner{text: text}
	w := &wordScanner{s: s}
	for !s.eof() {
		start := s.pos
		switch s.peek() {
		case '$':
			w.lexDollar(true)
		case '`':
			w.lexBackquote(false)
		case '\\':
			switch s.peekAt(1) {
			case '$', '`', '\\':
				s.pos += 2
				w.literal(s.text[start+1:start+2], true, false)
			case '\n':
				s.pos += 2
			default:
				s.pos++
				w.literal("\\", false, false)
			}
		default:
			i := strings.IndexAny(s.rest(), "$`\\")
			if i == -1 {
				i = len(s.rest())
			}
			w.literal(s.consume(i), false, false)
		}
		if s.err != nil || s.incomplete {
			// Treat the unterminated remainder literally.
			w.literal(text[start:], false, false)
			break
		}
	}
	return w.finish()
}
