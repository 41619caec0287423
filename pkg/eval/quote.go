package eval

import "strings"

// quoteValue quotes s so that reading it back through the lexer yields s as
// a single word. Of the backslash-escaped, double-quoted and single-quoted
// renderings, the shortest applicable one wins, preferring them in that
// order on a tie.
func quoteValue(s string) string {
	if s == "" {
		return "''"
	}
	candidates := make([]string, 0, 3)
	if b, ok := backslashQuote(s); ok {
		candidates = append(candidates, b)
	}
	candidates = append(candidates, doubleQuote(s))
	if !strings.Contains(s, "'") {
		candidates = append(candidates, "'"+s+"'")
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c) < len(best) {
			best = c
		}
	}
	return best
}

// bareSafe reports whether b may appear unquoted without being special to
// the shell.
func bareSafe(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	}
	return strings.IndexByte("%+,-./:=@_^", b) >= 0
}

func backslashQuote(s string) (string, bool) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\n' {
			// A backslash-newline is a line continuation, not an escaped
			// newline, so this rendering cannot represent s.
			return "", false
		}
		if !bareSafe(b) {
			sb.WriteByte('\\')
		}
		sb.WriteByte(b)
	}
	return sb.String(), true
}

func doubleQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '$' || b == '`' || b == '"' || b == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(b)
	}
	sb.WriteByte('"')
	return sb.String()
}
