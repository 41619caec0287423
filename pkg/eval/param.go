package eval

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/spk121/sh23/pkg/lex"
)

// Parameter expansion. The lexer stores the raw text between ${ and } (or
// the bare name after $) as the parameter spec; this file parses the spec
// into name, operator and argument at expansion time and applies the
// operator semantics of XCU 2.6.2.

type paramSpec struct {
	length bool   // ${#name}
	name   string // variable name, digits, or a special character
	op     string // "", or one of - :- = := ? :? + :+ # ## % %%
	arg    string // raw argument text, re-lexed on use
}

var paramOps = []string{":-", ":=", ":?", ":+", "##", "%%", "-", "=", "?", "+", "#", "%"}

func parseParamSpec(spec string) (paramSpec, error) {
	var ps paramSpec
	rest := spec
	if len(rest) > 1 && rest[0] == '#' && validParamName(rest[1:]) {
		// ${#name}: a length form only when the remainder is exactly a
		// parameter name, so that ${#-} and ${#} keep their meanings.
		return paramSpec{length: true, name: rest[1:]}, nil
	}
	n := paramNameLen(rest)
	if n == 0 {
		return ps, fmt.Errorf("bad parameter name in ${%v}", spec)
	}
	ps.name, rest = rest[:n], rest[n:]
	if rest == "" {
		return ps, nil
	}
	for _, op := range paramOps {
		if len(rest) >= len(op) && rest[:len(op)] == op {
			ps.op = op
			ps.arg = rest[len(op):]
			return ps, nil
		}
	}
	return ps, fmt.Errorf("bad parameter operator in ${%v}", spec)
}

// paramNameLen returns the length of the longest parameter name prefix: a
// shell name, a run of digits, or one special character.
func paramNameLen(s string) int {
	if s == "" {
		return 0
	}
	switch c := s[0]; {
	case c == '@', c == '*', c == '#', c == '?', c == '-', c == '$', c == '!':
		return 1
	case '0' <= c && c <= '9':
		i := 1
		for i < len(s) && '0' <= s[i] && s[i] <= '9' {
			i++
		}
		return i
	case c == '_', 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z':
		i := 1
		for i < len(s) && nameByte(s[i]) {
			i++
		}
		return i
	default:
		return 0
	}
}

func nameByte(c byte) bool {
	return c == '_' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9'
}

func validParamName(s string) bool {
	return s != "" && paramNameLen(s) == len(s)
}

// validVarName is stricter than validParamName: only names that can be
// assigned to.
func validVarName(s string) bool {
	if s == "" || '0' <= s[0] && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !nameByte(s[i]) {
			return false
		}
	}
	return true
}

type varInfo struct {
	set       bool
	null      bool
	normal    bool
	scalar    bool
	scalarVal string
}

func scalarVarInfo(value string, set, normal bool) varInfo {
	return varInfo{
		set:       set,
		null:      value == "",
		normal:    normal,
		scalar:    true,
		scalarVal: value,
	}
}

func (fm *frame) parameter(spec string) (expander, bool) {
	ps, err := parseParamSpec(spec)
	if err != nil {
		fm.diag("%v", err)
		return nil, false
	}
	name := ps.name

	// We categorize the suffix operators into two classes:
	//
	//   - Substitution operators: - :- = := + :+ ? :?
	//   - Trimming operators: # ## % %%
	//
	// The prefix operator # (length) is mutually exclusive with both;
	// parseParamSpec enforces that.

	// Get enough information about the parameter for the substitution
	// operators.
	var info varInfo
	if name == "*" || name == "@" {
		// POSIX doesn't specify whether $* and $@ count as set or null for
		// the substitution operators, and no two shells agree completely.
		// We interpret the tests as tests of the argument array, which is
		// consistent with our handling of ${#*} and ${#@}.
		info = varInfo{
			set:  true,
			null: len(fm.arguments) <= 1,
		}
	} else if value, set, ok := fm.specialScalarVar(name); ok {
		// Special scalar, like $#.
		info = scalarVarInfo(value, set, false)
	} else if i, err := strconv.Atoi(name); err == nil && i >= 0 {
		// Positional parameter, like $1. We also treat $0 as a positional
		// parameter instead of a special parameter, meaning that ${00} and
		// the like are allowed; this is unspecified in POSIX, but it's
		// harmless to support and makes the code slightly simpler.
		if i < len(fm.arguments) {
			info = scalarVarInfo(fm.arguments[i], true, false)
		} else {
			info = scalarVarInfo("", false, false)
		}
	} else {
		// Normal variable, like $foo.
		value, set := fm.variables.values[name]
		info = scalarVarInfo(value, set, true)
	}

	if ps.length {
		var n int
		if info.scalar {
			n = len(info.scalarVal)
		} else {
			// POSIX doesn't specify the value of ${#*} or ${#@}. Both bash
			// and zsh expand them like $#, which we follow. Dash uses the
			// length of "$*" instead.
			n = len(fm.arguments) - 1
		}
		return expanded{strconv.Itoa(n)}, true
	}

	switch ps.op {
	case "":
		// Plain value; nounset applies.
		if !info.set && fm.options.has(nounset) && name != "@" && name != "*" {
			fm.diag("%v: parameter not set", name)
			return nil, false
		}
	case "-", ":-", "=", ":=", "+", ":+":
		var useArg, assignIfUse bool
		switch ps.op {
		case "-":
			useArg = !info.set
		case ":-":
			useArg = info.null
		case "=":
			useArg = !info.set
			assignIfUse = true
		case ":=":
			useArg = info.null
			assignIfUse = true
		case "+":
			useArg = info.set
		case ":+":
			useArg = !info.null
		}
		if useArg {
			arg, ok := fm.expandModifierArg(ps.arg)
			if !ok {
				return nil, false
			}
			if assignIfUse {
				if !info.normal {
					fm.diag("cannot assign to $%v", name)
					return nil, false
				}
				if err := fm.SetVar(name, arg.expandOneString()); err != nil {
					fm.diag("%v", err)
					return nil, false
				}
			}
			return arg, true
		}
	case "?", ":?":
		bad := !info.set
		what := "unset"
		if ps.op == ":?" {
			bad = info.null
			what = "null or unset"
		}
		if bad {
			fm.complainBadVar(name, what, ps.arg)
			return nil, false
		}
	case "#", "##", "%", "%%":
		return fm.trimParam(ps, name, info)
	}

	// Expand the parameter itself.
	if info.scalar {
		return expanded{info.scalarVal}, true
	}
	return array{fm.arguments[1:], fm.ifs, name == "@"}, true
}

// trimParam implements the prefix/suffix trimming operators. The pattern
// uses the shared glob-to-regexp engine, applied to each element for $* and
// $@ and to the scalar value otherwise.
func (fm *frame) trimParam(ps paramSpec, name string, info varInfo) (expander, bool) {
	arg, ok := fm.expandModifierArg(ps.arg)
	if !ok {
		return nil, false
	}
	w := arg.expandOneWord()

	var transform func(string) string
	switch ps.op {
	case "#":
		pattern, err := regexp.Compile("^" + regexpPatternFromWord(w, true))
		if err != nil {
			fm.diag("bad pattern: %v", err)
			return nil, false
		}
		transform = func(s string) string {
			return pattern.ReplaceAllLiteralString(s, "")
		}
	case "##":
		pattern, err := regexp.Compile("^" + regexpPatternFromWord(w, false))
		if err != nil {
			fm.diag("bad pattern: %v", err)
			return nil, false
		}
		transform = func(s string) string {
			return pattern.ReplaceAllLiteralString(s, "")
		}
	case "%":
		// Go's regexp engine always prefers the leftmost match, so to
		// remove the shortest suffix it is not enough to translate * to
		// .*? and anchor the pattern at the end: the pattern must also
		// consume an arbitrary prefix as large as possible.
		pattern, err := regexp.Compile("^((?s).*)" + regexpPatternFromWord(w, true) + "$")
		if err != nil {
			fm.diag("bad pattern: %v", err)
			return nil, false
		}
		transform = func(s string) string {
			return pattern.ReplaceAllString(s, "$1")
		}
	case "%%":
		pattern, err := regexp.Compile(regexpPatternFromWord(w, false) + "$")
		if err != nil {
			fm.diag("bad pattern: %v", err)
			return nil, false
		}
		transform = func(s string) string {
			return pattern.ReplaceAllLiteralString(s, "")
		}
	}

	if name == "*" || name == "@" {
		elems := make([]string, len(fm.arguments)-1)
		for i, arg := range fm.arguments[1:] {
			elems[i] = transform(arg)
		}
		return array{elems, fm.ifs, name == "@"}, true
	}
	return expanded{transform(info.scalarVal)}, true
}

// expandModifierArg re-lexes and expands the argument of a parameter
// operator. Quoting inside the argument is honored.
func (fm *frame) expandModifierArg(arg string) (expander, bool) {
	if arg == "" {
		return compound{}, true
	}
	t, err := lex.Word(arg)
	if err != nil {
		fm.diag("bad parameter operator argument %q: %v", arg, err)
		return nil, false
	}
	return fm.expandToken(t)
}

func (fm *frame) complainBadVar(name, what, argText string) {
	arg := ""
	if exp, ok := fm.expandModifierArg(argText); ok {
		arg = exp.expandOneString()
	}
	// This intentionally uses files[2] rather than diagFile, because this
	// is not a "shell diagnostic message" and should respect active
	// redirections.
	if arg == "" {
		fmt.Fprintf(fm.files[2], "%v is %v\n", name, what)
	} else {
		fmt.Fprintf(fm.files[2], "%v is %v: %v\n", name, what, arg)
	}
}
