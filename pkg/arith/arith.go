// Package arith evaluates $(( )) arithmetic over signed 64-bit integers.
package arith

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Store is where variable reads and assignment writes go. Assignments write
// the value back as decimal text.
type Store interface {
	Get(name string) (string, bool)
	Set(name, value string) error
}

// MapStore adapts a plain map for tests and detached evaluation.
type MapStore map[string]string

func (m MapStore) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m MapStore) Set(name, value string) error {
	m[name] = value
	return nil
}

var whitespaceRegexp = regexp.MustCompile(`\s+`)

// Eval evaluates an arithmetic expression. The expression arrives with all
// expansions already performed.
func Eval(s string, store Store) (int64, error) {
	s = whitespaceRegexp.ReplaceAllLiteralString(s, "")
	p := parser{basicParser: basicParser{s, 0}, store: store}
	result, err := p.comma()
	if err == nil && !p.eof() {
		err = p.errorf("trailing content: %v", p.rest())
	}
	return result, err
}

type parser struct {
	basicParser
	store Store
	// inactive counts how deep we are inside an unevaluated branch (the
	// untaken arm of ?: or the short-circuited side of && and ||). Inside
	// such a branch assignments do not write and value errors are
	// suppressed, but syntax is still checked.
	inactive int
}

func (p *parser) errorf(format string, args ...any) error {
	// TODO: Add position
	return fmt.Errorf(format, args...)
}

// comma := assign { ',' assign }
func (p *parser) comma() (int64, error) {
	v, err := p.assign()
	for err == nil && p.consumePrefix(",") {
		v, err = p.assign()
	}
	return v, err
}

var assignOps = []string{"<<=", ">>=", "*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=", "="}

// assign := NAME assign_op assign | ternary
func (p *parser) assign() (int64, error) {
	start := p.pos
	if name := p.lvalue(); name != "" {
		op := p.consumePrefixIn(assignOps...)
		// A bare = must not be the start of ==.
		if op != "" && !(op == "=" && p.hasPrefix("=")) {
			rhs, err := p.assign()
			if err != nil {
				return 0, err
			}
			v, err := p.applyAssign(op, name, rhs)
			if err != nil {
				return 0, err
			}
			if p.inactive == 0 {
				if err := p.store.Set(name, strconv.FormatInt(v, 10)); err != nil {
					return 0, p.errorf("%s: %v", name, err)
				}
			}
			return v, nil
		}
	}
	p.pos = start
	return p.ternary()
}

// lvalue consumes a variable name, or nothing.
func (p *parser) lvalue() string {
	start := p.pos
	if p.consumeRuneIn(letterSet) == "" {
		return ""
	}
	p.consumeWhileIn(varNameSet)
	return p.text[start:p.pos]
}

func (p *parser) applyAssign(op, name string, rhs int64) (int64, error) {
	if op == "=" {
		return rhs, nil
	}
	old, err := p.value(name)
	if err != nil {
		return 0, err
	}
	switch op {
	case "+=":
		return old + rhs, nil
	case "-=":
		return old - rhs, nil
	case "*=":
		return old * rhs, nil
	case "/=", "%=":
		if rhs == 0 {
			if p.inactive > 0 {
				return 0, nil
			}
			return 0, p.errorf("division by zero")
		}
		if op == "/=" {
			return old / rhs, nil
		}
		return old % rhs, nil
	case "<<=":
		return old << uint64(rhs), nil
	case ">>=":
		return old >> uint64(rhs), nil
	case "&=":
		return old & rhs, nil
	case "^=":
		return old ^ rhs, nil
	default:
		return old | rhs, nil
	}
}

// ternary := lor [ '?' ternary ':' ternary ]
func (p *parser) ternary() (int64, error) {
	cond, err := p.lor()
	if err != nil || !p.consumePrefix("?") {
		return cond, err
	}
	a, err := p.branch(cond == 0, (*parser).ternary)
	if err != nil {
		return 0, err
	}
	if !p.consumePrefix(":") {
		return 0, p.errorf("expected : in conditional")
	}
	b, err := p.branch(cond != 0, (*parser).ternary)
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return a, nil
	}
	return b, nil
}

// branch parses with f, deactivating evaluation when skip is set.
func (p *parser) branch(skip bool, f func(*parser) (int64, error)) (int64, error) {
	if skip {
		p.inactive++
		defer func() { p.inactive-- }()
	}
	return f(p)
}

// lor := land { '||' land }
func (p *parser) lor() (int64, error) {
	v, err := p.land()
	for err == nil && p.consumePrefix("||") {
		var rhs int64
		rhs, err = p.branch(v != 0, (*parser).land)
		v = boolInt(v != 0 || rhs != 0)
	}
	return v, err
}

// land := bitor { '&&' bitor }
func (p *parser) land() (int64, error) {
	v, err := p.bitor()
	for err == nil && p.consumePrefix("&&") {
		var rhs int64
		rhs, err = p.branch(v == 0, (*parser).bitor)
		v = boolInt(v != 0 && rhs != 0)
	}
	return v, err
}

// bitor := bitxor { '|' bitxor }
func (p *parser) bitor() (int64, error) {
	v, err := p.bitxor()
	for err == nil && p.hasPrefixIn("||", "|=") == "" && p.consumePrefix("|") {
		var rhs int64
		rhs, err = p.bitxor()
		v |= rhs
	}
	return v, err
}

// bitxor := bitand { '^' bitand }
func (p *parser) bitxor() (int64, error) {
	v, err := p.bitand()
	for err == nil && !p.hasPrefix("^=") && p.consumePrefix("^") {
		var rhs int64
		rhs, err = p.bitand()
		v ^= rhs
	}
	return v, err
}

// bitand := equality { '&' equality }
func (p *parser) bitand() (int64, error) {
	v, err := p.equality()
	for err == nil && p.hasPrefixIn("&&", "&=") == "" && p.consumePrefix("&") {
		var rhs int64
		rhs, err = p.equality()
		v &= rhs
	}
	return v, err
}

// equality := relational { ('==' | '!=') relational }
func (p *parser) equality() (int64, error) {
	v, err := p.relational()
	for err == nil {
		op := p.consumePrefixIn("==", "!=")
		if op == "" {
			return v, nil
		}
		var rhs int64
		rhs, err = p.relational()
		if err == nil {
			v = boolInt(op == "==" && v == rhs || op == "!=" && v != rhs)
		}
	}
	return v, err
}

// relational := shift { ('<=' | '>=' | '<' | '>') shift }
func (p *parser) relational() (int64, error) {
	v, err := p.shift()
	for err == nil {
		var op string
		if op = p.consumePrefixIn("<=", ">="); op == "" {
			if p.hasPrefixIn("<<", ">>") != "" {
				return v, nil
			}
			if op = p.consumePrefixIn("<", ">"); op == "" {
				return v, nil
			}
		}
		var rhs int64
		rhs, err = p.shift()
		if err != nil {
			return v, err
		}
		switch op {
		case "<":
			v = boolInt(v < rhs)
		case "<=":
			v = boolInt(v <= rhs)
		case ">":
			v = boolInt(v > rhs)
		case ">=":
			v = boolInt(v >= rhs)
		}
	}
	return v, err
}

// shift := additive { ('<<' | '>>') additive }
func (p *parser) shift() (int64, error) {
	v, err := p.additive()
	for err == nil && p.hasPrefixIn("<<=", ">>=") == "" {
		op := p.consumePrefixIn("<<", ">>")
		if op == "" {
			return v, nil
		}
		var rhs int64
		rhs, err = p.additive()
		if err == nil {
			if op == "<<" {
				v <<= uint64(rhs)
			} else {
				v >>= uint64(rhs)
			}
		}
	}
	return v, err
}

// additive := multiplicative { ('+' | '-') multiplicative }
func (p *parser) additive() (int64, error) {
	v, err := p.multiplicative()
	for err == nil {
		op := p.consumePrefixIn("+", "-")
		if op == "" {
			return v, nil
		}
		var rhs int64
		rhs, err = p.multiplicative()
		if err == nil {
			if op == "+" {
				v += rhs
			} else {
				v -= rhs
			}
		}
	}
	return v, err
}

// multiplicative := unary { ('*' | '/' | '%') unary }
func (p *parser) multiplicative() (int64, error) {
	v, err := p.unary()
	for err == nil {
		op := p.consumePrefixIn("*", "/", "%")
		if op == "" {
			return v, nil
		}
		var rhs int64
		rhs, err = p.unary()
		if err != nil {
			return v, err
		}
		switch op {
		case "*":
			v *= rhs
		case "/", "%":
			if rhs == 0 {
				if p.inactive > 0 {
					v = 0
					continue
				}
				return 0, p.errorf("division by zero")
			}
			if op == "/" {
				v /= rhs
			} else {
				v %= rhs
			}
		}
	}
	return v, err
}

// unary := ('-' | '+' | '!' | '~') unary | primary
func (p *parser) unary() (int64, error) {
	switch p.consumePrefixIn("-", "+", "!", "~") {
	case "-":
		v, err := p.unary()
		return -v, err
	case "+":
		return p.unary()
	case "!":
		v, err := p.unary()
		return boolInt(v == 0), err
	case "~":
		v, err := p.unary()
		return ^v, err
	}
	return p.primary()
}

const (
	octalDigitsSet       = "01234567"
	decimalDigitsSet     = octalDigitsSet + "89"
	hexadecimalDigitsSet = decimalDigitsSet + "abcdefABCDEF"
	letterSet            = "_ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// POSIX doesn't specify whether special variables like $# should be supported
// in arithmetic expressions without the $, like "$(( # + 1 ))". Bash and dash
// don't; we don't either.
const varNameSet = "0123456789" + letterSet

// primary := '(' comma ')' | literal | NAME
func (p *parser) primary() (int64, error) {
	if p.consumePrefix("(") {
		v, err := p.comma()
		if err == nil && !p.consumePrefix(")") {
			err = p.errorf("unclosed (")
		}
		return v, err
	} else if p.consumePrefixIn("0x", "0X") != "" {
		s := p.consumeWhileIn(hexadecimalDigitsSet)
		if s == "" {
			return 0, p.errorf("empty hexadecimal literal")
		}
		return strconv.ParseInt(s, 16, 64)
	} else if p.consumePrefix("0") {
		s := p.consumeWhileIn(octalDigitsSet)
		if s == "" {
			// Just 0
			return 0, nil
		}
		return strconv.ParseInt(s, 8, 64)
	} else if s := p.consumeWhileIn(decimalDigitsSet); s != "" {
		return strconv.ParseInt(s, 10, 64)
	} else if name := p.lvalue(); name != "" {
		return p.value(name)
	}
	return 0, p.errorf("can't parse an operand")
}

// value reads a variable as a number.
func (p *parser) value(name string) (int64, error) {
	value, _ := p.store.Get(name)
	if value == "" {
		// Not defined in POSIX, but all of dash, bash and zsh treat unset
		// and empty variables as 0.
		return 0, nil
	} else if n, ok := parseNum(value); ok {
		// This is the only case defined by POSIX - a variable containing a
		// valid literal.
		return n, nil
	}
	if p.inactive > 0 {
		return 0, nil
	}
	// When the value is non-empty but can't be parsed as a number, dash
	// errors, while bash and zsh evaluate the content as another arithmetic
	// expression recursively. We follow dash for simplicity.
	return 0, p.errorf("$%s not a number: %q", name, value)
}

// Parses a number. We don't use strconv.ParseInt(s, 0, 64) in order to ensure
// consistency with how literals are parsed.
func parseNum(s string) (int64, bool) {
	var neg bool
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		s = s[1:]
		neg = true
	}

	var n int64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err = strconv.ParseInt(s[2:], 16, 64)
	} else if strings.HasPrefix(s, "0") {
		if s == "0" {
			// +0 and -0 are also just 0
			return 0, true
		}
		n, err = strconv.ParseInt(s[1:], 8, 64)
	} else {
		n, err = strconv.ParseInt(s, 10, 64)
	}
	if neg {
		n = -n
	}
	return n, err == nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
