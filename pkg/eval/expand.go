package eval

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/spk121/sh23/pkg/arith"
	"github.com/spk121/sh23/pkg/ast"
	"github.com/spk121/sh23/pkg/lex"
	"github.com/spk121/sh23/pkg/parse"
	"github.com/spk121/sh23/pkg/token"
)

// This file turns tokens into expanders: the one pass of tilde, parameter,
// command-substitution and arithmetic expansion over a token's part
// sequence. The expander machinery then performs field splitting, and
// generateFilenames does pathname expansion.

// expandWords expands command words into fields.
func (fm *frame) expandWords(toks []*token.Token) ([]string, bool) {
	var words []string
	for _, t := range toks {
		exp, ok := fm.expandToken(t)
		if !ok {
			return nil, false
		}
		if !t.NeedsExpansion && !t.NeedsGlob {
			// All-literal and free of glob characters: splitting applies
			// only to expansion results, so the token is exactly one field.
			words = append(words, exp.expandOneString())
			continue
		}
		words = append(words, fm.generateFilenames(exp.expand(fm.ifs()))...)
	}
	return words, true
}

// expandAssignments expands assignment words into name and value lists.
// The value undergoes neither field splitting nor pathname expansion.
func (fm *frame) expandAssignments(toks []*token.Token) (names, values []string, ok bool) {
	for _, t := range toks {
		name, value, ok := fm.expandAssignment(t)
		if !ok {
			return nil, nil, false
		}
		names = append(names, name)
		values = append(values, value)
	}
	return names, values, true
}

func (fm *frame) expandAssignment(t *token.Token) (name, value string, ok bool) {
	if len(t.Parts) == 0 {
		fm.diag("bug: empty assignment word")
		return "", "", false
	}
	first, isLit := t.Parts[0].(token.Literal)
	if !isLit {
		fm.diag("bug: assignment word does not start with a literal")
		return "", "", false
	}
	var rest string
	name, rest, _ = strings.Cut(first.Text, "=")
	// Expand the value: the remainder of the first literal plus all
	// following parts.
	tt := t.Clone()
	tt.Parts[0] = token.Literal{Text: rest, SingleQuoted: first.SingleQuoted, DoubleQuoted: first.DoubleQuoted}
	exp, ok := fm.expandToken(tt)
	if !ok {
		return "", "", false
	}
	return name, exp.expandOneString(), true
}

// expandToken runs expansion step 1 on a token, producing an expander.
// Runs of double-quoted parts are grouped so that expansions inside them
// are not subject to field splitting, with $@ keeping its special per
// argument behavior.
func (fm *frame) expandToken(t *token.Token) (expander, bool) {
	return fm.expandParts(t.Parts)
}

func (fm *frame) expandParts(parts []token.Part) (expander, bool) {
	c := compound{}
	for i := 0; i < len(parts); i++ {
		if partDoubleQuoted(parts[i]) {
			dq := doubleQuoted{}
			for ; i < len(parts) && partDoubleQuoted(parts[i]); i++ {
				elem, ok := fm.partElem(parts[i])
				if !ok {
					return nil, false
				}
				dq.elems = append(dq.elems, elem)
			}
			i--
			c.elems = append(c.elems, dq)
			continue
		}
		elem, ok := fm.partElem(parts[i])
		if !ok {
			return nil, false
		}
		c.elems = append(c.elems, elem)
	}
	return c, true
}

func partDoubleQuoted(p token.Part) bool {
	switch p := p.(type) {
	case token.Literal:
		return p.DoubleQuoted
	case token.Parameter:
		return p.DoubleQuoted
	case token.CmdSubst:
		return p.DoubleQuoted
	case token.Arith:
		return p.DoubleQuoted
	default:
		return false
	}
}

func (fm *frame) partElem(p token.Part) (expander, bool) {
	switch p := p.(type) {
	case token.Literal:
		if p.SingleQuoted || p.DoubleQuoted {
			return literal{p.Text}, true
		}
		return bareword{p.Text}, true
	case token.Tilde:
		// The result of tilde expansion is considered quoted and not
		// subject to further expansions.
		home, ok := fm.home(p.Prefix)
		if !ok {
			return nil, false
		}
		return literal{home}, true
	case token.Parameter:
		return fm.parameter(p.Spec)
	case token.CmdSubst:
		output, ok := fm.commandSubst(p.Body)
		if !ok {
			return nil, false
		}
		return expanded{output}, true
	case token.Arith:
		return fm.arithExpand(p.Expr)
	default:
		fm.diag("bug: unknown part type %T", p)
		return nil, false
	}
}

var (
	userCurrent = user.Current
	userLookup  = user.Lookup
)

func (fm *frame) home(uname string) (string, bool) {
	if uname == "" {
		if home, set := fm.variables.values["HOME"]; set {
			return home, true
		}
	}
	var u *user.User
	var err error
	if uname == "" {
		u, err = userCurrent()
	} else {
		u, err = userLookup(uname)
	}
	if err != nil {
		if uname == "" {
			fm.diag("can't get home of current user: %v", err)
		} else {
			fm.diag("can't get home of %v: %v", uname, err)
		}
		return "", false
	}
	return u.HomeDir, true
}

// commandSubst runs the body of $(...) or `...` in a subshell frame,
// captures its stdout and strips trailing newlines. The status is recorded
// for simple commands that consist only of assignments.
func (fm *frame) commandSubst(body string) (string, bool) {
	toks, err := lex.Tokenize(body)
	if err != nil {
		fm.diag("command substitution: syntax error: %v", err)
		return "", false
	}
	toks, err = lex.ExpandAliases(toks, fm.aliases, 0)
	if err != nil {
		fm.diag("command substitution: %v", err)
		return "", false
	}
	prog, res, err := parse.Parse(toks)
	switch res {
	case parse.Empty:
		fm.lastCmdSubstStatus = 0
		return "", true
	case parse.Incomplete:
		fm.diag("command substitution: unexpected end of input")
		return "", false
	case parse.Error:
		fm.diag("command substitution: syntax error: %v", err)
		return "", false
	}
	list := ast.Lower(prog)

	r, w, err := os.Pipe()
	if err != nil {
		fm.diag("unable to create pipe for command substitution: %v", err)
		return "", false
	}
	newFm := fm.cloneForSubshell()
	newFm.files[1] = w
	statusCh := make(chan int, 1)
	go func() {
		status, _ := newFm.list(list)
		statusCh <- status
		w.Close()
	}()
	output, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		fmt.Fprintln(fm.files[2], "read:", err)
	}
	fm.lastCmdSubstStatus = <-statusCh
	// Removal of trailing newlines happens independently of and before
	// field splitting.
	return strings.TrimRight(string(output), "\n"), true
}

// arithExpand evaluates $((expr)). The body first undergoes one round of
// parameter and command expansion, per XCU 2.6.4.
func (fm *frame) arithExpand(expr string) (expander, bool) {
	exp, ok := fm.expandParts(lex.BodyParts(expr))
	if !ok {
		return nil, false
	}
	result, err := arith.Eval(exp.expandOneString(), arithStore{fm})
	if err != nil {
		fm.diag("bad arithmetic expression: %v", err)
		return nil, false
	}
	// Arithmetic results undergo field splitting. This seems unlikely to be
	// useful, but it's specified by POSIX and implemented by dash, bash and
	// ksh: with IFS=0, echo $(( 101 )) writes "1 1".
	return expanded{strconv.FormatInt(result, 10)}, true
}
