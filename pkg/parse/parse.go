package parse

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/spk121/sh23/pkg/token"
)

// Result is the overall outcome of a parse.
type Result int

const (
	// OK: the input parsed to a non-empty program.
	OK Result = iota
	// Incomplete: the input ended where more input could complete a
	// construct (if without fi, and so on). Interactive callers should read
	// more and re-parse.
	Incomplete
	// Empty: the input contained no commands.
	Empty
	// Error: a grammar violation; the returned error has position info.
	Error
)

// ParseError is a grammar error with position information.
type ParseError struct {
	Line, Col int
	Msg       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v:%v: %v", e.Line, e.Col, e.Msg)
}

// Parse parses a token sequence (which must end with an EOF token, as
// produced by the lexer) into a grammar tree. The tree borrows tokens from
// the input slice.
func Parse(toks []*token.Token) (*Program, Result, error) {
	if len(toks) == 0 {
		return &Program{}, Empty, nil
	}
	p := &parser{toks: toks}
	prog := p.program()
	switch {
	case p.err != nil:
		return prog, Error, p.err
	case p.incomplete:
		return prog, Incomplete, nil
	case len(prog.Commands) == 0:
		return prog, Empty, nil
	}
	return prog, OK, nil
}

type parser struct {
	toks       []*token.Token
	i          int
	incomplete bool
	err        *ParseError
}

func (p *parser) cur() *token.Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.i]
}

func (p *parser) next() *token.Token {
	t := p.cur()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) peek(off int) *token.Token {
	if p.i+off >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+off]
}

func (p *parser) at(t token.Type) bool { return p.cur().Type == t }

func (p *parser) take(t token.Type) bool {
	if p.at(t) {
		p.next()
		return true
	}
	return false
}

// keyword returns the reserved word at the current token, if any. Only
// unquoted single-literal words are eligible; the token itself is not
// re-typed, since the same word is ordinary in other positions.
func (p *parser) keyword() (token.Type, bool) {
	name, ok := p.cur().SingleLiteral()
	if !ok {
		return 0, false
	}
	return token.Keyword(name)
}

// keywordAt reports whether the current token is the reserved word kw.
func (p *parser) keywordAt(kw token.Type) bool {
	t, ok := p.keyword()
	return ok && t == kw
}

func (p *parser) takeKeyword(kw token.Type) bool {
	if p.keywordAt(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) failf(format string, args ...any) {
	if p.err != nil || p.incomplete {
		return
	}
	t := p.cur()
	p.err = &ParseError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

// expect records an error for a missing terminal; at end of input the parse
// is incomplete rather than wrong.
func (p *parser) expect(what string) {
	if p.at(token.EOF) {
		p.incomplete = true
		return
	}
	p.failf("expected %v, found %v", what, p.describe(p.cur()))
}

func (p *parser) describe(t *token.Token) string {
	if t.Type == token.Word || t.Type == token.AssignmentWord {
		return fmt.Sprintf("%q", t.Text)
	}
	return fmt.Sprintf("%q", t.Type.String())
}

func (p *parser) bad() bool { return p.err != nil || p.incomplete }

// newlines skips any run of newline tokens.
func (p *parser) newlines() bool {
	seen := false
	for p.take(token.Newline) {
		seen = true
	}
	return seen
}

// Reserved words in command position that terminate an enclosing list.
var listStoppers = map[token.Type]bool{
	token.Then: true, token.Else: true, token.Elif: true, token.Fi: true,
	token.Do: true, token.Done: true, token.Esac: true, token.Rbrace: true,
}

// mayStartCommand reports whether the current token can begin a command.
func (p *parser) mayStartCommand() bool {
	t := p.cur()
	switch t.Type {
	case token.Word:
		if kw, ok := p.keyword(); ok && listStoppers[kw] {
			return false
		}
		return true
	case token.AssignmentWord, token.IoNumber, token.IoLocation, token.Lparen:
		return true
	}
	return t.Type.IsRedirOp()
}

// program := linebreak [ complete_command { newline_list complete_command } ] linebreak
func (p *parser) program() *Program {
	prog := &Program{}
	p.newlines()
	for !p.at(token.EOF) && !p.bad() {
		if !p.mayStartCommand() {
			p.failf("unexpected token %v", p.describe(p.cur()))
			break
		}
		cc := &CompleteCommand{List: p.list()}
		if cc.List != nil && len(cc.List.Items) > 0 {
			prog.Commands = append(prog.Commands, cc)
		}
		if p.bad() {
			break
		}
		if !p.at(token.EOF) && !p.newlines() {
			p.failf("unexpected token %v", p.describe(p.cur()))
			break
		}
	}
	return prog
}

// list := and_or { separator_op and_or } [ separator_op ]
func (p *parser) list() *List {
	l := &List{}
	for {
		ao := p.andOr()
		if p.bad() {
			return l
		}
		item := &ListItem{AndOr: ao}
		l.Items = append(l.Items, item)
		switch {
		case p.take(token.Semi):
			item.Sep = token.Semi
		case p.take(token.Amp):
			item.Sep = token.Amp
		default:
			return l
		}
		if !p.mayStartCommand() {
			return l
		}
	}
}

// and_or := pipeline { ('&&' | '||') linebreak pipeline }
func (p *parser) andOr() *AndOr {
	ao := &AndOr{}
	ao.Pipelines = append(ao.Pipelines, p.pipeline())
	for !p.bad() {
		var op token.Type
		switch {
		case p.take(token.AndIf):
			op = token.AndIf
		case p.take(token.OrIf):
			op = token.OrIf
		default:
			return ao
		}
		ao.Ops = append(ao.Ops, op)
		p.newlines()
		if !p.mayStartCommand() {
			p.expect("a command")
			return ao
		}
		ao.Pipelines = append(ao.Pipelines, p.pipeline())
	}
	return ao
}

// pipeline := ['!'] command { '|' linebreak command }
func (p *parser) pipeline() *Pipeline {
	pl := &Pipeline{}
	// ! is promoted only at the start of a pipeline.
	if p.takeKeyword(token.Bang) {
		pl.Bang = true
	}
	pl.Commands = append(pl.Commands, p.command())
	for !p.bad() && p.take(token.Pipe) {
		p.newlines()
		if !p.mayStartCommand() {
			p.expect("a command")
			return pl
		}
		pl.Commands = append(pl.Commands, p.command())
	}
	return pl
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// command := simple_command | compound_command redirect_list | function_definition
func (p *parser) command() *Command {
	c := &Command{}
	switch {
	case p.at(token.Lparen):
		c.Compound = p.compound()
	case p.keywordAt(token.Lbrace), p.keywordAt(token.If), p.keywordAt(token.While),
		p.keywordAt(token.Until), p.keywordAt(token.For), p.keywordAt(token.Case):
		c.Compound = p.compound()
	default:
		// Function definition: NAME '(' ')' look-ahead.
		if name, ok := p.cur().SingleLiteral(); ok && namePattern.MatchString(name) &&
			p.peek(1).Type == token.Lparen && p.peek(2).Type == token.Rparen {
			p.next()
			p.next()
			p.next()
			p.newlines()
			c.FuncDef = &FuncDef{Name: name, Body: p.compound()}
			return c
		}
		c.Simple = p.simple()
	}
	return c
}

func (p *parser) compound() *CompoundCommand {
	cc := &CompoundCommand{}
	switch {
	case p.take(token.Lparen):
		cc.Subshell = &Subshell{Body: p.compoundList()}
		if !p.take(token.Rparen) {
			p.expect(`")"`)
		}
	case p.takeKeyword(token.Lbrace):
		cc.Brace = &BraceGroup{Body: p.compoundList()}
		if !p.takeKeyword(token.Rbrace) {
			p.expect(`"}"`)
		}
	case p.takeKeyword(token.If):
		cc.If = p.ifClause()
	case p.takeKeyword(token.While):
		cond, body := p.loopClause()
		cc.While = &WhileClause{Cond: cond, Body: body}
	case p.takeKeyword(token.Until):
		cond, body := p.loopClause()
		cc.Until = &UntilClause{Cond: cond, Body: body}
	case p.takeKeyword(token.For):
		cc.For = p.forClause()
	case p.takeKeyword(token.Case):
		cc.Case = p.caseClause()
	default:
		p.expect("a compound command")
		return cc
	}
	// Trailing redirections attach to the whole compound command.
	for !p.bad() && p.atRedirect() {
		cc.Redirs = append(cc.Redirs, p.redirect())
	}
	return cc
}

// compound_list := linebreak term [ separator ]
func (p *parser) compoundList() *List {
	p.newlines()
	l := &List{}
	for p.mayStartCommand() && !p.bad() {
		ao := p.andOr()
		if p.bad() {
			return l
		}
		item := &ListItem{AndOr: ao}
		l.Items = append(l.Items, item)
		switch {
		case p.take(token.Semi):
			item.Sep = token.Semi
		case p.take(token.Amp):
			item.Sep = token.Amp
		}
		p.newlines()
	}
	return l
}

func (p *parser) ifClause() *IfClause {
	ic := &IfClause{Cond: p.compoundList()}
	if !p.takeKeyword(token.Then) {
		p.expect(`"then"`)
		return ic
	}
	ic.Then = p.compoundList()
	for p.takeKeyword(token.Elif) {
		arm := &ElifArm{Cond: p.compoundList()}
		if !p.takeKeyword(token.Then) {
			p.expect(`"then"`)
			return ic
		}
		arm.Then = p.compoundList()
		ic.Elifs = append(ic.Elifs, arm)
	}
	if p.takeKeyword(token.Else) {
		ic.Else = p.compoundList()
	}
	if !p.takeKeyword(token.Fi) {
		p.expect(`"fi"`)
	}
	return ic
}

func (p *parser) loopClause() (cond, body *List) {
	cond = p.compoundList()
	body = p.doGroup()
	return cond, body
}

func (p *parser) doGroup() *List {
	if !p.takeKeyword(token.Do) {
		p.expect(`"do"`)
		return &List{}
	}
	l := p.compoundList()
	if !p.takeKeyword(token.Done) {
		p.expect(`"done"`)
	}
	return l
}

func (p *parser) forClause() *ForClause {
	fc := &ForClause{}
	name, ok := p.cur().SingleLiteral()
	if !ok || !namePattern.MatchString(name) {
		p.expect("a variable name")
		return fc
	}
	p.next()
	fc.Name = name
	p.newlines()
	// "in" is recognized only here, gated by the for production.
	if p.takeKeyword(token.In) {
		fc.HasIn = true
		for p.at(token.Word) || p.at(token.AssignmentWord) {
			fc.Words = append(fc.Words, p.next())
		}
		if !p.take(token.Semi) && !p.newlines() && !p.keywordAt(token.Do) {
			p.expect(`";" or a newline`)
			return fc
		}
		p.newlines()
	} else {
		p.take(token.Semi)
		p.newlines()
	}
	fc.Body = p.doGroup()
	return fc
}

func (p *parser) caseClause() *CaseClause {
	cc := &CaseClause{}
	if !p.at(token.Word) && !p.at(token.AssignmentWord) {
		p.expect("a word")
		return cc
	}
	cc.Word = p.next()
	p.newlines()
	if !p.takeKeyword(token.In) {
		p.expect(`"in"`)
		return cc
	}
	p.newlines()
	for !p.bad() {
		if p.takeKeyword(token.Esac) {
			return cc
		}
		if p.at(token.EOF) {
			p.incomplete = true
			return cc
		}
		item := &CaseItem{}
		p.take(token.Lparen)
		for {
			if !p.at(token.Word) && !p.at(token.AssignmentWord) {
				p.expect("a pattern")
				return cc
			}
			item.Patterns = append(item.Patterns, p.next())
			if !p.take(token.Pipe) {
				break
			}
		}
		if !p.take(token.Rparen) {
			p.expect(`")"`)
			return cc
		}
		item.Body = p.compoundList()
		switch {
		case p.take(token.DSemi):
			item.Term = TermBreak
		case p.take(token.SemiAmp):
			item.Term = TermFallthrough
		default:
			// No terminator: this must be the last item.
			item.Term = TermNone
			cc.Items = append(cc.Items, item)
			p.newlines()
			if !p.takeKeyword(token.Esac) {
				p.expect(`"esac"`)
			}
			return cc
		}
		cc.Items = append(cc.Items, item)
		p.newlines()
	}
	return cc
}

func (p *parser) atRedirect() bool {
	t := p.cur()
	return t.Type.IsRedirOp() || t.Type == token.IoNumber || t.Type == token.IoLocation
}

func (p *parser) redirect() *Redirect {
	rd := &Redirect{IoNumber: -1}
	switch p.cur().Type {
	case token.IoNumber:
		t := p.next()
		n, err := strconv.Atoi(t.Text)
		if err != nil {
			p.failf("io number %v is too large", t.Text)
			return rd
		}
		rd.IoNumber = n
	case token.IoLocation:
		rd.IoLoc = p.next().IoLoc
	}
	op := p.cur()
	if !op.Type.IsRedirOp() {
		p.expect("a redirection operator")
		return rd
	}
	p.next()
	rd.Op = op.Type
	rd.Heredoc = op.Heredoc
	switch p.cur().Type {
	case token.Word, token.AssignmentWord, token.IoNumber, token.IoLocation:
		rd.Target = p.next()
	default:
		p.expect("a redirection target")
	}
	return rd
}

// simple_command := cmd_prefix [ cmd_word cmd_suffix ]
func (p *parser) simple() *SimpleCommand {
	sc := &SimpleCommand{}
	// Prefix: assignment words and redirections.
	for !p.bad() {
		switch {
		case p.at(token.AssignmentWord):
			sc.Assigns = append(sc.Assigns, p.next())
		case p.atRedirect():
			sc.Redirs = append(sc.Redirs, p.redirect())
		default:
			goto suffix
		}
	}
suffix:
	// Command word and suffix: words and redirections. Reserved words are
	// ordinary arguments past command position.
	for !p.bad() {
		switch {
		case p.at(token.Word), p.at(token.AssignmentWord):
			sc.Words = append(sc.Words, p.next())
		case p.atRedirect():
			sc.Redirs = append(sc.Redirs, p.redirect())
		default:
			if len(sc.Assigns) == 0 && len(sc.Words) == 0 && len(sc.Redirs) == 0 {
				p.failf("expected a command, found %v", p.describe(p.cur()))
			}
			return sc
		}
	}
	return sc
}
