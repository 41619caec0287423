package ast

import (
	"strconv"

	"github.com/spk121/sh23/pkg/parse"
	"github.com/spk121/sh23/pkg/token"
)

// Lower rewrites a grammar tree into an execution tree. The rewrite is
// total and deterministic. Complete commands fuse into one list, with each
// command's trailing separator recorded on its item. All tokens are cloned,
// so the execution tree stays valid if the caller reuses the token slice.
func Lower(p *parse.Program) *List {
	l := &List{}
	for _, cc := range p.Commands {
		if cc.List == nil {
			continue
		}
		for _, item := range cc.List.Items {
			l.Items = append(l.Items, ListItem{
				Cmd: lowerAndOr(item.AndOr),
				Sep: lowerSep(item.Sep),
			})
		}
	}
	return l
}

func lowerSep(t token.Type) Separator {
	switch t {
	case token.Semi:
		return Sequential
	case token.Amp:
		return Background
	}
	return End
}

func lowerAndOr(ao *parse.AndOr) Node {
	if len(ao.Pipelines) == 1 {
		return lowerPipeline(ao.Pipelines[0])
	}
	n := &AndOr{}
	for _, pl := range ao.Pipelines {
		n.Cmds = append(n.Cmds, lowerPipeline(pl))
	}
	for _, op := range ao.Ops {
		if op == token.AndIf {
			n.Ops = append(n.Ops, AndThen)
		} else {
			n.Ops = append(n.Ops, OrElse)
		}
	}
	return n
}

func lowerPipeline(pl *parse.Pipeline) Node {
	if len(pl.Commands) == 1 && !pl.Bang {
		return lowerCommand(pl.Commands[0])
	}
	n := &Pipeline{Negated: pl.Bang}
	for _, c := range pl.Commands {
		n.Cmds = append(n.Cmds, lowerCommand(c))
	}
	return n
}

func lowerCommand(c *parse.Command) Node {
	switch {
	case c.Simple != nil:
		return lowerSimple(c.Simple)
	case c.FuncDef != nil:
		return &FuncDef{Name: c.FuncDef.Name, Body: lowerCompound(c.FuncDef.Body)}
	default:
		return lowerCompound(c.Compound)
	}
}

func lowerSimple(sc *parse.SimpleCommand) Node {
	n := &SimpleCommand{
		Assigns: cloneTokens(sc.Assigns),
		Words:   cloneTokens(sc.Words),
		Redirs:  lowerRedirs(sc.Redirs),
	}
	return n
}

func lowerCompound(cc *parse.CompoundCommand) Node {
	redirs := lowerRedirs(cc.Redirs)
	switch {
	case cc.Brace != nil:
		return &BraceGroup{Body: lowerList(cc.Brace.Body), Redirs: redirs}
	case cc.Subshell != nil:
		return &Subshell{Body: lowerList(cc.Subshell.Body), Redirs: redirs}
	case cc.If != nil:
		return lowerIf(cc.If, redirs)
	case cc.While != nil:
		return &While{Cond: lowerList(cc.While.Cond), Body: lowerList(cc.While.Body), Redirs: redirs}
	case cc.Until != nil:
		return &Until{Cond: lowerList(cc.Until.Cond), Body: lowerList(cc.Until.Body), Redirs: redirs}
	case cc.For != nil:
		f := cc.For
		return &For{
			Name:   f.Name,
			HasIn:  f.HasIn,
			Words:  cloneTokens(f.Words),
			Body:   lowerList(f.Body),
			Redirs: redirs,
		}
	default:
		return lowerCase(cc.Case, redirs)
	}
}

func lowerIf(ic *parse.IfClause, redirs []*Redirect) Node {
	n := &If{Cond: lowerList(ic.Cond), Then: lowerList(ic.Then), Redirs: redirs}
	// Build the elif chain inside out: each elif is an If in the Else slot.
	tail := n
	for _, arm := range ic.Elifs {
		elif := &If{Cond: lowerList(arm.Cond), Then: lowerList(arm.Then)}
		tail.Else = elif
		tail = elif
	}
	if ic.Else != nil {
		tail.Else = lowerList(ic.Else)
	}
	return n
}

func lowerCase(cc *parse.CaseClause, redirs []*Redirect) Node {
	n := &Case{Word: cc.Word.Clone(), Redirs: redirs}
	for _, item := range cc.Items {
		action := Break
		if item.Term == parse.TermFallthrough {
			action = Fallthrough
		}
		n.Items = append(n.Items, &CaseItem{
			Patterns: cloneTokens(item.Patterns),
			Body:     lowerList(item.Body),
			Action:   action,
		})
	}
	return n
}

func lowerList(l *parse.List) *List {
	n := &List{}
	if l == nil {
		return n
	}
	for _, item := range l.Items {
		n.Items = append(n.Items, ListItem{
			Cmd: lowerAndOr(item.AndOr),
			Sep: lowerSep(item.Sep),
		})
	}
	return n
}

var redirOps = map[token.Type]RedirOp{
	token.Less:      Read,
	token.Great:     Write,
	token.DGreat:    Append,
	token.LessAnd:   DupIn,
	token.GreatAnd:  DupOut,
	token.LessGreat: ReadWrite,
	token.Clobber:   WriteForce,
	token.DLess:     FromBuffer,
	token.DLessDash: FromBufferStrip,
}

func lowerRedirs(rds []*parse.Redirect) []*Redirect {
	var out []*Redirect
	for _, rd := range rds {
		out = append(out, lowerRedir(rd))
	}
	return out
}

func lowerRedir(rd *parse.Redirect) *Redirect {
	n := &Redirect{
		Op:       redirOps[rd.Op],
		FD:       rd.IoNumber,
		IoLoc:    rd.IoLoc,
		TargetFD: -1,
	}
	if rd.Target != nil {
		n.Target = rd.Target.Clone()
	}
	switch n.Op {
	case FromBuffer, FromBufferStrip:
		n.Kind = Buffer
		if rd.Heredoc != nil {
			body := *rd.Heredoc
			n.Body = &body
		}
	case DupIn, DupOut:
		n.Kind = classifyDup(rd.Target, n)
	default:
		n.Kind = File
	}
	return n
}

// classifyDup splits the dup forms: "-" closes, a digit string duplicates
// that descriptor, and anything else is treated as a pathname.
func classifyDup(target *token.Token, n *Redirect) OperandKind {
	if target == nil {
		return File
	}
	text, ok := target.SingleLiteral()
	if !ok {
		// "1" in >&1>x lexes as an io number for the redirection after it.
		if target.Type != token.IoNumber {
			return File
		}
		text = target.Text
	}
	if text == "-" {
		return Close
	}
	if fd, err := strconv.Atoi(text); err == nil && fd >= 0 {
		n.TargetFD = fd
		return FDTarget
	}
	return File
}

func cloneTokens(toks []*token.Token) []*token.Token {
	var out []*token.Token
	for _, t := range toks {
		out = append(out, t.Clone())
	}
	return out
}
