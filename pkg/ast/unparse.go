package ast

import (
	"strconv"
	"strings"
)

// Print renders an execution tree back to shell source. Word tokens carry
// their exact source text, so printing a lowered tree and lowering the
// output again yields a structurally equal tree. The layout is line
// oriented: every list item ends in a newline, which is also where pending
// here-document bodies are emitted.
func Print(l *List) string {
	p := &printer{}
	p.list(l)
	return p.b.String()
}

type printer struct {
	b        strings.Builder
	heredocs []*Redirect
}

func (p *printer) write(ss ...string) {
	for _, s := range ss {
		p.b.WriteString(s)
	}
}

// newline ends the current line and flushes here-document bodies queued on
// it.
func (p *printer) newline() {
	p.write("\n")
	for _, r := range p.heredocs {
		if r.Body != nil {
			p.write(r.Body.Body)
			if r.Body.Body != "" && !strings.HasSuffix(r.Body.Body, "\n") {
				p.write("\n")
			}
			p.write(r.Body.Delim, "\n")
		}
	}
	p.heredocs = nil
}

func (p *printer) list(l *List) {
	for _, item := range l.Items {
		p.node(item.Cmd)
		switch item.Sep {
		case Background:
			p.write(" &")
		case Sequential:
			p.write(" ;")
		}
		p.newline()
	}
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case *SimpleCommand:
		p.simple(n)
	case *Pipeline:
		if n.Negated {
			p.write("! ")
		}
		for i, c := range n.Cmds {
			if i > 0 {
				p.write(" | ")
			}
			p.node(c)
		}
	case *AndOr:
		for i, c := range n.Cmds {
			if i > 0 {
				p.write(" ", n.Ops[i-1].String(), " ")
			}
			p.node(c)
		}
	case *Subshell:
		p.write("(")
		p.newline()
		p.list(n.Body)
		p.write(")")
		p.redirs(n.Redirs)
	case *BraceGroup:
		p.write("{")
		p.newline()
		p.list(n.Body)
		p.write("}")
		p.redirs(n.Redirs)
	case *If:
		p.ifChain(n, "if")
		p.write("fi")
		p.redirs(n.Redirs)
	case *While:
		p.write("while")
		p.newline()
		p.list(n.Cond)
		p.write("do")
		p.newline()
		p.list(n.Body)
		p.write("done")
		p.redirs(n.Redirs)
	case *Until:
		p.write("until")
		p.newline()
		p.list(n.Cond)
		p.write("do")
		p.newline()
		p.list(n.Body)
		p.write("done")
		p.redirs(n.Redirs)
	case *For:
		p.write("for ", n.Name)
		if n.HasIn {
			p.write(" in")
			for _, w := range n.Words {
				p.write(" ", w.Text)
			}
		}
		p.newline()
		p.write("do")
		p.newline()
		p.list(n.Body)
		p.write("done")
		p.redirs(n.Redirs)
	case *Case:
		p.write("case ", n.Word.Text, " in")
		p.newline()
		for _, item := range n.Items {
			p.write("(")
			for i, pat := range item.Patterns {
				if i > 0 {
					p.write("|")
				}
				p.write(pat.Text)
			}
			p.write(")")
			p.newline()
			p.list(item.Body)
			if item.Action == Fallthrough {
				p.write(";&")
			} else {
				p.write(";;")
			}
			p.newline()
		}
		p.write("esac")
		p.redirs(n.Redirs)
	case *FuncDef:
		p.write(n.Name, " () ")
		p.node(n.Body)
		p.redirs(n.Redirs)
	case *List:
		p.write("{")
		p.newline()
		p.list(n)
		p.write("}")
	}
}

func (p *printer) ifChain(n *If, kw string) {
	p.write(kw)
	p.newline()
	p.list(n.Cond)
	p.write("then")
	p.newline()
	p.list(n.Then)
	switch e := n.Else.(type) {
	case *If:
		p.ifChain(e, "elif")
	case *List:
		p.write("else")
		p.newline()
		p.list(e)
	}
}

func (p *printer) simple(sc *SimpleCommand) {
	first := true
	sep := func() {
		if !first {
			p.write(" ")
		}
		first = false
	}
	for _, a := range sc.Assigns {
		sep()
		p.write(a.Text)
	}
	for _, w := range sc.Words {
		sep()
		p.write(w.Text)
	}
	for _, r := range sc.Redirs {
		sep()
		p.redir(r)
	}
}

func (p *printer) redirs(rds []*Redirect) {
	for _, r := range rds {
		p.write(" ")
		p.redir(r)
	}
}

func (p *printer) redir(r *Redirect) {
	if r.IoLoc != "" {
		p.write("{", r.IoLoc, "}")
	} else if r.FD >= 0 {
		p.write(strconv.Itoa(r.FD))
	}
	p.write(r.Op.String())
	if r.Target != nil {
		p.write(r.Target.Text)
	}
	if r.Kind == Buffer {
		p.heredocs = append(p.heredocs, r)
	}
}
