// Package ast defines the execution tree the evaluator runs, and the
// lowering pass that builds it from the grammar tree. Unlike the grammar
// tree, the execution tree owns its tokens (they are deep-cloned in) and
// collapses degenerate wrappers, so a bare command is a SimpleCommand node,
// not a pipeline of one.
package ast

import "github.com/spk121/sh23/pkg/token"

// Node is an execution tree node. The set of implementations is closed.
type Node interface{ node() }

func (*SimpleCommand) node() {}
func (*Pipeline) node()      {}
func (*AndOr) node()         {}
func (*List) node()          {}
func (*Subshell) node()      {}
func (*BraceGroup) node()    {}
func (*If) node()            {}
func (*While) node()         {}
func (*Until) node()         {}
func (*For) node()           {}
func (*Case) node()          {}
func (*FuncDef) node()       {}

// Separator says how a list item was terminated.
type Separator int

const (
	// Sequential: the item was followed by ";".
	Sequential Separator = iota
	// Background: the item was followed by "&".
	Background
	// End: the item was the last of its line or input.
	End
)

func (s Separator) String() string {
	switch s {
	case Sequential:
		return ";"
	case Background:
		return "&"
	}
	return ""
}

// List is a sequence of commands with per-item separators. It is also the
// body type of every compound command.
type List struct {
	Items []ListItem
}

type ListItem struct {
	Cmd Node
	Sep Separator
}

// AndOr chains two or more commands with && and ||. Ops[i] joins Cmds[i]
// and Cmds[i+1].
type AndOr struct {
	Cmds []Node
	Ops  []AndOrOp
}

type AndOrOp int

const (
	AndThen AndOrOp = iota // &&
	OrElse                 // ||
)

func (op AndOrOp) String() string {
	if op == AndThen {
		return "&&"
	}
	return "||"
}

// Pipeline connects two or more commands, or negates one. A pipeline of one
// command without negation never appears; lowering collapses it.
type Pipeline struct {
	Negated bool
	Cmds    []Node
}

// SimpleCommand is a command word sequence with optional assignment prefix
// and redirections. Words are unexpanded tokens.
type SimpleCommand struct {
	Assigns []*token.Token
	Words   []*token.Token
	Redirs  []*Redirect
}

type Subshell struct {
	Body   *List
	Redirs []*Redirect
}

type BraceGroup struct {
	Body   *List
	Redirs []*Redirect
}

// If holds one condition arm; elif chains lower to a nested If in Else.
// Else is a *List for a plain else part, an *If for an elif, or nil.
type If struct {
	Cond   *List
	Then   *List
	Else   Node
	Redirs []*Redirect
}

type While struct {
	Cond   *List
	Body   *List
	Redirs []*Redirect
}

type Until struct {
	Cond   *List
	Body   *List
	Redirs []*Redirect
}

// For iterates Name over Words. When HasIn is false the loop iterates over
// the positional parameters and Words is nil.
type For struct {
	Name   string
	HasIn  bool
	Words  []*token.Token
	Body   *List
	Redirs []*Redirect
}

type Case struct {
	Word   *token.Token
	Items  []*CaseItem
	Redirs []*Redirect
}

// CaseAction says what happens after a matching item's body runs.
type CaseAction int

const (
	// Break: stop matching (";;" or the final item).
	Break CaseAction = iota
	// Fallthrough: run the next item's body without matching (";&").
	Fallthrough
)

type CaseItem struct {
	Patterns []*token.Token
	Body     *List
	Action   CaseAction
}

// FuncDef registers Name with a compound command body when executed.
type FuncDef struct {
	Name   string
	Body   Node
	Redirs []*Redirect
}

// RedirOp is the semantic operation of a redirection.
type RedirOp int

const (
	Read            RedirOp = iota // <
	Write                          // >
	Append                         // >>
	DupIn                          // <&
	DupOut                         // >&
	ReadWrite                      // <>
	WriteForce                     // >|
	FromBuffer                     // <<
	FromBufferStrip                // <<-
)

var redirOpNames = [...]string{"<", ">", ">>", "<&", ">&", "<>", ">|", "<<", "<<-"}

func (op RedirOp) String() string { return redirOpNames[op] }

// OperandKind classifies the redirection target.
type OperandKind int

const (
	// File: the target expands to a pathname.
	File OperandKind = iota
	// FDTarget: the target is a file descriptor number to duplicate.
	FDTarget
	// Close: the target is "-", closing the descriptor.
	Close
	// Buffer: the here-document body in Body.
	Buffer
)

// Redirect is a classified redirection. FD is the descriptor being
// redirected, or -1 for the operator's default (0 for input forms, 1 for
// output forms). IoLoc carries a {name} prefix. For Kind FDTarget the
// numeric target is in TargetFD.
type Redirect struct {
	Op       RedirOp
	Kind     OperandKind
	FD       int
	IoLoc    string
	Target   *token.Token
	TargetFD int
	Body     *token.Heredoc
}
