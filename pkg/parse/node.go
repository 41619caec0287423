// Package parse implements the POSIX shell grammar over the token stream
// produced by the lexer and the alias pass. The tree it builds (the "grammar
// tree") mirrors the grammar one production per node; lowering to the
// execution AST is a separate pass.
package parse

import "github.com/spk121/sh23/pkg/token"

// Program is the root node: a sequence of complete commands.
type Program struct {
	Commands []*CompleteCommand
}

// CompleteCommand is one complete_command production. The trailing separator
// of the command, if any, is recorded on the final list item.
type CompleteCommand struct {
	List *List
}

// List is a sequence of and-or lists with separators.
type List struct {
	Items []*ListItem
}

// ListItem pairs an and-or list with the separator that followed it: Semi,
// Amp, or zero when the item was terminated by a newline or end of input.
type ListItem struct {
	AndOr *AndOr
	Sep   token.Type
}

// AndOr is a sequence of pipelines joined by && and ||. Ops[i] joins
// Pipelines[i] and Pipelines[i+1].
type AndOr struct {
	Pipelines []*Pipeline
	Ops       []token.Type
}

// Pipeline is a pipe sequence with an optional leading !.
type Pipeline struct {
	Bang     bool
	Commands []*Command
}

// Command is one command production: exactly one of the three fields is set.
type Command struct {
	Simple   *SimpleCommand
	Compound *CompoundCommand
	FuncDef  *FuncDef
}

// SimpleCommand borrows its word tokens from the token stream.
type SimpleCommand struct {
	Assigns []*token.Token
	Words   []*token.Token
	Redirs  []*Redirect
}

// CompoundCommand is one of the compound command variants, with any
// redirections attached after its closing word.
type CompoundCommand struct {
	Brace    *BraceGroup
	Subshell *Subshell
	If       *IfClause
	While    *WhileClause
	Until    *UntilClause
	For      *ForClause
	Case     *CaseClause
	Redirs   []*Redirect
}

type BraceGroup struct {
	Body *List
}

type Subshell struct {
	Body *List
}

type IfClause struct {
	Cond  *List
	Then  *List
	Elifs []*ElifArm
	Else  *List // nil if no else part
}

type ElifArm struct {
	Cond *List
	Then *List
}

type WhileClause struct {
	Cond *List
	Body *List
}

type UntilClause struct {
	Cond *List
	Body *List
}

// ForClause: a nil Words with HasIn false means the implicit "$@" list.
type ForClause struct {
	Name  string
	HasIn bool
	Words []*token.Token
	Body  *List
}

type CaseClause struct {
	Word  *token.Token
	Items []*CaseItem
}

// CaseTerm is the terminator of a case item.
type CaseTerm int

const (
	TermNone        CaseTerm = iota // last item, no terminator
	TermBreak                       // ;;
	TermFallthrough                 // ;&
)

func (t CaseTerm) String() string {
	switch t {
	case TermBreak:
		return ";;"
	case TermFallthrough:
		return ";&"
	}
	return ""
}

type CaseItem struct {
	Patterns []*token.Token
	Body     *List
	Term     CaseTerm
}

type FuncDef struct {
	Name string
	Body *CompoundCommand
}

// Redirect is one io_redirect production. IoNumber is -1 when absent; IoLoc
// is the name from a {name} prefix. For here-documents, Heredoc aliases the
// body collected by the lexer and Target is the delimiter word.
type Redirect struct {
	IoNumber int
	IoLoc    string
	Op       token.Type
	Target   *token.Token
	Heredoc  *token.Heredoc
}
