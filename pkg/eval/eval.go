// Package eval implements the back half of the shell: the stores, the word
// expander and the executor that walks the execution AST.
package eval

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spk121/sh23/pkg/ast"
	"github.com/spk121/sh23/pkg/lex"
	"github.com/spk121/sh23/pkg/parse"
)

// Evaler holds interpreter state that survives across Eval calls: the
// stores, the option set and the file table.
type Evaler struct {
	st    *state
	files []*os.File
}

// state is the store bundle shared by all frames of one shell (or of one
// subshell after a deep clone).
type state struct {
	arguments []string // $0 plus positional parameters
	variables variables
	functions map[string]*ast.FuncDef
	aliases   *aliasStore
	options   options
	traps     *trapStore

	// Used for $?.
	lastPipelineStatus int
	// Job id of the last background item, for $!. Background items run as
	// goroutines in this process, so the ids are shell-local job numbers
	// rather than kernel pids.
	lastBgJob int
	jobs      map[int]*bgJob
	nextJob   int

	// Set by the exit special builtin; the driver decides whether the
	// process dies.
	exited bool
}

type bgJob struct {
	id     int
	done   chan struct{}
	status int
}

var StdFiles = []*os.File{os.Stdin, os.Stdout, os.Stderr}

// NewEvaler creates an interpreter. args[0] is the shell or script name
// used for $0; files must contain at least stdin, stdout and stderr.
func NewEvaler(args []string, files []*os.File) *Evaler {
	if len(args) < 1 {
		panic("args must have at least 1 element")
	}
	if len(files) < 3 {
		panic("files must have at least 3 elements")
	}
	return &Evaler{
		st: &state{
			arguments: cloneSlice(args),
			variables: initVariablesFromEnv(os.Environ()),
			functions: make(map[string]*ast.FuncDef),
			aliases:   newAliasStore(),
			traps:     newTrapStore(),
			jobs:      make(map[int]*bgJob),
			nextJob:   1,
		},
		files: cloneSlice(files),
	}
}

// SetOption sets a long option by name, as with set -o/+o.
func (ev *Evaler) SetOption(name string, on bool) bool {
	bit, ok := optionByName[name]
	if !ok {
		return false
	}
	ev.st.options = ev.st.options.with(bit, on)
	return true
}

// SetShortOption sets a short option letter, as with set -e etc.
func (ev *Evaler) SetShortOption(letter byte, on bool) bool {
	bit, ok := optionByLetter[letter]
	if !ok {
		return false
	}
	ev.st.options = ev.st.options.with(bit, on)
	return true
}

// Exited reports whether the exit builtin has run.
func (ev *Evaler) Exited() bool { return ev.st.exited }

// LastStatus returns $?.
func (ev *Evaler) LastStatus() int { return ev.st.lastPipelineStatus }

// Aliases exposes the alias store for drivers that run the lexer and
// parser themselves.
func (ev *Evaler) Aliases() lex.Aliases { return ev.st.aliases }

// Getenv returns the value of a shell variable, or fallback if it is unset.
func (ev *Evaler) Getenv(name, fallback string) string {
	if value, set := ev.st.variables.values[name]; set {
		return value
	}
	return fallback
}

// Eval runs one input unit through the whole pipeline: lex, alias
// substitution, parse, lower, execute. Incomplete input is a syntax error
// here; interactive drivers should run the front half themselves and call
// EvalProgram only on complete units.
func (ev *Evaler) Eval(code string) int {
	if ev.st.options.has(verbose) {
		fmt.Fprint(ev.files[2], code)
	}
	toks, err := lex.Tokenize(code)
	if err != nil {
		fmt.Fprintln(ev.files[2], "syntax error:", err)
		return StatusSyntaxError
	}
	toks, err = lex.ExpandAliases(toks, ev.st.aliases, 0)
	if err != nil {
		fmt.Fprintln(ev.files[2], "alias error:", err)
		return StatusSyntaxError
	}
	prog, res, err := parse.Parse(toks)
	switch res {
	case parse.Empty:
		return 0
	case parse.Incomplete:
		fmt.Fprintln(ev.files[2], "syntax error: unexpected end of input")
		return StatusSyntaxError
	case parse.Error:
		fmt.Fprintln(ev.files[2], "syntax error:", err)
		return StatusSyntaxError
	}
	return ev.EvalProgram(prog)
}

// EvalProgram lowers and executes an already parsed program.
func (ev *Evaler) EvalProgram(prog *parse.Program) int {
	list := ast.Lower(prog)
	if ev.st.options.has(noexec) {
		return 0
	}
	fm := ev.frame()
	status, ok := fm.list(list)
	if !ok && fm.fnAbort {
		// A return outside any function returns from the input unit.
		fm.fnAbort = false
	}
	ev.st.lastPipelineStatus = status
	// Keep FDs persisted by exec or {name} redirections.
	ev.files = fm.files
	if ev.st.exited {
		ev.runExitTrap()
	}
	return status
}

// Finalize runs the EXIT trap if one is set and it has not run yet. Drivers
// call this once before the process exits normally.
func (ev *Evaler) Finalize() {
	ev.runExitTrap()
}

func (ev *Evaler) runExitTrap() {
	action := ev.st.traps.exitAction()
	if action == "" {
		return
	}
	ev.frame().evalTrapAction(action)
}

func (ev *Evaler) frame() *frame {
	return &frame{
		state:    ev.st,
		files:    ev.files,
		diagFile: ev.files[2],
	}
}

// frame is the per-evaluation execution context. The embedded state is
// shared with the Evaler (and mutated in place); the remaining fields are
// local to one evaluation and are reset or cloned at subshell boundaries.
type frame struct {
	*state
	files []*os.File
	// POSIX requires all cases except "special built-in utility error" and
	// "other utility (not a special built-in) error" to print a shell
	// diagnostic message to stderr, ignoring all active redirections. We
	// save the initial stderr in this field for that purpose.
	diagFile *os.File
	// Used as the status of simple commands with only assignments.
	lastCmdSubstStatus int
	// The following two fields implement break/continue inside
	// for/while/until loops:
	//
	//   - loopDepth is maintained by the loops and stores the number of
	//     enclosing loops. It is examined by break/continue to decide which
	//     loop to act on.
	//
	//   - loopAbort is set by break/continue and examined by the loops,
	//     which act when loopAbort.dest matches the current depth.
	//
	// The implementation is purely dynamic: it does not know which loops
	// lexically enclose the break/continue command. POSIX leaves
	// unspecified whether break/continue should act on non-lexically
	// enclosing loops, so this behavior is compliant.
	loopDepth int
	loopAbort *loopAbort
	// Function call depth and the return-in-progress flag.
	fnDepth int
	fnAbort bool
	// Incremented while evaluating contexts in which errexit is suppressed
	// (conditions, non-final and-or operands, negated pipelines).
	condDepth int
}

type loopAbort struct {
	dest int  // destination value of loopDepth
	next bool // true for continue, false for break
}

func (fm *frame) cloneForSubshell() *frame {
	st := &state{
		arguments: cloneSlice(fm.arguments),
		variables: fm.variables.clone(),
		functions: cloneMap(fm.functions),
		aliases:   fm.aliases.clone(),
		options:   fm.options,
		traps:     fm.traps.cloneForSubshell(),
		// POSIX doesn't explicitly specify whether subshells inherit $?,
		// but dash, bash, ksh and zsh all let them, so we follow.
		lastPipelineStatus: fm.lastPipelineStatus,
		lastBgJob:          fm.lastBgJob,
		jobs:               cloneMap(fm.jobs),
		nextJob:            fm.nextJob,
	}
	return &frame{
		state:    st,
		files:    cloneSlice(fm.files),
		diagFile: fm.diagFile,
	}
}

// Prints a shell diagnostic message.
func (fm *frame) diag(format string, args ...any) {
	fmt.Fprintf(fm.diagFile, "sh23: "+format+"\n", args...)
}

func (fm *frame) badCommandLine(format string, args ...any) {
	fm.diag(format, args...)
}

// The rest of this file contains methods on (*frame) that implement the
// execution of commands. They return (int, bool); the boolean flag is false
// iff there was a fatal error, one that should abort the evaluation
// process. This includes all the "shall exit" errors in the
// "non-interactive shell" column of the table in XCU 2.8.1:
//
//   - Shell language syntax error (handled in Eval)
//   - Special built-in utility error
//   - Redirection error with special built-in utilities
//   - Variable assignment error
//   - Expansion error
//
// The following errors can be fatal depending on options:
//
//   - Eligible non-zero exit statuses when errexit is active
//   - File already exists when noclobber is active
//
// The following errors don't abort evaluation:
//
//   - Other utility (not a special built-in) error
//   - Redirection error with compound commands, functions or non-special
//     utilities
//   - Command not found
//
// Regardless of whether the error is fatal, the site that generates it
// prints a suitable message. break, continue, return and exit travel
// through the same ok=false channel, with the frame fields recording which
// construct should catch them.

func (fm *frame) list(l *ast.List) (int, bool) {
	var lastStatus int
	for _, item := range l.Items {
		fm.runPendingTraps()
		if item.Sep == ast.Background {
			fm.startBackground(item.Cmd)
			lastStatus = 0
			fm.lastPipelineStatus = 0
			continue
		}
		status, ok := fm.node(item.Cmd)
		fm.lastPipelineStatus = status
		if !ok {
			return status, false
		}
		if status != 0 && fm.options.has(errexit) && fm.condDepth == 0 && !negatedPipeline(item.Cmd) {
			return status, false
		}
		lastStatus = status
	}
	return lastStatus, true
}

func negatedPipeline(n ast.Node) bool {
	p, ok := n.(*ast.Pipeline)
	return ok && p.Negated
}

func (fm *frame) startBackground(n ast.Node) {
	job := &bgJob{id: fm.nextJob, done: make(chan struct{})}
	fm.nextJob++
	fm.jobs[job.id] = job
	fm.lastBgJob = job.id
	newFm := fm.cloneForSubshell()
	// Background commands read from /dev/null unless redirected.
	if devNull, err := os.Open(os.DevNull); err == nil {
		newFm.files[0] = devNull
	}
	go func() {
		job.status, _ = newFm.node(n)
		close(job.done)
	}()
}

func (fm *frame) node(n ast.Node) (int, bool) {
	switch n := n.(type) {
	case *ast.List:
		return fm.list(n)
	case *ast.AndOr:
		return fm.andOr(n)
	case *ast.Pipeline:
		return fm.pipeline(n)
	case *ast.SimpleCommand:
		return fm.runSimple(n)
	case *ast.FuncDef:
		fm.functions[n.Name] = n
		return 0, true
	case *ast.Subshell:
		return fm.withRedirs(n.Redirs, func() (int, bool) {
			return fm.cloneForSubshell().list(n.Body)
		})
	case *ast.BraceGroup:
		return fm.withRedirs(n.Redirs, func() (int, bool) {
			return fm.list(n.Body)
		})
	case *ast.If:
		return fm.withRedirs(n.Redirs, func() (int, bool) {
			return fm.runIf(n)
		})
	case *ast.While:
		return fm.withRedirs(n.Redirs, func() (int, bool) {
			return fm.runWhileUntil(n.Cond, n.Body, true)
		})
	case *ast.Until:
		return fm.withRedirs(n.Redirs, func() (int, bool) {
			return fm.runWhileUntil(n.Cond, n.Body, false)
		})
	case *ast.For:
		return fm.withRedirs(n.Redirs, func() (int, bool) {
			return fm.runFor(n)
		})
	case *ast.Case:
		return fm.withRedirs(n.Redirs, func() (int, bool) {
			return fm.runCase(n)
		})
	default:
		fm.diag("bug: unknown node type %T", n)
		return StatusShellBug, false
	}
}

// withRedirs applies redirections attached to a compound command, runs the
// body, and restores the FD table. A redirection error on a compound
// command is not fatal.
func (fm *frame) withRedirs(rds []*ast.Redirect, body func() (int, bool)) (int, bool) {
	if len(rds) == 0 {
		return body()
	}
	status, ok, restore := fm.applyRedirs(rds, false)
	defer restore()
	if status != 0 {
		return status, ok
	}
	return body()
}

func (fm *frame) andOr(ao *ast.AndOr) (int, bool) {
	var lastStatus int
	for i, cmd := range ao.Cmds {
		if i > 0 && shouldSkipAndOr(ao.Ops[i-1], lastStatus) {
			continue
		}
		if i < len(ao.Cmds)-1 {
			fm.condDepth++
		}
		status, ok := fm.node(cmd)
		if i < len(ao.Cmds)-1 {
			fm.condDepth--
		}
		fm.lastPipelineStatus = status
		if !ok {
			return status, false
		}
		lastStatus = status
	}
	return lastStatus, true
}

func shouldSkipAndOr(op ast.AndOrOp, lastStatus int) bool {
	return (op == ast.AndThen && lastStatus != 0) || (op == ast.OrElse && lastStatus == 0)
}

func (fm *frame) pipeline(pl *ast.Pipeline) (int, bool) {
	if pl.Negated {
		fm.condDepth++
		defer func() { fm.condDepth-- }()
	}
	n := len(pl.Cmds)
	var lastStatus int
	var lastOK bool
	statuses := make([]int, n)
	if n == 1 {
		lastStatus, lastOK = fm.node(pl.Cmds[0])
		statuses[0] = lastStatus
	} else {
		pipes := make([][2]*os.File, n-1)
		for i := 0; i < n-1; i++ {
			r, w, err := os.Pipe()
			if err != nil {
				// How to handle failure to create pipes is not covered by
				// POSIX. We report it but treat it as a non-fatal error so
				// that the script may recover.
				for j := 0; j < i; j++ {
					pipes[j][0].Close()
					pipes[j][1].Close()
				}
				fm.diag("unable to create pipe for pipeline: %v", err)
				return StatusPipeError, true
			}
			pipes[i][0], pipes[i][1] = r, w
		}

		var wg sync.WaitGroup
		wg.Add(n)
		for i, cmd := range pl.Cmds {
			var newFm *frame
			if i < n-1 {
				newFm = fm.cloneForSubshell()
				newFm.files[1] = pipes[i][1]
			} else {
				files := cloneSlice(fm.files)
				defer func() { fm.files = files }()
				newFm = fm
			}
			if i > 0 {
				newFm.files[0] = pipes[i-1][0]
			}
			go func(i int, cmd ast.Node) {
				status, ok := newFm.node(cmd)
				statuses[i] = status
				// All but the last stage run in a subshell, so even fatal
				// errors in them don't terminate evaluation.
				if i == n-1 {
					lastStatus, lastOK = status, ok
				}
				// Close the pipe ends wired to this stage. Use the files
				// stored in pipes rather than newFm.files because the
				// latter may have been changed by redirections.
				if i > 0 {
					pipes[i-1][0].Close()
				}
				if i < n-1 {
					pipes[i][1].Close()
				}
				wg.Done()
			}(i, cmd)
		}
		wg.Wait()
	}
	status := lastStatus
	if fm.options.has(pipefail) {
		// The pipeline fails with the status of its first failing stage.
		for _, s := range statuses {
			if s != 0 {
				status = s
				break
			}
		}
	}
	if pl.Negated {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status, lastOK
}

func (fm *frame) runIf(n *ast.If) (int, bool) {
	fm.condDepth++
	status, ok := fm.list(n.Cond)
	fm.condDepth--
	if !ok {
		return status, false
	}
	if status == 0 {
		return fm.list(n.Then)
	}
	if n.Else != nil {
		return fm.node(n.Else)
	}
	return 0, true
}

func (fm *frame) runWhileUntil(cond, body *ast.List, wantZero bool) (int, bool) {
	lastStatus := 0
	for {
		fm.condDepth++
		status, ok := fm.list(cond)
		fm.condDepth--
		if !ok {
			return status, false
		}
		if (status == 0) != wantZero {
			break
		}
		status, ok, breaking := fm.runLoopBody(body)
		if breaking {
			return 0, true
		}
		if !ok {
			return status, false
		}
		lastStatus = status
	}
	return lastStatus, true
}

func (fm *frame) runFor(n *ast.For) (int, bool) {
	var values []string
	if !n.HasIn {
		values = fm.arguments[1:]
	} else {
		var ok bool
		values, ok = fm.expandWords(n.Words)
		if !ok {
			return StatusExpansionError, false
		}
	}
	var lastStatus int
	for _, value := range values {
		if err := fm.SetVar(n.Name, value); err != nil {
			fm.diag("%v", err)
			return StatusAssignmentError, false
		}
		status, ok, breaking := fm.runLoopBody(n.Body)
		if breaking {
			return 0, true
		}
		if !ok {
			return status, false
		}
		lastStatus = status
	}
	return lastStatus, true
}

// Runs a loop body and handles break/continue if it targets this loop:
// break causes the last return value to be true; continue is turned into
// (0, true).
func (fm *frame) runLoopBody(body *ast.List) (status int, ok, breaking bool) {
	fm.loopDepth++
	status, ok = fm.list(body)
	fm.loopDepth--
	if !ok && fm.loopAbort != nil && fm.loopAbort.dest == fm.loopDepth {
		abort := fm.loopAbort
		fm.loopAbort = nil
		if abort.next {
			return 0, true, false
		}
		return 0, true, true
	}
	return status, ok, false
}

func (fm *frame) runCase(n *ast.Case) (int, bool) {
	exp, ok := fm.expandToken(n.Word)
	if !ok {
		return StatusExpansionError, false
	}
	subject := exp.expandOneString()
	for i, item := range n.Items {
		matched := false
		for _, pat := range item.Patterns {
			exp, ok := fm.expandToken(pat)
			if !ok {
				return StatusExpansionError, false
			}
			re, err := regexp.Compile("^" + regexpPatternFromWord(exp.expandOneWord(), false) + "$")
			if err != nil {
				fm.diag("bad case pattern: %v", err)
				return StatusExpansionError, false
			}
			if re.MatchString(subject) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		// Run the matched body, then fall through to subsequent bodies
		// without re-matching for as long as the item ends in ;&.
		var lastStatus int
		for j := i; j < len(n.Items); j++ {
			status, ok := fm.list(n.Items[j].Body)
			if !ok {
				return status, false
			}
			lastStatus = status
			if n.Items[j].Action != ast.Fallthrough {
				break
			}
		}
		return lastStatus, true
	}
	// No pattern matched.
	return 0, true
}

func (fm *frame) runSimple(c *ast.SimpleCommand) (int, bool) {
	// See comment on the code path using this field.
	fm.lastCmdSubstStatus = 0
	fm.runPendingTraps()

	words, ok := fm.expandWords(c.Words)
	if !ok {
		return StatusExpansionError, false
	}

	assignNames, assignValues, ok := fm.expandAssignments(c.Assigns)
	if !ok {
		return StatusExpansionError, false
	}

	if fm.options.has(xtrace) {
		fm.xtrace(assignNames, assignValues, words)
	}

	if len(words) == 0 {
		// Assignments with no command name apply to the current scope.
		status, ok, restore := fm.applyRedirs(c.Redirs, false)
		restore()
		if status != 0 {
			return status, ok
		}
		for i, name := range assignNames {
			if err := fm.SetVar(name, assignValues[i]); err != nil {
				fm.diag("%v", err)
				return StatusAssignmentError, false
			}
		}
		// XCU 2.9.1: with no command name, the command completes with the
		// exit status of the last command substitution performed, or 0.
		return fm.lastCmdSubstStatus, true
	}

	// exec is resolved before the generic dispatch: its redirections
	// persist, and its command form replaces the process image. Prefix
	// assignments persist as for any special builtin.
	if words[0] == "exec" {
		for i, name := range assignNames {
			if err := fm.SetVar(name, assignValues[i]); err != nil {
				fm.diag("%v", err)
				return StatusAssignmentError, false
			}
		}
		return fm.runExec(c, words[1:])
	}

	if _, isSpecial := specialBuiltins[words[0]]; isSpecial {
		// Assignments preceding a special builtin persist, and redirection
		// errors are fatal (XCU 2.14).
		for i, name := range assignNames {
			if err := fm.SetVar(name, assignValues[i]); err != nil {
				fm.diag("%v", err)
				return StatusAssignmentError, false
			}
		}
		status, _, restore := fm.applyRedirs(c.Redirs, false)
		defer restore()
		if status != 0 {
			return status, false
		}
		return fm.invoke(words, false)
	}

	// For everything else assignments are temporary and exported, and
	// redirection errors are not fatal.
	restoreVars, err := fm.pushAssignments(assignNames, assignValues)
	if err != nil {
		fm.diag("%v", err)
		return StatusAssignmentError, false
	}
	defer restoreVars()
	status, ok, restore := fm.applyRedirs(c.Redirs, false)
	defer restore()
	if status != 0 {
		return status, ok
	}
	return fm.invoke(words, false)
}

// invoke dispatches an expanded argv in the order special builtin >
// function > builtin > external, per XCU 2.9.1. With skipFuncs (used by the
// command builtin) functions are bypassed.
func (fm *frame) invoke(words []string, skipFuncs bool) (int, bool) {
	if builtin, ok := specialBuiltins[words[0]]; ok {
		return builtin(fm, words[1:])
	}
	if !skipFuncs {
		if fn, ok := fm.functions[words[0]]; ok {
			return fm.callFunction(fn, words)
		}
	}
	if builtin, ok := builtins[words[0]]; ok {
		return builtin(fm, words[1:]), true
	}
	return fm.runExternal(words)
}

func (fm *frame) callFunction(fn *ast.FuncDef, words []string) (int, bool) {
	status, ok, restore := fm.applyRedirs(fn.Redirs, false)
	defer restore()
	if status != 0 {
		return status, ok
	}
	oldArgs := fm.arguments
	fm.arguments = append([]string{fm.arguments[0]}, words[1:]...)
	fm.fnDepth++
	status, ok = fm.node(fn.Body)
	fm.fnDepth--
	fm.arguments = oldArgs
	if !ok && fm.fnAbort {
		fm.fnAbort = false
		return status, true
	}
	return status, ok
}

func (fm *frame) runExternal(words []string) (int, bool) {
	path, errStatus := fm.lookPath(words[0])
	if errStatus != 0 {
		if errStatus == StatusCommandNotFound {
			fm.diag("%v: command not found", words[0])
		} else {
			fm.diag("%v: not executable", words[0])
		}
		return errStatus, true
	}
	argv := cloneSlice(words)
	argv[0] = path

	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Files: fm.files,
		Env:   fm.variables.serializeEnvEntries(),
	})
	if err != nil {
		fm.diag("%v: %v", words[0], err)
		return StatusCommandNotExecutable, true
	}

	st, err := proc.Wait()
	if err != nil {
		fm.diag("error waiting for %v: %v", words[0], err)
		return StatusWaitError, true
	}
	if st.Exited() {
		return st.ExitCode(), true
	}
	waitStatus := st.Sys().(syscall.WaitStatus)
	if waitStatus.Signaled() {
		return StatusSignalBase + int(waitStatus.Signal()), true
	}
	return StatusWaitOther, true
}

func (fm *frame) xtrace(assignNames, assignValues, words []string) {
	var sb strings.Builder
	sb.WriteString("+")
	for i, name := range assignNames {
		sb.WriteString(" " + name + "=" + assignValues[i])
	}
	for _, w := range words {
		sb.WriteString(" " + w)
	}
	fmt.Fprintln(fm.diagFile, sb.String())
}

// runPendingTraps converts received signals into queued actions and runs
// them. $? is preserved across trap actions.
func (fm *frame) runPendingTraps() {
	fm.traps.queuePending()
	pending := fm.traps.takePending()
	if len(pending) == 0 {
		return
	}
	saved := fm.lastPipelineStatus
	for _, action := range pending {
		fm.evalTrapAction(action)
	}
	fm.lastPipelineStatus = saved
}

// evalTrapAction runs trap action text through the full pipeline in the
// current frame.
func (fm *frame) evalTrapAction(action string) (int, bool) {
	return fm.evalText(action, "trap")
}

// evalText lexes, parses, lowers and runs code in the current frame. Used
// by trap actions, the eval builtin and the dot builtin.
func (fm *frame) evalText(code, what string) (int, bool) {
	toks, err := lex.Tokenize(code)
	if err != nil {
		fm.diag("%v: syntax error: %v", what, err)
		return StatusSyntaxError, false
	}
	toks, err = lex.ExpandAliases(toks, fm.aliases, 0)
	if err != nil {
		fm.diag("%v: %v", what, err)
		return StatusSyntaxError, false
	}
	prog, res, err := parse.Parse(toks)
	switch res {
	case parse.Empty:
		return 0, true
	case parse.Incomplete:
		fm.diag("%v: syntax error: unexpected end of input", what)
		return StatusSyntaxError, false
	case parse.Error:
		fm.diag("%v: syntax error: %v", what, err)
		return StatusSyntaxError, false
	}
	return fm.list(ast.Lower(prog))
}

func (fm *frame) ifs() string {
	ifs, set := fm.variables.values["IFS"]
	if !set {
		return " \t\n"
	}
	return ifs
}

// specialScalarVar resolves the scalar special parameters.
func (fm *frame) specialScalarVar(name string) (value string, set, ok bool) {
	switch name {
	case "#":
		return strconv.Itoa(len(fm.arguments) - 1), true, true
	case "?":
		return strconv.Itoa(fm.lastPipelineStatus), true, true
	case "-":
		return fm.options.letters(), true, true
	case "$":
		return strconv.Itoa(os.Getpid()), true, true
	case "!":
		if fm.lastBgJob == 0 {
			return "", false, true
		}
		return strconv.Itoa(fm.lastBgJob), true, true
	default:
		return "", false, false
	}
}
