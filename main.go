package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"src.elv.sh/pkg/diag"
	"src.elv.sh/pkg/sys"

	"github.com/spk121/sh23/pkg/eval"
	"github.com/spk121/sh23/pkg/lex"
	"github.com/spk121/sh23/pkg/parse"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

const usageText = `usage: sh23 [options] [--] [script [args...]]
       sh23 [options] -c command_string [arg0 [args...]]
       sh23 [options] -s [args...]`

func usage() int {
	fmt.Fprintln(os.Stderr, usageText)
	return eval.StatusBadCommandLine
}

func run(args []string) int {
	var (
		cmdString   string
		haveCmd     bool
		fromStdin   bool
		interactive bool
	)
	var shortOpts []struct {
		letter byte
		on     bool
	}
	var longOpts []struct {
		name string
		on   bool
	}

	i := 0
parseArgs:
	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			i++
			break parseArgs
		case arg == "-c":
			if i+1 == len(args) {
				fmt.Fprintln(os.Stderr, "sh23: -c requires an argument")
				return usage()
			}
			i++
			cmdString, haveCmd = args[i], true
		case arg == "-s":
			fromStdin = true
		case arg == "-i":
			interactive = true
		case arg == "-o" || arg == "+o":
			if i+1 == len(args) {
				fmt.Fprintf(os.Stderr, "sh23: %v requires an argument\n", arg)
				return usage()
			}
			i++
			longOpts = append(longOpts, struct {
				name string
				on   bool
			}{args[i], arg == "-o"})
		case len(arg) > 1 && (arg[0] == '-' || arg[0] == '+'):
			for j := 1; j < len(arg); j++ {
				shortOpts = append(shortOpts, struct {
					letter byte
					on     bool
				}{arg[j], arg[0] == '-'})
			}
		default:
			break parseArgs
		}
	}
	operands := args[i:]

	name := "sh23"
	scriptArgs := operands
	script := ""
	switch {
	case haveCmd:
		if len(operands) > 0 {
			name, scriptArgs = operands[0], operands[1:]
		}
	case fromStdin || len(operands) == 0:
	default:
		script, scriptArgs = operands[0], operands[1:]
		name = script
	}

	ev := eval.NewEvaler(append([]string{name}, scriptArgs...), eval.StdFiles)
	for _, opt := range shortOpts {
		if !ev.SetShortOption(opt.letter, opt.on) {
			fmt.Fprintf(os.Stderr, "sh23: bad option -%c\n", opt.letter)
			return usage()
		}
	}
	for _, opt := range longOpts {
		if !ev.SetOption(opt.name, opt.on) {
			fmt.Fprintf(os.Stderr, "sh23: bad option %v\n", opt.name)
			return usage()
		}
	}

	switch {
	case haveCmd:
		status := doEval(ev, "command string", cmdString)
		ev.Finalize()
		return status
	case script != "":
		code, err := os.ReadFile(script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sh23: %v: %v\n", script, err)
			return eval.StatusCommandNotFound
		}
		status := doEval(ev, script, string(code))
		ev.Finalize()
		return status
	case interactive || !fromStdin && sys.IsATTY(os.Stdin.Fd()):
		return repl(ev)
	default:
		code, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sh23: %v\n", err)
			return 1
		}
		status := doEval(ev, "stdin", string(code))
		ev.Finalize()
		return status
	}
}

// doEval runs one batch input through lex, alias substitution, parse and
// execution, rendering syntax errors with their source context.
func doEval(ev *eval.Evaler, name, code string) int {
	toks, err := lex.Tokenize(code)
	if err != nil {
		showSyntaxError(name, code, err)
		return eval.StatusSyntaxError
	}
	toks, err = lex.ExpandAliases(toks, ev.Aliases(), 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sh23: %v: %v\n", name, err)
		return eval.StatusSyntaxError
	}
	prog, res, err := parse.Parse(toks)
	switch res {
	case parse.Empty:
		return 0
	case parse.Incomplete:
		fmt.Fprintf(os.Stderr, "sh23: %v: syntax error: unexpected end of input\n", name)
		return eval.StatusSyntaxError
	case parse.Error:
		showSyntaxError(name, code, err)
		return eval.StatusSyntaxError
	}
	return ev.EvalProgram(prog)
}

// showSyntaxError prints a lex or parse error and, when the error carries a
// position, the source line it points into.
func showSyntaxError(name, code string, err error) {
	var line, col int
	var msg string
	switch e := err.(type) {
	case *lex.Error:
		line, col, msg = e.Line, e.Col, e.Msg
	case *parse.ParseError:
		line, col, msg = e.Line, e.Col, e.Msg
	default:
		fmt.Fprintf(os.Stderr, "sh23: %v: syntax error: %v\n", name, err)
		return
	}
	fmt.Fprintf(os.Stderr, "sh23: %v: %v: %v\n", name, line, msg)
	ctx := diag.NewContext(name, code, diag.PointRanging(offsetOf(code, line, col)))
	fmt.Fprintf(os.Stderr, "  %v\n", ctx.ShowCompact("  "))
}

// offsetOf converts a 1-based line and column to a byte offset into code.
func offsetOf(code string, line, col int) int {
	offset := 0
	for line > 1 && offset < len(code) {
		if code[offset] == '\n' {
			line--
		}
		offset++
	}
	offset += col - 1
	if offset > len(code) {
		offset = len(code)
	}
	return offset
}

// repl reads and runs one complete command unit at a time. A unit that the
// lexer or parser reports as incomplete is continued on the next line with
// the PS2 prompt. SIGINT discards the unit being accumulated and returns
// to the main prompt; a mere Notify keeps the default disposition for
// spawned commands.
func repl(ev *eval.Evaler) int {
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	defer signal.Stop(sigint)

	stdin := bufio.NewReader(os.Stdin)
	lx := lex.NewLexer()
	for {
		fmt.Fprint(os.Stderr, prompt(ev, lx.Input() != ""))
		input, err := stdin.ReadString('\n')
		select {
		case <-sigint:
			lx = lex.NewLexer()
		default:
		}
		lx.Feed(input)
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "sh23: %v\n", err)
			}
			break
		}
		if replStep(ev, lx) {
			lx = lex.NewLexer()
		}
		if ev.Exited() {
			break
		}
	}
	ev.Finalize()
	return ev.LastStatus()
}

// replStep tries to run the accumulated input as one unit. It reports
// whether the unit is finished, successfully or not; an incomplete unit
// waits for more lines.
func replStep(ev *eval.Evaler, lx *lex.Lexer) bool {
	toks, err := lx.Tokenize()
	if err == lex.ErrIncomplete {
		return false
	}
	if err != nil {
		showSyntaxError("input", lx.Input(), err)
		return true
	}
	toks, err = lex.ExpandAliases(toks, ev.Aliases(), 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sh23: %v\n", err)
		return true
	}
	prog, res, err := parse.Parse(toks)
	switch res {
	case parse.Incomplete:
		return false
	case parse.Error:
		showSyntaxError("input", lx.Input(), err)
		return true
	case parse.OK:
		ev.EvalProgram(prog)
	}
	return true
}

func prompt(ev *eval.Evaler, continuation bool) string {
	if continuation {
		return ev.Getenv("PS2", "> ")
	}
	return ev.Getenv("PS1", "$ ")
}
