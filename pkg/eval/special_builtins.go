package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/spk121/sh23/pkg/ast"
)

// Special builtins (XCU 2.14). They differ from regular builtins in that
// their prefix assignments persist, their redirection errors are fatal, and
// most of their own errors make a non-interactive shell exit; hence the
// (status, ok) return. The exec builtin is dispatched separately because it
// needs the unexpanded command node for its redirections.
var specialBuiltins = map[string]func(*frame, []string) (int, bool){
	":":        colonCmd,
	"break":    breakCmd,
	"continue": continueCmd,
	"exit":     exitCmd,
	"export":   exportCmd,
	"readonly": readonlyCmd,
	"return":   returnCmd,
	"set":      setCmd,
	"shift":    shiftCmd,
	"times":    timesCmd,
	"trap":     trapCmd,
	"unset":    unsetCmd,
}

func init() {
	// eval and . run commands, so they refer to methods that depend on
	// specialBuiltins; initialize them here to avoid dependency cycle.
	specialBuiltins["eval"] = evalCmd
	specialBuiltins["."] = dotCmd
}

func colonCmd(fm *frame, args []string) (int, bool) {
	return 0, true
}

// dotCmd reads and runs a script in the current environment. A name with no
// slash is searched on PATH; unlike command search, the file only needs to
// be readable.
func dotCmd(fm *frame, args []string) (int, bool) {
	if len(args) == 0 {
		fm.diag(".: filename argument required")
		return StatusBadCommandLine, false
	}
	name := args[0]
	path := name
	if !strings.Contains(name, "/") {
		pathVar := fm.variables.values["PATH"]
		found := false
		for _, dir := range filepath.SplitList(pathVar) {
			if dir == "" {
				dir = "."
			}
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			fm.diag(".: %v: not found", name)
			return StatusCommandNotFound, false
		}
	}
	code, err := os.ReadFile(path)
	if err != nil {
		fm.diag(".: %v: %v", name, err)
		return StatusCommandNotFound, false
	}
	return fm.evalText(string(code), ". "+name)
}

func breakCmd(fm *frame, args []string) (int, bool) {
	return abortLoop(fm, args, false, "break")
}

func continueCmd(fm *frame, args []string) (int, bool) {
	return abortLoop(fm, args, true, "continue")
}

func abortLoop(fm *frame, args []string, next bool, what string) (int, bool) {
	levels := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fm.diag("%v: bad number of levels %q", what, args[0])
			return StatusBadCommandLine, false
		}
		levels = n
	}
	if fm.loopDepth == 0 {
		// Outside any loop break and continue are no-ops; POSIX leaves
		// this case unspecified and most shells agree on ignoring it.
		return 0, true
	}
	dest := fm.loopDepth - levels
	if dest < 0 {
		// More levels than enclosing loops: abort the outermost one.
		dest = 0
	}
	fm.loopAbort = &loopAbort{dest: dest, next: next}
	return 0, false
}

func evalCmd(fm *frame, args []string) (int, bool) {
	code := strings.Join(args, " ")
	if strings.TrimSpace(code) == "" {
		return 0, true
	}
	return fm.evalText(code, "eval")
}

func exitCmd(fm *frame, args []string) (int, bool) {
	status := fm.lastPipelineStatus
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fm.diag("exit: bad status %q", args[0])
			status = StatusBadCommandLine
		} else {
			status = n
		}
	}
	fm.exited = true
	return status, false
}

func exportCmd(fm *frame, args []string) (int, bool) {
	return exportOrReadonly(fm, args, "export", fm.variables.exported)
}

func readonlyCmd(fm *frame, args []string) (int, bool) {
	return exportOrReadonly(fm, args, "readonly", fm.variables.readonly)
}

func exportOrReadonly(fm *frame, args []string, what string, attr set[string]) (int, bool) {
	opts, operands, ok := fm.getopt(args, "p")
	if !ok {
		return StatusBadCommandLine, false
	}
	if opts.isSet('p') || len(operands) == 0 {
		var sb strings.Builder
		for _, name := range sortedNames(attr) {
			if value, set := fm.variables.values[name]; set {
				fmt.Fprintf(&sb, "%v %v=%v\n", what, name, quoteValue(value))
			} else {
				fmt.Fprintf(&sb, "%v %v\n", what, name)
			}
		}
		fm.files[1].WriteString(sb.String())
		return 0, true
	}
	for _, operand := range operands {
		name, value, hasValue := strings.Cut(operand, "=")
		if !validVarName(name) {
			fm.diag("%v: bad name %q", what, name)
			return StatusBadCommandLine, false
		}
		if hasValue {
			if err := fm.SetVar(name, value); err != nil {
				fm.diag("%v: %v", what, err)
				return StatusAssignmentError, false
			}
		}
		attr.add(name)
	}
	return 0, true
}

func returnCmd(fm *frame, args []string) (int, bool) {
	status := fm.lastPipelineStatus
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fm.diag("return: bad status %q", args[0])
			return StatusBadCommandLine, false
		}
		status = n
	}
	fm.fnAbort = true
	return status, false
}

func setCmd(fm *frame, args []string) (int, bool) {
	if len(args) == 0 {
		// Dump all variables in a form that can be read back.
		var sb strings.Builder
		for _, name := range sortedNames(fm.variables.values) {
			fmt.Fprintf(&sb, "%v=%v\n", name, quoteValue(fm.variables.values[name]))
		}
		fm.files[1].WriteString(sb.String())
		return 0, true
	}
	setParams := false
	i := 0
parseArgs:
	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			i++
			setParams = true
			break parseArgs
		case arg == "-o" || arg == "+o":
			if i+1 == len(args) {
				fm.files[1].WriteString(fm.options.format(arg == "+o"))
				continue
			}
			i++
			bit, ok := optionByName[args[i]]
			if !ok {
				fm.diag("set: no such option %v", args[i])
				return StatusBadCommandLine, false
			}
			fm.options = fm.options.with(bit, arg == "-o")
		case len(arg) > 1 && (arg[0] == '-' || arg[0] == '+'):
			on := arg[0] == '-'
			for j := 1; j < len(arg); j++ {
				bit, ok := optionByLetter[arg[j]]
				if !ok {
					fm.diag("set: no such option -%c", arg[j])
					return StatusBadCommandLine, false
				}
				fm.options = fm.options.with(bit, on)
			}
		default:
			setParams = true
			break parseArgs
		}
	}
	if setParams {
		fm.arguments = append([]string{fm.arguments[0]}, args[i:]...)
	}
	return 0, true
}

func shiftCmd(fm *frame, args []string) (int, bool) {
	n := 1
	if len(args) > 0 {
		var err error
		n, err = strconv.Atoi(args[0])
		if err != nil || n < 0 {
			fm.diag("shift: bad number %q", args[0])
			return StatusBadCommandLine, false
		}
	}
	if n > len(fm.arguments)-1 {
		fm.diag("shift: not enough positional parameters")
		return StatusBadCommandLine, false
	}
	fm.arguments = append(fm.arguments[:1], fm.arguments[1+n:]...)
	return 0, true
}

func timesCmd(fm *frame, args []string) (int, bool) {
	var self, children unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &self); err != nil {
		fm.diag("times: %v", err)
		return StatusBadCommandLine, false
	}
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &children); err != nil {
		fm.diag("times: %v", err)
		return StatusBadCommandLine, false
	}
	fmt.Fprintf(fm.files[1], "%v %v\n%v %v\n",
		formatCPUTime(self.Utime), formatCPUTime(self.Stime),
		formatCPUTime(children.Utime), formatCPUTime(children.Stime))
	return 0, true
}

func formatCPUTime(tv unix.Timeval) string {
	secs := tv.Sec
	return fmt.Sprintf("%dm%d.%06ds", secs/60, secs%60, tv.Usec)
}

func trapCmd(fm *frame, args []string) (int, bool) {
	if len(args) == 0 {
		fm.files[1].WriteString(fm.traps.format())
		return 0, true
	}
	action := args[0]
	conds := args[1:]
	if _, err := strconv.Atoi(action); err == nil {
		// XCU: a leading unsigned integer makes every operand a condition
		// to reset.
		action = "-"
		conds = args
	}
	if len(conds) == 0 {
		fm.diag("trap: condition argument required")
		return StatusBadCommandLine, false
	}
	for _, cond := range conds {
		name, sig, ok := parseSignalName(cond)
		if !ok {
			fm.diag("trap: bad condition %q", cond)
			return StatusBadCommandLine, false
		}
		fm.traps.setAction(name, sig, action)
	}
	return 0, true
}

func unsetCmd(fm *frame, args []string) (int, bool) {
	opts, operands, ok := fm.getopt(args, "fv")
	if !ok {
		return StatusBadCommandLine, false
	}
	if opts.isSet('f') {
		for _, name := range operands {
			delete(fm.functions, name)
		}
		return 0, true
	}
	for _, name := range operands {
		if fm.variables.readonly.has(name) {
			fm.diag("unset: %v is readonly", name)
			return StatusAssignmentError, false
		}
		delete(fm.variables.values, name)
		delete(fm.variables.exported, name)
	}
	return 0, true
}

// runExec implements the exec special builtin. Its redirections persist in
// the current environment; with arguments the shell process is replaced.
func (fm *frame) runExec(c *ast.SimpleCommand, args []string) (int, bool) {
	status, _, restore := fm.applyRedirs(c.Redirs, true)
	restore()
	if status != 0 {
		return status, false
	}
	if len(args) == 0 {
		return 0, true
	}

	path, errStatus := fm.lookPath(args[0])
	if errStatus != 0 {
		fm.diag("exec: %v: not found", args[0])
		return errStatus, false
	}
	argv := cloneSlice(args)
	argv[0] = path

	// The frame's file table is positional; the kernel descriptors backing
	// it are arbitrary and may occupy each other's slots. Park every source
	// above the table first so that no dup2 clobbers a not-yet-copied
	// source, then move them into place.
	parked, err := parkFDs(fm.files, len(fm.files))
	if err != nil {
		fm.diag("exec: %v", err)
		return StatusRedirectionError, false
	}
	for fd, f := range fm.files {
		if f == nil {
			unix.Close(fd)
			continue
		}
		if err := unix.Dup2(parked[fd], fd); err != nil {
			fm.diag("exec: %v", err)
			return StatusRedirectionError, false
		}
		unix.Close(parked[fd])
	}
	err = unix.Exec(path, argv, fm.variables.serializeEnvEntries())
	// Exec only returns on failure.
	fm.diag("exec: %v: %v", args[0], err)
	return StatusCommandNotExecutable, false
}

// parkFDs duplicates each non-nil file onto a fresh descriptor at or above
// high, returning the duplicates indexed like files.
func parkFDs(files []*os.File, high int) ([]int, error) {
	parked := make([]int, len(files))
	for fd, f := range files {
		if f == nil {
			parked[fd] = -1
			continue
		}
		dup, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD, high)
		if err != nil {
			for _, d := range parked[:fd] {
				if d != -1 {
					unix.Close(d)
				}
			}
			return nil, err
		}
		parked[fd] = dup
	}
	return parked, nil
}
