package eval

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Regular builtins. Unlike special builtins their errors are never fatal,
// so they return a bare status.
var builtins = map[string]func(*frame, []string) int{
	"alias":   aliasCmd,
	"cd":      cdCmd,
	"false":   falseCmd,
	"pwd":     pwdCmd,
	"read":    readCmd,
	"true":    trueCmd,
	"umask":   umaskCmd,
	"unalias": unaliasCmd,
	"wait":    waitCmd,
}

func init() {
	// command and type look up (and command invokes) other commands, so
	// they refer to methods that depend on builtins; initialize them here
	// to avoid dependency cycle.
	builtins["command"] = commandCmd
	builtins["type"] = typeCmd
}

func aliasCmd(fm *frame, args []string) int {
	if len(args) == 0 {
		var sb strings.Builder
		for _, name := range fm.aliases.names() {
			def, _ := fm.aliases.Lookup(name)
			fmt.Fprintf(&sb, "%v=%v\n", name, quoteValue(def))
		}
		fm.files[1].WriteString(sb.String())
		return 0
	}
	status := 0
	for _, arg := range args {
		name, def, hasDef := strings.Cut(arg, "=")
		if !hasDef {
			if d, ok := fm.aliases.Lookup(name); ok {
				fmt.Fprintf(fm.files[1], "%v=%v\n", name, quoteValue(d))
			} else {
				fm.diag("alias: %v: not found", name)
				status = 1
			}
			continue
		}
		if err := fm.aliases.define(name, def); err != nil {
			fm.diag("alias: %v", err)
			status = 1
		}
	}
	return status
}

func unaliasCmd(fm *frame, args []string) int {
	opts, operands, ok := fm.getopt(args, "a")
	if !ok {
		return StatusBadCommandLine
	}
	if opts.isSet('a') {
		fm.aliases.removeAll()
		return 0
	}
	status := 0
	for _, name := range operands {
		if !fm.aliases.remove(name) {
			fm.diag("unalias: %v: not found", name)
			status = 1
		}
	}
	return status
}

func cdCmd(fm *frame, args []string) int {
	var dest string
	printDest := false
	switch {
	case len(args) == 0:
		home, set := fm.variables.values["HOME"]
		if !set || home == "" {
			fm.diag("cd: HOME not set")
			return 1
		}
		dest = home
	case args[0] == "-":
		oldpwd, set := fm.variables.values["OLDPWD"]
		if !set {
			fm.diag("cd: OLDPWD not set")
			return 1
		}
		dest = oldpwd
		printDest = true
	default:
		dest = args[0]
	}

	// CDPATH applies to relative destinations not starting with a dot
	// component.
	if !filepath.IsAbs(dest) && dest != "" && !strings.HasPrefix(dest, "./") &&
		!strings.HasPrefix(dest, "../") && dest != "." && dest != ".." {
		for _, dir := range filepath.SplitList(fm.variables.values["CDPATH"]) {
			if dir == "" {
				continue
			}
			candidate := filepath.Join(dir, dest)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				dest = candidate
				printDest = true
				break
			}
		}
	}

	if err := os.Chdir(dest); err != nil {
		fm.diag("cd: %v", err)
		return 1
	}
	newPwd, err := os.Getwd()
	if err != nil {
		newPwd = dest
	}
	oldPwd := fm.variables.values["PWD"]
	fm.variables.values["OLDPWD"] = oldPwd
	fm.variables.exported.add("OLDPWD")
	fm.variables.values["PWD"] = newPwd
	fm.variables.exported.add("PWD")
	if printDest {
		fmt.Fprintln(fm.files[1], newPwd)
	}
	return 0
}

func commandCmd(fm *frame, args []string) int {
	opts, operands, ok := fm.getopt(args, "pvV")
	if !ok {
		return StatusBadCommandLine
	}
	if opts.isSet('v') || opts.isSet('V') {
		status := 0
		for _, name := range operands {
			if !fm.describeCommand(name, opts.isSet('V')) {
				status = 1
			}
		}
		return status
	}
	if len(operands) == 0 {
		return 0
	}
	// Running via command suppresses function lookup and shields the
	// caller from special-builtin fatality.
	status, _ := fm.invoke(operands, true)
	return status
}

// describeCommand prints how name would be resolved. Terse form for
// command -v, sentence form for command -V and type.
func (fm *frame) describeCommand(name string, verbose bool) bool {
	out := fm.files[1]
	if def, ok := fm.aliases.Lookup(name); ok {
		if verbose {
			fmt.Fprintf(out, "%v is an alias for %v\n", name, def)
		} else {
			fmt.Fprintf(out, "alias %v=%v\n", name, quoteValue(def))
		}
		return true
	}
	if _, ok := specialBuiltins[name]; ok || name == "exec" {
		if verbose {
			fmt.Fprintf(out, "%v is a special shell builtin\n", name)
		} else {
			fmt.Fprintln(out, name)
		}
		return true
	}
	if _, ok := fm.functions[name]; ok {
		if verbose {
			fmt.Fprintf(out, "%v is a function\n", name)
		} else {
			fmt.Fprintln(out, name)
		}
		return true
	}
	if _, ok := builtins[name]; ok {
		if verbose {
			fmt.Fprintf(out, "%v is a shell builtin\n", name)
		} else {
			fmt.Fprintln(out, name)
		}
		return true
	}
	if path, errStatus := fm.lookPath(name); errStatus == 0 {
		if verbose {
			fmt.Fprintf(out, "%v is %v\n", name, path)
		} else {
			fmt.Fprintln(out, path)
		}
		return true
	}
	if verbose {
		fmt.Fprintf(fm.files[2], "%v: not found\n", name)
	}
	return false
}

func falseCmd(fm *frame, args []string) int { return 1 }

func trueCmd(fm *frame, args []string) int { return 0 }

func pwdCmd(fm *frame, args []string) int {
	if pwd, set := fm.variables.values["PWD"]; set && filepath.IsAbs(pwd) {
		fmt.Fprintln(fm.files[1], pwd)
		return 0
	}
	wd, err := os.Getwd()
	if err != nil {
		fm.diag("pwd: %v", err)
		return 1
	}
	fmt.Fprintln(fm.files[1], wd)
	return 0
}

func readCmd(fm *frame, args []string) int {
	opts, operands, ok := fm.getopt(args, "r")
	if !ok {
		return StatusBadCommandLine
	}
	raw := opts.isSet('r')
	if len(operands) == 0 {
		operands = []string{"REPLY"}
	}

	line, eof := getLine(fm.files[0], raw)
	fields := splitReadLine(line, fm.ifs(), len(operands))
	for i, name := range operands {
		value := ""
		if i < len(fields) {
			value = fields[i]
		}
		if err := fm.SetVar(name, value); err != nil {
			fm.diag("read: %v", err)
			return 1
		}
	}
	if eof && line == "" {
		return 1
	}
	return 0
}

// getLine reads one line, byte by byte so that no input beyond the newline
// is consumed. Without raw mode a backslash escapes the next character and
// a backslash-newline continues the line.
func getLine(r io.Reader, raw bool) (string, bool) {
	var sb strings.Builder
	buf := make([]byte, 1)
	escaped := false
	for {
		n, err := r.Read(buf)
		if n == 0 {
			return sb.String(), err != nil
		}
		b := buf[0]
		if escaped {
			escaped = false
			if b != '\n' {
				sb.WriteByte(b)
			}
			continue
		}
		switch b {
		case '\n':
			return sb.String(), false
		case '\\':
			if raw {
				sb.WriteByte(b)
			} else {
				escaped = true
			}
		default:
			sb.WriteByte(b)
		}
	}
}

// splitReadLine splits a line into at most max fields on IFS, leaving the
// remainder in the last field with trailing IFS whitespace removed.
func splitReadLine(line, ifs string, max int) []string {
	if max <= 1 {
		return []string{strings.Trim(line, whitespaceIn(ifs))}
	}
	allFields := split(line, ifs)
	if len(allFields) <= max {
		return allFields
	}
	fields := allFields[:max-1]
	// Re-derive the remainder: strip the consumed fields and the
	// separators around them from the front of the line.
	ws := whitespaceIn(ifs)
	rest := strings.TrimLeft(line, ws)
	for _, f := range fields {
		rest = rest[len(f):]
		rest = strings.TrimLeft(rest, ws)
		if rest != "" && strings.IndexByte(ifs, rest[0]) >= 0 {
			rest = strings.TrimLeft(rest[1:], ws)
		}
	}
	return append(fields, strings.TrimRight(rest, ws))
}

func whitespaceIn(ifs string) string {
	var sb strings.Builder
	for _, r := range ifs {
		if r == ' ' || r == '\t' || r == '\n' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func typeCmd(fm *frame, args []string) int {
	status := 0
	for _, name := range args {
		if !fm.describeCommand(name, true) {
			status = 1
		}
	}
	return status
}

func umaskCmd(fm *frame, args []string) int {
	if len(args) == 0 {
		// There is no umask getter; set and restore.
		cur := unix.Umask(0)
		unix.Umask(cur)
		fmt.Fprintf(fm.files[1], "%04o\n", cur)
		return 0
	}
	n, err := strconv.ParseInt(args[0], 8, 32)
	if err != nil || n < 0 || n > 0777 {
		fm.diag("umask: bad mask %q", args[0])
		return 1
	}
	unix.Umask(int(n))
	return 0
}

func waitCmd(fm *frame, args []string) int {
	if len(args) == 0 {
		ids := make([]int, 0, len(fm.jobs))
		for id := range fm.jobs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			job := fm.jobs[id]
			<-job.done
			delete(fm.jobs, id)
		}
		return 0
	}
	status := 0
	for _, arg := range args {
		id, err := strconv.Atoi(strings.TrimPrefix(arg, "%"))
		if err != nil {
			fm.diag("wait: bad job id %q", arg)
			return StatusBadCommandLine
		}
		job, ok := fm.jobs[id]
		if !ok {
			// An unknown or already-reaped job reports 127.
			status = StatusCommandNotFound
			continue
		}
		<-job.done
		delete(fm.jobs, id)
		status = job.status
	}
	return status
}
