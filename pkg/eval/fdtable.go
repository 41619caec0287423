package eval

import (
	"io"
	"os"
	"strconv"

	"github.com/spk121/sh23/pkg/ast"
	"github.com/spk121/sh23/pkg/lex"
)

// Redirection handling. The frame's files slice is the open file table;
// applying a redirection saves the old entry, installs the new one, and the
// returned restore function undoes the whole batch in reverse order.

// Here-document bodies up to this size are fed through a pipe by a
// goroutine; larger bodies go through an unlinked temporary file so a
// command that never reads its input cannot leave the writer blocked
// holding a pipe buffer.
const heredocSpillThreshold = 64 << 10

var redirDefaultFD = map[ast.RedirOp]int{
	ast.Read:            0,
	ast.Write:           1,
	ast.Append:          1,
	ast.DupIn:           0,
	ast.DupOut:          1,
	ast.ReadWrite:       0,
	ast.WriteForce:      1,
	ast.FromBuffer:      0,
	ast.FromBufferStrip: 0,
}

type savedFD struct {
	fd   int
	file *os.File
}

// applyRedirs applies rds to the frame's file table. It returns a status, a
// fatality flag and a restore function; the restore function is always
// non-nil and safe to call. When persist is true (the exec special builtin)
// the redirections are left in place and restore does nothing.
func (fm *frame) applyRedirs(rds []*ast.Redirect, persist bool) (int, bool, func()) {
	var saved []savedFD
	var opened []*os.File
	restore := func() {
		if persist {
			return
		}
		for _, f := range opened {
			f.Close()
		}
		for i := len(saved) - 1; i >= 0; i-- {
			fm.setFD(saved[i].fd, saved[i].file)
		}
	}

	for _, rd := range rds {
		file, status, ok := fm.redirTarget(rd)
		if status != 0 {
			return status, ok, restore
		}

		if rd.IoLoc != "" {
			// {name}<... opens the lowest free descriptor at or above 10
			// and records it in the named variable. The descriptor stays
			// open after the command, so it is not entered into the
			// restore list.
			fd := fm.freeFD(10)
			fm.setFD(fd, file)
			if err := fm.SetVar(rd.IoLoc, strconv.Itoa(fd)); err != nil {
				fm.diag("%v", err)
				fm.setFD(fd, nil)
				if file != nil {
					file.Close()
				}
				return StatusRedirectionError, true, restore
			}
			continue
		}

		fd := rd.FD
		if fd < 0 {
			fd = redirDefaultFD[rd.Op]
		}
		var old *os.File
		if fd < len(fm.files) {
			old = fm.files[fd]
		}
		saved = append(saved, savedFD{fd, old})
		if rd.Kind == ast.File || rd.Kind == ast.Buffer {
			opened = append(opened, file)
		}
		fm.setFD(fd, file)
	}
	return 0, true, restore
}

// redirTarget resolves the file a redirection installs: an opened file, a
// duplicated descriptor, or nil for a close.
func (fm *frame) redirTarget(rd *ast.Redirect) (*os.File, int, bool) {
	switch rd.Kind {
	case ast.Close:
		return nil, 0, true
	case ast.FDTarget:
		if rd.TargetFD >= len(fm.files) || fm.files[rd.TargetFD] == nil {
			fm.diag("%v: bad file descriptor", rd.TargetFD)
			return nil, StatusRedirectionError, true
		}
		return fm.files[rd.TargetFD], 0, true
	case ast.Buffer:
		return fm.heredocFile(rd)
	}

	// Kind File: the target expands to a single pathname, with no field
	// splitting or pathname generation.
	exp, ok := fm.expandToken(rd.Target)
	if !ok {
		return nil, StatusExpansionError, false
	}
	name := exp.expandOneString()

	switch rd.Op {
	case ast.DupIn, ast.DupOut:
		// <& and >& with a non-numeric, non-"-" word.
		fm.diag("%v: bad file descriptor", name)
		return nil, StatusRedirectionError, true
	}

	flag, status, ok := fm.openFlag(rd.Op, name)
	if status != 0 {
		return nil, status, ok
	}
	f, err := os.OpenFile(name, flag, 0666)
	if err != nil {
		fm.diag("cannot open %v: %v", name, err)
		return nil, StatusRedirectionError, true
	}
	return f, 0, true
}

func (fm *frame) openFlag(op ast.RedirOp, name string) (int, int, bool) {
	switch op {
	case ast.Read:
		return os.O_RDONLY, 0, true
	case ast.Write:
		if fm.options.has(noclobber) {
			// With noclobber, > fails only if the target exists as a
			// regular file, so > /dev/null still works.
			if info, err := os.Stat(name); err != nil || !info.Mode().IsRegular() {
				return os.O_WRONLY | os.O_CREATE, 0, true
			}
			fm.diag("cannot overwrite existing file %v", name)
			return 0, StatusRedirectionError, true
		}
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, 0, true
	case ast.WriteForce:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, 0, true
	case ast.Append:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, 0, true
	case ast.ReadWrite:
		return os.O_RDWR | os.O_CREATE, 0, true
	}
	fm.diag("bug: unexpected redirection operator %v", op)
	return 0, StatusShellBug, false
}

// heredocFile materializes a here-document body as a readable file. Unless
// the delimiter was quoted, the body undergoes parameter, command and
// arithmetic expansion (but no field splitting or pathname generation).
func (fm *frame) heredocFile(rd *ast.Redirect) (*os.File, int, bool) {
	body := rd.Body.Body
	if !rd.Body.Quoted {
		exp, ok := fm.expandParts(lex.BodyParts(body))
		if !ok {
			return nil, StatusExpansionError, false
		}
		body = exp.expandOneString()
	}

	if len(body) > heredocSpillThreshold {
		f, err := os.CreateTemp("", "sh23-heredoc")
		if err != nil {
			fm.diag("cannot stage here-document: %v", err)
			return nil, StatusRedirectionError, true
		}
		os.Remove(f.Name())
		if _, err := f.WriteString(body); err != nil {
			f.Close()
			fm.diag("cannot stage here-document: %v", err)
			return nil, StatusRedirectionError, true
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			fm.diag("cannot stage here-document: %v", err)
			return nil, StatusRedirectionError, true
		}
		return f, 0, true
	}

	r, w, err := os.Pipe()
	if err != nil {
		fm.diag("cannot stage here-document: %v", err)
		return nil, StatusRedirectionError, true
	}
	go func() {
		w.WriteString(body)
		w.Close()
	}()
	return r, 0, true
}

// setFD stores file at index fd, growing the table as needed.
func (fm *frame) setFD(fd int, file *os.File) {
	for len(fm.files) <= fd {
		fm.files = append(fm.files, nil)
	}
	fm.files[fd] = file
}

// freeFD returns the lowest unused descriptor index at or above min.
func (fm *frame) freeFD(min int) int {
	for fd := min; fd < len(fm.files); fd++ {
		if fm.files[fd] == nil {
			return fd
		}
	}
	if len(fm.files) > min {
		return len(fm.files)
	}
	return min
}
