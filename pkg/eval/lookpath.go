package eval

import (
	"os"
	"path/filepath"
	"strings"
)

// lookPath resolves a command name to an executable path. Like
// os/exec.LookPath, except that it uses the working directory and PATH
// given as arguments, and reports failure as [StatusCommandNotFound] or
// [StatusCommandNotExecutable] in the second return value.
//
// TODO: Windows support.
func lookPath(file, wd, paths string) (string, int) {
	if strings.Contains(file, "/") {
		if !filepath.IsAbs(file) {
			file = filepath.Join(wd, file)
		}
		status := checkExecutable(file)
		return file, status
	}
	retStatus := StatusCommandNotFound
	for _, dir := range filepath.SplitList(paths) {
		if !filepath.IsAbs(dir) {
			// Ignore any component that is not absolute for safety. This
			// behavior is slightly different from os/exec.LookPath, which
			// will proceed to check these directories but return
			// exec.ErrDot.
			continue
		}
		fullpath := filepath.Join(dir, file)
		status := checkExecutable(fullpath)
		if status == 0 {
			return fullpath, 0
		} else if status == StatusCommandNotExecutable {
			retStatus = StatusCommandNotExecutable
		}
	}
	return "", retStatus
}

// lookPath with the frame's PWD and PATH.
func (fm *frame) lookPath(file string) (string, int) {
	return lookPath(file, fm.variables.values["PWD"], fm.variables.values["PATH"])
}

func checkExecutable(file string) int {
	info, err := os.Stat(file)
	if err == nil && !info.IsDir() {
		if info.Mode()&0o111 != 0 {
			return 0
		}
		return StatusCommandNotExecutable
	}
	return StatusCommandNotFound
}
