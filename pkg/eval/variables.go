package eval

import (
	"os"
	"strconv"
	"strings"
)

// The variable store. Whether a variable is exported or readonly is
// independent of whether it is set, so the attributes live in separate
// sets. Function calls and command-prefix assignments shadow entries
// through [frame.pushAssignments], which records the prior state and
// restores it afterwards.
type variables struct {
	values   map[string]string
	exported set[string]
	readonly set[string]
}

func initVariablesFromEnv(entries []string) variables {
	v := variables{
		values:   make(map[string]string, len(entries)),
		exported: make(set[string], len(entries)),
		readonly: make(set[string]),
	}
	for _, entry := range entries {
		// Note: Treat "foo" like "foo=" if such entries ever occur.
		name, value, _ := strings.Cut(entry, "=")
		v.values[name] = value
		v.exported.add(name)
	}
	v.values["PPID"] = strconv.Itoa(os.Getppid())
	if wd, err := os.Getwd(); err == nil {
		v.values["PWD"] = wd
	}
	v.exported.add("PWD")
	return v
}

func (v variables) serializeEnvEntries() []string {
	entries := make([]string, 0, len(v.exported))
	for name := range v.exported {
		if value, ok := v.values[name]; ok {
			// Only variables that are both set and exported appear in the
			// environment of child processes.
			entries = append(entries, name+"="+value)
		}
	}
	return entries
}

func (v variables) clone() variables {
	return variables{cloneMap(v.values), cloneMap(v.exported), cloneMap(v.readonly)}
}

// A saved shadow entry for one variable, restored when a temporary
// assignment scope is popped.
type savedVar struct {
	name     string
	value    string
	set      bool
	exported bool
}

// These are methods on [*frame] rather than [variables] because the
// behavior of setting a variable depends on the [allexport] option.

type unsetError struct{ name string }

func (err unsetError) Error() string { return err.name + " is unset" }

type readonlyError struct{ name string }

func (err readonlyError) Error() string { return err.name + " is readonly" }

// GetVar reads a variable. With nounset in effect, reading an unset
// variable is an error.
func (fm *frame) GetVar(name string) (string, error) {
	value, ok := fm.variables.values[name]
	if !ok && fm.options.has(nounset) {
		return value, unsetError{name}
	}
	return value, nil
}

func (fm *frame) SetVar(name, value string) error {
	if fm.variables.readonly.has(name) {
		return readonlyError{name}
	}
	if fm.options.has(allexport) {
		fm.variables.exported.add(name)
	}
	fm.variables.values[name] = value
	return nil
}

// pushAssignments applies command-prefix assignments temporarily, returning
// a function that restores the prior values. Temporary assignments are
// exported so that they reach the environment of the prefixed command.
func (fm *frame) pushAssignments(names, values []string) (func(), error) {
	var saved []savedVar
	restore := func() {
		for i := len(saved) - 1; i >= 0; i-- {
			sv := saved[i]
			if sv.set {
				fm.variables.values[sv.name] = sv.value
			} else {
				delete(fm.variables.values, sv.name)
			}
			if sv.exported {
				fm.variables.exported.add(sv.name)
			} else {
				delete(fm.variables.exported, sv.name)
			}
		}
	}
	for i, name := range names {
		if fm.variables.readonly.has(name) {
			restore()
			return nil, readonlyError{name}
		}
		value, set := fm.variables.values[name]
		saved = append(saved, savedVar{name, value, set, fm.variables.exported.has(name)})
		fm.variables.values[name] = values[i]
		fm.variables.exported.add(name)
	}
	return restore, nil
}

// arithStore adapts the variable store to the arithmetic evaluator. Unset
// variables read as absent (the evaluator treats them as 0) regardless of
// nounset; assignments write decimal text back.
type arithStore struct{ fm *frame }

func (s arithStore) Get(name string) (string, bool) {
	value, ok := s.fm.variables.values[name]
	return value, ok
}

func (s arithStore) Set(name, value string) error {
	return s.fm.SetVar(name, value)
}
