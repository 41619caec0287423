package eval

import (
	"fmt"
	"sort"
)

// The alias store. It is consumed by the tokenizer pass through the
// [lex.Aliases] interface and mutated by the alias and unalias builtins.
type aliasStore struct {
	defs map[string]string
}

func newAliasStore() *aliasStore {
	return &aliasStore{defs: make(map[string]string)}
}

func (as *aliasStore) Lookup(name string) (string, bool) {
	def, ok := as.defs[name]
	return def, ok
}

func (as *aliasStore) define(name, def string) error {
	if !validAliasName(name) {
		return fmt.Errorf("invalid alias name: %q", name)
	}
	as.defs[name] = def
	return nil
}

func (as *aliasStore) remove(name string) bool {
	_, ok := as.defs[name]
	delete(as.defs, name)
	return ok
}

func (as *aliasStore) removeAll() {
	as.defs = make(map[string]string)
}

func (as *aliasStore) names() []string {
	names := make([]string, 0, len(as.defs))
	for name := range as.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (as *aliasStore) clone() *aliasStore {
	return &aliasStore{defs: cloneMap(as.defs)}
}

// Alias names may use alphanumerics and a small set of punctuation, per
// XBD 3.10's definition of an alias name.
func validAliasName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		case c == '_', c == '!', c == '%', c == ',', c == '@', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}
