package lex

import (
	"fmt"
	"strings"

	"github.com/spk121/sh23/pkg/token"
)

// Aliases is the read surface of the alias store consumed by the tokenizer
// pass. The store itself lives with the other interpreter stores.
type Aliases interface {
	Lookup(name string) (string, bool)
}

// DefaultMaxAliasDepth bounds nested alias expansion.
const DefaultMaxAliasDepth = 32

// ExpandAliases substitutes aliases in command position. A token is eligible
// iff it is an unquoted single-literal word in command position whose name is
// not already being expanded in the current chain. The replacement text is
// re-lexed and spliced in place; a replacement ending in a blank makes the
// following token eligible as well.
//
// With an empty store the pass returns its input unchanged.
func ExpandAliases(toks []*token.Token, aliases Aliases, maxDepth int) ([]*token.Token, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxAliasDepth
	}
	ae := aliasExpander{aliases, maxDepth}
	return ae.stream(toks, nil, 0)
}

type aliasExpander struct {
	aliases  Aliases
	maxDepth int
}

func (ae aliasExpander) stream(toks []*token.Token, active map[string]bool, depth int) ([]*token.Token, error) {
	out := make([]*token.Token, 0, len(toks))
	cmdPos := true
	for _, t := range toks {
		if cmdPos {
			if name, ok := t.SingleLiteral(); ok && !active[name] {
				if def, found := ae.aliases.Lookup(name); found {
					if depth >= ae.maxDepth {
						return nil, fmt.Errorf("alias expansion of %q exceeds depth %v", name, ae.maxDepth)
					}
					sub, err := Tokenize(def)
					if err != nil {
						return nil, fmt.Errorf("bad alias replacement for %q: %w", name, err)
					}
					sub = stripTerminators(sub)
					nested := withActive(active, name)
					expanded, err := ae.stream(sub, nested, depth+1)
					if err != nil {
						return nil, err
					}
					out = append(out, expanded...)
					// Chaining: a replacement with a trailing blank keeps the
					// next token in command position.
					cmdPos = strings.HasSuffix(def, " ") || strings.HasSuffix(def, "\t")
					continue
				}
			}
		}
		out = append(out, t)
		cmdPos = commandPosAfter(t)
	}
	return out, nil
}

func withActive(active map[string]bool, name string) map[string]bool {
	m := make(map[string]bool, len(active)+1)
	for k := range active {
		m[k] = true
	}
	m[name] = true
	return m
}

// stripTerminators removes the trailing EOF (and any newlines directly
// before it) from a re-lexed replacement, so that splicing does not insert a
// command separator the alias text did not contain.
func stripTerminators(toks []*token.Token) []*token.Token {
	for len(toks) > 0 {
		last := toks[len(toks)-1]
		if last.Type == token.EOF || last.Type == token.Newline {
			toks = toks[:len(toks)-1]
			continue
		}
		break
	}
	return toks
}

// The reserved words after which the next word is in command position.
var cmdPosKeywords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "do": true,
	"while": true, "until": true, "for": true, "case": true, "{": true,
}

func commandPosAfter(t *token.Token) bool {
	switch t.Type {
	case token.Newline, token.Semi, token.Amp, token.Pipe,
		token.AndIf, token.OrIf, token.Lparen, token.DSemi, token.SemiAmp:
		return true
	case token.Word:
		if name, ok := t.SingleLiteral(); ok {
			return cmdPosKeywords[name]
		}
	}
	return false
}
