package eval

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// The trap store. Signal receipt only queues the trapped action; the
// executor drains the queue between commands, so actions always run at a
// safe point. EXIT is a pseudo-signal whose action runs once when the shell
// terminates.
type trapStore struct {
	mu sync.Mutex
	// Signal name (without the SIG prefix, or "EXIT") to action text. An
	// empty action means the signal is ignored; an absent entry means the
	// default disposition.
	actions map[string]string
	// Actions queued by signal receipt, in arrival order.
	pending []string
	// Signals currently forwarded to ch by the runtime.
	notified map[string]os.Signal
	ch       chan os.Signal
	exitRun  bool
}

func newTrapStore() *trapStore {
	return &trapStore{
		actions:  make(map[string]string),
		notified: make(map[string]os.Signal),
		ch:       make(chan os.Signal, 16),
	}
}

// parseSignalName normalizes a trap operand: a signal name with or without
// the SIG prefix, a decimal signal number, or EXIT/0.
func parseSignalName(arg string) (string, os.Signal, bool) {
	if arg == "EXIT" || arg == "0" {
		return "EXIT", nil, true
	}
	if n, err := strconv.Atoi(arg); err == nil {
		sig := unix.Signal(n)
		name := unix.SignalName(sig)
		if name == "" {
			return "", nil, false
		}
		return name[3:], sig, true
	}
	name := arg
	if len(name) > 3 && name[:3] == "SIG" {
		name = name[3:]
	}
	sig := unix.SignalNum("SIG" + name)
	if sig == 0 {
		return "", nil, false
	}
	return name, sig, true
}

// setAction installs, ignores ("" action) or resets ("-" action) the trap
// for one signal.
func (ts *trapStore) setAction(name string, sig os.Signal, action string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if action == "-" {
		delete(ts.actions, name)
		if sig != nil {
			if old, ok := ts.notified[name]; ok {
				signal.Reset(old)
				delete(ts.notified, name)
			}
		}
		return
	}
	ts.actions[name] = action
	if name == "EXIT" {
		return
	}
	if action == "" {
		// Ignored: swallow the signal without queuing anything.
		signal.Ignore(sig)
		delete(ts.notified, name)
		return
	}
	if _, ok := ts.notified[name]; !ok {
		signal.Notify(ts.ch, sig)
		ts.notified[name] = sig
	}
}

// queuePending converts any received signals into queued actions. Called
// from the executor between commands.
func (ts *trapStore) queuePending() {
	for {
		select {
		case sig := <-ts.ch:
			ts.mu.Lock()
			name := unix.SignalName(sig.(unix.Signal))
			if len(name) > 3 {
				name = name[3:]
			}
			if action, ok := ts.actions[name]; ok && action != "" {
				ts.pending = append(ts.pending, action)
			}
			ts.mu.Unlock()
		default:
			return
		}
	}
}

// takePending removes and returns the queued actions.
func (ts *trapStore) takePending() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	pending := ts.pending
	ts.pending = nil
	return pending
}

// exitAction returns the EXIT action the first time it is called with an
// EXIT trap set, and "" afterwards.
func (ts *trapStore) exitAction() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.exitRun {
		return ""
	}
	ts.exitRun = true
	return ts.actions["EXIT"]
}

func (ts *trapStore) format() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	names := make([]string, 0, len(ts.actions))
	for name := range ts.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb []byte
	for _, name := range names {
		sb = append(sb, fmt.Sprintf("trap -- %v %v\n", quoteValue(ts.actions[name]), name)...)
	}
	return string(sb)
}

// cloneForSubshell resets traps to their default dispositions, keeping only
// ignored signals ignored, per XCU 2.11.
func (ts *trapStore) cloneForSubshell() *trapStore {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	clone := newTrapStore()
	for name, action := range ts.actions {
		if action == "" {
			clone.actions[name] = ""
		}
	}
	return clone
}
