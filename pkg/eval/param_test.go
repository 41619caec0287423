package eval

import (
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

var parseParamSpecTests = []struct {
	spec    string
	want    paramSpec
	wantErr bool
}{
	{spec: "foo", want: paramSpec{name: "foo"}},
	{spec: "1", want: paramSpec{name: "1"}},
	{spec: "10", want: paramSpec{name: "10"}},
	{spec: "@", want: paramSpec{name: "@"}},
	{spec: "*", want: paramSpec{name: "*"}},
	{spec: "#", want: paramSpec{name: "#"}},
	{spec: "!", want: paramSpec{name: "!"}},

	{spec: "foo:-bar", want: paramSpec{name: "foo", op: ":-", arg: "bar"}},
	{spec: "foo-", want: paramSpec{name: "foo", op: "-"}},
	{spec: "foo:=x y", want: paramSpec{name: "foo", op: ":=", arg: "x y"}},
	{spec: "foo?msg", want: paramSpec{name: "foo", op: "?", arg: "msg"}},
	{spec: "foo##*/", want: paramSpec{name: "foo", op: "##", arg: "*/"}},
	{spec: "foo#*/", want: paramSpec{name: "foo", op: "#", arg: "*/"}},
	{spec: "foo%%.*", want: paramSpec{name: "foo", op: "%%", arg: ".*"}},
	{spec: "foo%.*", want: paramSpec{name: "foo", op: "%", arg: ".*"}},
	// Operators apply to special parameters and positionals too.
	{spec: "1:-x", want: paramSpec{name: "1", op: ":-", arg: "x"}},
	{spec: "*%a", want: paramSpec{name: "*", op: "%", arg: "a"}},

	// Length forms. ${#} and ${#-} keep # as the parameter name.
	{spec: "#foo", want: paramSpec{length: true, name: "foo"}},
	{spec: "#11", want: paramSpec{length: true, name: "11"}},
	{spec: "#*", want: paramSpec{length: true, name: "*"}},
	{spec: "#-", want: paramSpec{name: "#", op: "-"}},

	{spec: "", wantErr: true},
	{spec: "^", wantErr: true},
	{spec: "foo^bar", wantErr: true},
}

func TestParseParamSpec(t *testing.T) {
	for _, test := range parseParamSpecTests {
		ps, err := parseParamSpec(test.spec)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseParamSpec(%q) -> no error, want error", test.spec)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseParamSpec(%q) -> error %v", test.spec, err)
			continue
		}
		if ps != test.want {
			t.Errorf("parseParamSpec(%q) -> %+v, want %+v", test.spec, ps, test.want)
		}
	}
}

func TestValidVarName(t *testing.T) {
	for name, want := range map[string]bool{
		"foo": true, "_": true, "a1": true, "A_B": true,
		"": false, "1a": false, "a-b": false, "@": false, "*": false,
	} {
		if got := validVarName(name); got != want {
			t.Errorf("validVarName(%q) -> %v, want %v", name, got, want)
		}
	}
}

func TestOptionLetters(t *testing.T) {
	var o options
	o = o.with(errexit, true).with(xtrace, true).with(nounset, true)
	if got, want := o.letters(), "eux"; got != want {
		t.Errorf("letters() -> %q, want %q", got, want)
	}
	o = o.with(xtrace, false)
	if got, want := o.letters(), "eu"; got != want {
		t.Errorf("letters() after unset -> %q, want %q", got, want)
	}
}

func TestOptionFormat(t *testing.T) {
	var o options
	o = o.with(pipefail, true)

	asCommands := o.format(true)
	if !strings.Contains(asCommands, "set -o pipefail\n") {
		t.Errorf("format(true) does not enable pipefail:\n%v", asCommands)
	}
	if !strings.Contains(asCommands, "set +o errexit\n") {
		t.Errorf("format(true) does not disable errexit:\n%v", asCommands)
	}

	tabular := o.format(false)
	if !strings.Contains(tabular, "pipefail   on\n") {
		t.Errorf("format(false) does not show pipefail on:\n%v", tabular)
	}
	for _, s := range []string{asCommands, tabular} {
		if got, want := strings.Count(s, "\n"), len(optionByName); got != want {
			t.Errorf("format output has %v lines, want %v:\n%v", got, want, s)
		}
	}
}

var parseSignalNameTests = []struct {
	arg      string
	wantName string
	wantSig  unix.Signal
	wantOK   bool
}{
	{arg: "EXIT", wantName: "EXIT", wantOK: true},
	{arg: "0", wantName: "EXIT", wantOK: true},
	{arg: "INT", wantName: "INT", wantSig: unix.SIGINT, wantOK: true},
	{arg: "SIGTERM", wantName: "TERM", wantSig: unix.SIGTERM, wantOK: true},
	{arg: "2", wantName: "INT", wantSig: unix.SIGINT, wantOK: true},
	{arg: "USR1", wantName: "USR1", wantSig: unix.SIGUSR1, wantOK: true},
	{arg: "NOSUCH", wantOK: false},
	{arg: "999", wantOK: false},
}

func TestParseSignalName(t *testing.T) {
	for _, test := range parseSignalNameTests {
		name, sig, ok := parseSignalName(test.arg)
		if ok != test.wantOK {
			t.Errorf("parseSignalName(%q) -> ok %v, want %v", test.arg, ok, test.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if name != test.wantName {
			t.Errorf("parseSignalName(%q) -> name %q, want %q", test.arg, name, test.wantName)
		}
		if test.wantSig != 0 && sig != test.wantSig {
			t.Errorf("parseSignalName(%q) -> signal %v, want %v", test.arg, sig, test.wantSig)
		}
	}
}
