package eval_test

import (
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.elv.sh/pkg/must"
	"src.elv.sh/pkg/testutil"

	"github.com/spk121/sh23/pkg/eval"
)

type scriptTest struct {
	name string
	code string

	wantStatus  int
	wantStdout  string
	checkStderr bool
	wantStderr  string
}

var scriptTests = []scriptTest{
	{
		name:       "pipeline",
		code:       "printf 'a\\nb\\nc\\n' | grep b\n",
		wantStdout: "b\n",
	},
	{
		name:       "heredoc with expansion",
		code:       "X=world; cat <<EOF\nhi $X\nEOF\n",
		wantStdout: "hi world\n",
	},
	{
		name:       "quoted heredoc without expansion",
		code:       "X=world; cat <<'EOF'\nhi $X\nEOF\n",
		wantStdout: "hi $X\n",
	},
	{
		name:       "arithmetic with assignment and short circuit",
		code:       "a=5; b=0; echo $(( a && (b = a + 2) )) $b\n",
		wantStdout: "1 7\n",
	},
	{
		name:       "suffix stripping",
		code:       `f=file.tar.gz; echo "${f%.*}" "${f%%.*}"` + "\n",
		wantStdout: "file.tar file\n",
	},
	{
		name:       "tilde and assignment words",
		code:       "HOME=/h; x=~; echo $x\n",
		wantStdout: "/h\n",
	},
	{
		name:       "tilde after quoted text in assignment stays literal",
		code:       "x=a\"b\"~nosuchuserzz; echo $x\n",
		wantStdout: "ab~nosuchuserzz\n",
	},
	{
		name:       "command substitution strips trailing newlines",
		code:       "echo \"[$(printf 'x\\n\\n')]\"\n",
		wantStdout: "[x]\n",
	},
	{
		name:       "backquoted substitution",
		code:       "echo `printf hi`\n",
		wantStdout: "hi\n",
	},
	{
		name:       "exit status of last pipeline",
		code:       "false\n",
		wantStatus: 1,
	},
	{
		name:       "negated pipeline",
		code:       "! false\n",
		wantStatus: 0,
	},
	{
		name:       "and or chain",
		code:       "true && echo yes || echo no\n",
		wantStdout: "yes\n",
	},
	{
		name:       "if else",
		code:       "if false; then echo t; else echo f; fi\n",
		wantStdout: "f\n",
	},
	{
		name:       "while loop with break",
		code:       "i=0; while true; do i=$((i+1)); if [ $i -ge 3 ]; then break; fi; done; echo $i\n",
		wantStdout: "3\n",
	},
	{
		name:       "for loop over words",
		code:       "for x in a b c; do printf '%s' $x; done; echo\n",
		wantStdout: "abc\n",
	},
	{
		name:       "for loop continue",
		code:       "for x in a b c; do if [ $x = b ]; then continue; fi; printf '%s' $x; done; echo\n",
		wantStdout: "ac\n",
	},
	{
		name:       "case with pattern",
		code:       "case file.tar.gz in *.tar.gz) echo tarball;; *) echo other;; esac\n",
		wantStdout: "tarball\n",
	},
	{
		name:       "case fallthrough",
		code:       "case a in a) echo one;& b) echo two;; c) echo three;; esac\n",
		wantStdout: "one\ntwo\n",
	},
	{
		name:       "function definition and call",
		code:       "greet() { echo hi $1; }; greet you\n",
		wantStdout: "hi you\n",
	},
	{
		name:       "function return status",
		code:       "f() { return 3; }; f; echo $?\n",
		wantStdout: "3\n",
	},
	{
		name:       "positional parameters via set",
		code:       "set -- a b c; echo $# $2\n",
		wantStdout: "3 b\n",
	},
	{
		name:       "shift",
		code:       "set -- a b c; shift 2; echo $1\n",
		wantStdout: "c\n",
	},
	{
		name:       "field splitting with custom ifs",
		code:       "IFS=:; v=a:b:c; set -- $v; echo $#\n",
		wantStdout: "3\n",
	},
	{
		name:       "quoted expansion is one field",
		code:       `v='a b'; set -- "$v"; echo $#` + "\n",
		wantStdout: "1\n",
	},
	{
		name:       "literal words are never field split",
		code:       "IFS=a; set -- bab; echo $#\n",
		wantStdout: "1\n",
	},
	{
		name:       "star joins with first ifs char",
		code:       `IFS=:; set -- a b c; echo "$*"` + "\n",
		wantStdout: "a:b:c\n",
	},
	{
		name:       "default value expansion",
		code:       "unset v; echo ${v:-fallback}\n",
		wantStdout: "fallback\n",
	},
	{
		name:       "assign default expansion",
		code:       "unset v; : ${v:=seen}; echo $v\n",
		wantStdout: "seen\n",
	},
	{
		name:       "alternative value expansion",
		code:       "v=x; echo ${v:+alt}${w:+never}\n",
		wantStdout: "alt\n",
	},
	{
		name:       "length expansion",
		code:       "v=hello; echo ${#v}\n",
		wantStdout: "5\n",
	},
	{
		name:       "prefix stripping",
		code:       "f=file.tar.gz; echo ${f#*.} ${f##*.}\n",
		wantStdout: "tar.gz gz\n",
	},
	{
		name:       "redirection to file and back",
		code:       "echo out > f; cat f\n",
		wantStdout: "out\n",
	},
	{
		name:       "append redirection",
		code:       "echo one > f; echo two >> f; cat f\n",
		wantStdout: "one\ntwo\n",
	},
	{
		name:        "stderr duplication",
		code:        "echo oops >&2\n",
		checkStderr: true,
		wantStderr:  "oops\n",
	},
	{
		name:       "fd table restored after command",
		code:       "echo a > f; cat f > /dev/null; echo b\n",
		wantStdout: "b\n",
	},
	{
		name:       "subshell does not leak variables",
		code:       "v=outer; (v=inner); echo $v\n",
		wantStdout: "outer\n",
	},
	{
		name:       "brace group shares environment",
		code:       "{ v=inner; }; echo $v\n",
		wantStdout: "inner\n",
	},
	{
		name:       "temporary assignment scope",
		code:       "v=outer; v=inner printf '%s\\n' \"$v\"; echo $v\n",
		wantStdout: "outer\nouter\n",
	},
	{
		name:       "errexit stops the list",
		code:       "set -e; false; echo unreachable\n",
		wantStatus: 1,
	},
	{
		name:       "errexit suppressed in condition",
		code:       "set -e; if false; then :; fi; echo ok\n",
		wantStdout: "ok\n",
	},
	{
		name:       "nounset is fatal for the command",
		code:       "set -u; echo $undefined\n",
		wantStatus: 1,
	},
	{
		name:       "command not found",
		code:       "definitely-not-a-command-sh23\n",
		wantStatus: 127,
	},
	{
		name:       "eval and command resolve through the builtin maps",
		code:       "eval 'type eval'; command -v command\n",
		wantStdout: "eval is a special shell builtin\ncommand\n",
	},
	{
		name:       "eval builtin",
		code:       "x='echo hi'; eval $x\n",
		wantStdout: "hi\n",
	},
	{
		name:       "exit trap runs once",
		code:       "trap 'echo bye' EXIT; echo main; exit 0\n",
		wantStdout: "main\nbye\n",
	},
	{
		name:       "case no match",
		code:       "case x in y) echo y;; esac; echo $?\n",
		wantStdout: "0\n",
	},
	{
		name:       "exit status expansion",
		code:       "false; echo $?\n",
		wantStdout: "1\n",
	},
	{
		name:       "until loop",
		code:       "i=0; until [ $i -ge 2 ]; do i=$((i+1)); done; echo $i\n",
		wantStdout: "2\n",
	},
	{
		name:       "arithmetic expansion in word",
		code:       "echo a$((1+2))b\n",
		wantStdout: "a3b\n",
	},
	{
		name:       "glob matches are sorted",
		code:       "mkdir d; : > d/b; : > d/a; : > d/c; echo d/*\n",
		wantStdout: "d/a d/b d/c\n",
	},
	{
		name:       "unmatched glob is literal",
		code:       "echo nomatch-*\n",
		wantStdout: "nomatch-*\n",
	},
	{
		name:       "noglob disables pathname expansion",
		code:       "set -f; : > x.txt; echo *.txt\n",
		wantStdout: "*.txt\n",
	},
}

func TestScripts(t *testing.T) {
	for _, test := range scriptTests {
		t.Run(test.name, func(t *testing.T) {
			testutil.InTempDir(t)
			files, read := makeFiles()
			ev := eval.NewEvaler([]string{"sh23"}, files)
			status := ev.Eval(test.code)
			ev.Finalize()
			stdout, stderr := read()
			if status != test.wantStatus {
				t.Errorf("got status %v, want %v", status, test.wantStatus)
			}
			if diff := cmp.Diff(test.wantStdout, stdout); diff != "" {
				t.Errorf("stdout (-want+got):\n%v", diff)
			}
			if test.checkStderr {
				if diff := cmp.Diff(test.wantStderr, stderr); diff != "" {
					t.Errorf("stderr (-want+got):\n%v", diff)
				}
			}
			if t.Failed() {
				t.Logf("code is:\n%v", test.code)
			}
		})
	}
}

func TestScripts_MultipleEvals_KeepState(t *testing.T) {
	testutil.InTempDir(t)
	files, read := makeFiles()
	ev := eval.NewEvaler([]string{"sh23"}, files)
	ev.Eval("v=kept\n")
	ev.Eval("f() { echo $v; }\n")
	ev.Eval("f\n")
	stdout, _ := read()
	if diff := cmp.Diff("kept\n", stdout); diff != "" {
		t.Errorf("stdout (-want+got):\n%v", diff)
	}
}

func TestScripts_SyntaxErrorStatus(t *testing.T) {
	testutil.InTempDir(t)
	files, read := makeFiles()
	ev := eval.NewEvaler([]string{"sh23"}, files)
	status := ev.Eval("if true; then\n")
	read()
	if status != eval.StatusSyntaxError {
		t.Errorf("got status %v, want %v", status, eval.StatusSyntaxError)
	}
}

var devNull = must.OK1(os.Open(os.DevNull))

func makeFiles() ([]*os.File, func() (string, string)) {
	file1, read1 := outputPipe()
	file2, read2 := outputPipe()
	return []*os.File{devNull, file1, file2}, func() (string, string) {
		return read1(), read2()
	}
}

func outputPipe() (*os.File, func() string) {
	r, w := must.Pipe()
	ch := make(chan string)
	go func() {
		ch <- string(must.OK1(io.ReadAll(r)))
		r.Close()
	}()
	return w, func() string {
		w.Close()
		return <-ch
	}
}
