package eval

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
	"src.elv.sh/pkg/must"
)

// Parking lifts every source above the table before any dup2 lands inside
// it, so crossed entries cannot clobber each other.
func TestParkFDs(t *testing.T) {
	r, w := must.Pipe()
	defer r.Close()
	defer w.Close()

	files := []*os.File{nil, w, r}
	parked, err := parkFDs(files, 10)
	if err != nil {
		t.Fatalf("parkFDs: %v", err)
	}
	defer func() {
		for _, fd := range parked[1:] {
			unix.Close(fd)
		}
	}()
	if parked[0] != -1 {
		t.Errorf("parked[0] = %v, want -1", parked[0])
	}
	seen := make(map[int]bool)
	for _, fd := range parked[1:] {
		if fd < 10 {
			t.Errorf("parked fd %v is below the requested floor", fd)
		}
		if seen[fd] {
			t.Errorf("parked fd %v handed out twice", fd)
		}
		seen[fd] = true
	}

	// The duplicates are live copies of the originals.
	if _, err := unix.Write(parked[1], []byte("x")); err != nil {
		t.Fatalf("write through parked fd: %v", err)
	}
	buf := make([]byte, 1)
	if n, err := unix.Read(parked[2], buf); err != nil || n != 1 || buf[0] != 'x' {
		t.Errorf("read through parked fd: n=%v err=%v buf=%q", n, err, buf[:n])
	}
}
