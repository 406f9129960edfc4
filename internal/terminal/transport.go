package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// MinDimension is the smallest accepted column or row count on resize.
// Hidden front-end containers report near-zero sizes that would otherwise
// reflow the terminal into garbage.
const MinDimension = 2

// OpenRequest describes the process to spawn on a new pseudo-terminal.
type OpenRequest struct {
	Invocation
	Dir  string
	Cols int
	Rows int
}

// Transport owns a pseudo-terminal master and the child attached to it.
type Transport struct {
	ptmx  *os.File
	child *Child

	writeMu sync.Mutex

	mu     sync.Mutex
	cols   int
	rows   int
	closed bool
}

// Open allocates a pseudo-terminal of the requested size and starts the
// child on its slave side. Nothing is retained on failure.
func Open(req OpenRequest) (*Transport, error) {
	if req.Cols < 1 || req.Rows < 1 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrSpawnFailed, req.Cols, req.Rows)
	}

	cmd := exec.Command(req.Path, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(req.Rows),
		Cols: uint16(req.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrSpawnFailed, req.Path, err)
	}

	return &Transport{
		ptmx:  ptmx,
		child: newChild(cmd),
		cols:  req.Cols,
		rows:  req.Rows,
	}, nil
}

// Read reads output from the master. The I/O pump is its only caller.
func (t *Transport) Read(p []byte) (int, error) {
	return t.ptmx.Read(p)
}

// Write sends input to the child.
func (t *Transport) Write(p []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.isClosed() {
		return fmt.Errorf("%w: transport closed", ErrIO)
	}
	if _, err := t.ptmx.Write(p); err != nil {
		return fmt.Errorf("%w: write: %v", ErrIO, err)
	}
	return nil
}

// Resize updates the terminal geometry. Sizes below MinDimension in either
// direction are ignored and reported as not applied.
func (t *Transport) Resize(cols, rows int) (bool, error) {
	if cols < MinDimension || rows < MinDimension {
		return false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false, fmt.Errorf("%w: transport closed", ErrIO)
	}
	if err := pty.Setsize(t.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return false, fmt.Errorf("%w: resize: %v", ErrIO, err)
	}
	t.cols, t.rows = cols, rows
	return true, nil
}

// Size returns the last applied geometry.
func (t *Transport) Size() (cols, rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cols, t.rows
}

// Child returns the process handle.
func (t *Transport) Child() *Child {
	return t.child
}

// Close kills the child if it is still running and releases the master.
// It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	killErr := t.child.Kill()
	closeErr := t.ptmx.Close()
	return errors.Join(killErr, closeErr)
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Child is a thread-safe handle to a spawned process. Exit is observed by a
// single goroutine blocked in Wait.
type Child struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu     sync.Mutex
	exited bool
	code   int
}

func newChild(cmd *exec.Cmd) *Child {
	c := &Child{cmd: cmd, done: make(chan struct{})}
	go c.wait()
	return c
}

func (c *Child) wait() {
	err := c.cmd.Wait()
	code := exitCode(c.cmd.ProcessState, err)

	c.mu.Lock()
	c.exited = true
	c.code = code
	c.mu.Unlock()

	close(c.done)
}

// exitCode reports signalled processes as 128+signal, as shells do.
func exitCode(state *os.ProcessState, err error) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if err != nil {
		return -1
	}
	return 0
}

// Pid returns the process ID.
func (c *Child) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Done is closed once the process has exited.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

// TryWait reports the exit code without blocking.
func (c *Child) TryWait() (code int, exited bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.exited
}

// Running reports whether the process has not yet exited.
func (c *Child) Running() bool {
	_, exited := c.TryWait()
	return !exited
}

// ExitCode returns the exit code, or nil while the process runs.
func (c *Child) ExitCode() *int {
	code, exited := c.TryWait()
	if !exited {
		return nil
	}
	return &code
}

// Kill sends SIGKILL to the child's process group. The child leads its own
// session, so this reaches anything it spawned on the terminal.
func (c *Child) Kill() error {
	if !c.Running() {
		return nil
	}
	pid := c.Pid()
	if pid <= 0 {
		return nil
	}
	err := unix.Kill(-pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	if kerr := c.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
		return fmt.Errorf("kill %d: %w", pid, kerr)
	}
	return nil
}
