package terminal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/ptyhost/internal/tmux"
	"github.com/GriffinCanCode/ptyhost/internal/tmux/tmuxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTmux returns a tmux client whose control commands hit an in-memory
// server and whose attach client is a plain shell.
func fakeTmux(t *testing.T, prefix string) (*tmux.Client, *tmuxtest.Runner) {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "tmux")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexec /bin/sh\n"), 0o755))

	runner := tmuxtest.NewRunner()
	client := tmux.New(bin,
		tmux.WithRunner(runner),
		tmux.WithPrefix(prefix),
		tmux.WithWaitDelay(time.Millisecond))
	return client, runner
}

func newMultiplexedManager(t *testing.T, rec *recorder, prefix string) (*Manager, *tmuxtest.Runner) {
	t.Helper()
	client, runner := fakeTmux(t, prefix)
	m := NewManager(context.Background(), client, Options{
		Shell:          "/bin/bash",
		UseMultiplexer: true,
		MarkerEnv:      "PTYHOST",
		HistoryLimit:   1234,
		ExitGrace:      100 * time.Millisecond,
		Sink:           rec,
	})
	t.Cleanup(func() { m.CloseAll(context.Background()) })
	return m, runner
}

func TestCreateMultiplexedSession(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	ctx := context.Background()
	dir := t.TempDir()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "3f2a9c1e-7b6d-4c1a", Dir: dir, Cols: 100, Rows: 30})
	require.NoError(t, err)
	assert.Equal(t, "ph-3f2a9c1e", name)

	s, ok := runner.Get(name)
	require.True(t, ok)
	assert.Equal(t, dir, s.Dir)
	assert.Equal(t, 100, s.Cols)
	assert.Equal(t, 30, s.Rows)
	assert.True(t, strings.HasPrefix(s.Command, "/usr/bin/env TERM=xterm-256color"))
	assert.Equal(t, "off", s.Options["status"])
	assert.Equal(t, "on", s.Options["mouse"])
	assert.Equal(t, "1234", s.Options["history-limit"])
	assert.Equal(t, "/bin/bash --norc --noprofile", s.Options["default-command"])

	info, err := m.SessionInfo("3f2a9c1e-7b6d-4c1a")
	require.NoError(t, err)
	assert.Equal(t, BackendMultiplexed, info.Backend)
	assert.Equal(t, name, info.ExternalName)

	status := m.MultiplexerStatus()
	assert.True(t, status.Available)
	assert.True(t, status.Enabled)
	assert.Equal(t, "tmux 3.4", status.Version)
}

func TestCommandSessionSkipsDefaultCommand(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")

	name, err := m.CreateSession(context.Background(), CreateRequest{ID: "job00001", Dir: t.TempDir(), Command: "make"})
	require.NoError(t, err)

	s, ok := runner.Get(name)
	require.True(t, ok)
	assert.Equal(t, "/bin/bash --norc --noprofile -c 'make'", s.Command)
	_, hasDefault := s.Options["default-command"]
	assert.False(t, hasDefault)
}

func TestCreateRejectsExternalNameCollision(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	ctx := context.Background()

	_, err := m.CreateSession(ctx, CreateRequest{ID: "aaaa1111-first", Dir: t.TempDir()})
	require.NoError(t, err)

	// Same first eight characters, different ID.
	_, err = m.CreateSession(ctx, CreateRequest{ID: "aaaa1111-second", Dir: t.TempDir()})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// A surviving tmux session from a previous run also blocks the name.
	runner.Add("ph-bbbb2222", "/tmp")
	_, err = m.CreateSession(ctx, CreateRequest{ID: "bbbb2222-new", Dir: t.TempDir()})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Len(t, m.ListSessions(), 1)
}

func TestCreateToleratesOptionFailures(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	runner.FailOn("set-option", tmux.ErrCommandFailed)

	name, err := m.CreateSession(context.Background(), CreateRequest{ID: "cccc3333", Dir: t.TempDir()})

	require.NoError(t, err)
	s, ok := runner.Get(name)
	require.True(t, ok)
	assert.Empty(t, s.Options)
	assert.Equal(t, []string{"cccc3333"}, m.ListSessions())
}

func TestCreateCleansUpWhenSessionNeverAnswers(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	runner.FailOn("has-session", tmux.ErrCommandFailed)

	_, err := m.CreateSession(context.Background(), CreateRequest{ID: "cccc4444", Dir: t.TempDir()})

	assert.ErrorIs(t, err, ErrExternalCommandFailed)
	assert.False(t, runner.Has("ph-cccc4444"))
	assert.Empty(t, m.ListSessions())
}

func TestCommandSessionFinishedBeforeAttach(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	runner.FinishCommands()

	name, err := m.CreateSession(context.Background(), CreateRequest{ID: "cccc5555", Dir: t.TempDir(), Command: "echo done; exit 3"})

	require.NoError(t, err)
	assert.Equal(t, "ph-cccc5555", name)
	assert.Equal(t, []string{"cccc5555"}, m.ListSessions())
}

func TestOptionsTargetSessionWindow(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")

	name, err := m.CreateSession(context.Background(), CreateRequest{ID: "cccc6666", Dir: t.TempDir()})
	require.NoError(t, err)

	for _, call := range runner.Calls() {
		if call[0] == "set-option" {
			assert.Equal(t, []string{"set-option", "-t", "=" + name + ":"}, call[:3])
		}
	}
}

func TestDetachKeepsExternalSession(t *testing.T) {
	rec := &recorder{}
	m, runner := newMultiplexedManager(t, rec, "ph-")
	ctx := context.Background()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "dddd4444", Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, m.DetachSession(ctx, "dddd4444"))
	assert.True(t, runner.Has(name))
	assert.Empty(t, m.ListSessions())

	// Detached transports are silenced.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.exits("dddd4444"))

	ok, err := m.AttachSession(ctx, AttachRequest{ID: "dddd4444", ExternalName: name, Dir: t.TempDir(), Cols: 90, Rows: 20})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, m.IsActive(ctx, "dddd4444"))

	s, _ := runner.Get(name)
	assert.Equal(t, 90, s.Cols)
	assert.Equal(t, 20, s.Rows)

	require.NoError(t, m.Write("dddd4444", []byte("echo back-$((3*3))\n")))
	waitOutput(t, rec, "dddd4444", "back-9")
}

func TestAttachToVanishedSession(t *testing.T) {
	m, _ := newMultiplexedManager(t, &recorder{}, "ph-")

	_, err := m.AttachSession(context.Background(), AttachRequest{ID: "gone", ExternalName: "ph-gone0000", Dir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.ListSessions())
}

func TestAttachReplacesExistingTransport(t *testing.T) {
	rec := &recorder{}
	m, _ := newMultiplexedManager(t, rec, "ph-")
	ctx := context.Background()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "eeee5555", Dir: t.TempDir()})
	require.NoError(t, err)

	ok, err := m.AttachSession(ctx, AttachRequest{ID: "eeee5555", ExternalName: name, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"eeee5555"}, m.ListSessions())

	// The replaced transport's death does not surface as an exit.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.exits("eeee5555"))

	require.NoError(t, m.Write("eeee5555", []byte("echo new-$((5+5))\n")))
	waitOutput(t, rec, "eeee5555", "new-10")
}

func TestAttachRejectsNameOwnedByAnotherSession(t *testing.T) {
	m, _ := newMultiplexedManager(t, &recorder{}, "ph-")
	ctx := context.Background()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "ffff6666", Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = m.AttachSession(ctx, AttachRequest{ID: "other", ExternalName: name, Dir: t.TempDir()})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCloseMultiplexedKillsExternalSession(t *testing.T) {
	rec := &recorder{}
	m, runner := newMultiplexedManager(t, rec, "ph-")
	ctx := context.Background()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "abab1212", Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = m.CloseSession(ctx, "abab1212")
	require.NoError(t, err)
	assert.False(t, runner.Has(name))
	assert.False(t, m.IsActive(ctx, "abab1212"))
	assert.Len(t, rec.exits("abab1212"), 1)
}

func TestIsActiveChecksTmux(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	ctx := context.Background()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "cdcd3434", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, m.IsActive(ctx, "cdcd3434"))

	runner.Remove(name)
	assert.False(t, m.IsActive(ctx, "cdcd3434"))
}

func TestResizeUpdatesTmuxWindow(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	ctx := context.Background()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "efef5656", Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, m.Resize(ctx, "efef5656", 150, 50))
	require.NoError(t, m.Resize(ctx, "efef5656", 1, 1))

	s, _ := runner.Get(name)
	assert.Equal(t, 150, s.Cols)
	assert.Equal(t, 50, s.Rows)
}

func TestCloseAllMixedBackends(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	ctx := context.Background()

	name, err := m.CreateSession(ctx, CreateRequest{ID: "1a2b3c4d", Dir: t.TempDir()})
	require.NoError(t, err)

	m.SetUseMultiplexer(false)
	_, err = m.CreateSession(ctx, CreateRequest{ID: "direct01", Dir: t.TempDir()})
	require.NoError(t, err)
	info, err := m.SessionInfo("direct01")
	require.NoError(t, err)
	assert.Equal(t, BackendDirect, info.Backend)

	assert.Equal(t, 2, m.CloseAll(ctx))

	assert.False(t, m.IsActive(ctx, "direct01"))
	assert.True(t, runner.Has(name))
}

func TestSweepOrphans(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "app-")
	runner.Add("app-aaaa1111", "/a")
	runner.Add("app-bbbb2222", "/b")
	runner.Add("app-cccc3333", "/c")
	runner.Add("unrelated", "/u")

	orphans, err := m.Orphans(context.Background(), []string{"app-aaaa1111"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app-bbbb2222", "app-cccc3333"}, orphans)

	killed, err := m.SweepOrphans(context.Background(), []string{"app-aaaa1111"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app-bbbb2222", "app-cccc3333"}, killed)
	assert.Equal(t, []string{"app-aaaa1111", "unrelated"}, runner.Names())
}

func TestSweepKeepsTrackedSessions(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")

	name, err := m.CreateSession(context.Background(), CreateRequest{ID: "77778888", Dir: t.TempDir()})
	require.NoError(t, err)

	killed, err := m.SweepOrphans(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, killed)
	assert.True(t, runner.Has(name))
}

func TestSweepSkipsKillFailures(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	runner.Add("ph-dead0001", "/x")
	runner.FailOn("kill-session", tmux.ErrCommandFailed)

	killed, err := m.SweepOrphans(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, killed)
	assert.True(t, runner.Has("ph-dead0001"))
}

func TestListExternal(t *testing.T) {
	m, runner := newMultiplexedManager(t, &recorder{}, "ph-")
	runner.Add("ph-1234abcd", "/srv")
	runner.Add("mine", "/home")

	sessions, err := m.ListExternal(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "ph-1234abcd", sessions[0].Name)
	assert.Equal(t, "/srv", sessions[0].Path)
}
