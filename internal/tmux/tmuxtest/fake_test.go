package tmuxtest

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/ptyhost/internal/tmux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowCommandsRejectBareExactTarget(t *testing.T) {
	r := NewRunner()
	r.Add("ph-1", "/tmp")
	ctx := context.Background()

	_, err := r.Run(ctx, "tmux", "set-option", "-t", "=ph-1", "status", "off")
	assert.ErrorIs(t, err, tmux.ErrCommandFailed)

	_, err = r.Run(ctx, "tmux", "set-option", "-t", "=ph-1:", "status", "off")
	require.NoError(t, err)
	s, _ := r.Get("ph-1")
	assert.Equal(t, "off", s.Options["status"])

	_, err = r.Run(ctx, "tmux", "has-session", "-t", "=ph-1")
	assert.NoError(t, err)
}

func TestListEscapesControlCharacters(t *testing.T) {
	r := NewRunner()
	r.Add("ph-1", "/srv")

	out, err := r.Run(context.Background(), "tmux", "list-sessions", "-F", "#{session_name}\t#{session_path}")
	require.NoError(t, err)
	assert.Equal(t, "ph-1_/srv", out)
}

func TestClientAgainstFake(t *testing.T) {
	r := NewRunner()
	r.Add("ph-aaaa1111", "/srv/a")
	r.Add("other", "/srv/o")
	c := tmux.New("tmux", tmux.WithRunner(r))
	ctx := context.Background()

	require.NoError(t, c.Configure(ctx, "ph-aaaa1111", 100, ""))
	s, _ := r.Get("ph-aaaa1111")
	assert.Equal(t, "100", s.Options["history-limit"])

	sessions, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "ph-aaaa1111", sessions[0].Name)
	assert.Equal(t, "/srv/a", sessions[0].Path)
	assert.False(t, sessions[0].Created.IsZero())
}
