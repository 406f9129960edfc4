package terminal

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
	"github.com/GriffinCanCode/ptyhost/internal/store"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
)

func newTestProvider(t *testing.T) (*Provider, *store.Store) {
	t.Helper()
	manager := terminal.NewManager(context.Background(), nil, terminal.Options{
		Shell:     "/bin/sh",
		ExitGrace: 200 * time.Millisecond,
	})
	t.Cleanup(func() { manager.CloseAll(context.Background()) })

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return NewProvider(manager, s, nil, nil), s
}

func run(t *testing.T, p *Provider, toolID string, params map[string]interface{}) *types.Result {
	t.Helper()
	if params == nil {
		params = map[string]interface{}{}
	}
	result, err := p.Execute(context.Background(), toolID, params, &types.Context{})
	require.NoError(t, err, toolID)
	require.True(t, result.Success, toolID)
	return result
}

func TestDefinitionListsEveryTool(t *testing.T) {
	p, _ := newTestProvider(t)
	def := p.Definition()

	assert.Equal(t, "terminal", def.ID)
	assert.Len(t, def.Tools, 17)
	for _, tool := range def.Tools {
		assert.True(t, strings.HasPrefix(tool.ID, "terminal."), tool.ID)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	dir := t.TempDir()

	created := run(t, p, "terminal.create_session", map[string]interface{}{
		"session_id":        "tab-1",
		"working_directory": dir,
		"cols":              float64(100),
		"rows":              float64(30),
	})
	assert.Equal(t, "tab-1", created.Data["session_id"])
	assert.Equal(t, "direct", created.Data["backend"])
	assert.Equal(t, "", created.Data["external_name"])
	assert.Equal(t, dir, created.Data["working_directory"])

	run(t, p, "terminal.write", map[string]interface{}{
		"session_id": "tab-1",
		"data":       base64.StdEncoding.EncodeToString([]byte("echo round-$((1+1))\n")),
	})

	var output strings.Builder
	require.Eventually(t, func() bool {
		r := run(t, p, "terminal.read", map[string]interface{}{"session_id": "tab-1"})
		output.WriteString(r.Data["output"].(string))
		return strings.Contains(output.String(), "round-2")
	}, 5*time.Second, 20*time.Millisecond)

	run(t, p, "terminal.resize", map[string]interface{}{"session_id": "tab-1", "cols": float64(120), "rows": float64(40)})
	info := run(t, p, "terminal.get_session", map[string]interface{}{"session_id": "tab-1"})
	assert.Equal(t, 120, info.Data["cols"])
	assert.Equal(t, 40, info.Data["rows"])

	list := run(t, p, "terminal.list_sessions", nil)
	assert.Equal(t, []string{"tab-1"}, list.Data["sessions"])

	active := run(t, p, "terminal.is_active", map[string]interface{}{"session_id": "tab-1"})
	assert.Equal(t, true, active.Data["active"])
	assert.Equal(t, 1, run(t, p, "terminal.active_count", nil).Data["count"])

	closed := run(t, p, "terminal.close", map[string]interface{}{"session_id": "tab-1"})
	assert.Equal(t, true, closed.Data["closed"])
	assert.Nil(t, closed.Data["exit_code"])

	active = run(t, p, "terminal.is_active", map[string]interface{}{"session_id": "tab-1"})
	assert.Equal(t, false, active.Data["active"])
}

func TestCreateGeneratesID(t *testing.T) {
	p, _ := newTestProvider(t)

	r := run(t, p, "terminal.create_session", map[string]interface{}{"working_directory": t.TempDir()})
	id, _ := r.Data["session_id"].(string)
	assert.Len(t, id, 36)
}

func TestWriteText(t *testing.T) {
	p, _ := newTestProvider(t)
	run(t, p, "terminal.create_session", map[string]interface{}{"session_id": "s", "working_directory": t.TempDir()})

	r := run(t, p, "terminal.write", map[string]interface{}{"session_id": "s", "text": "true\n"})
	assert.Equal(t, 5, r.Data["written"])
}

func TestErrorsKeepTheirKind(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Execute(ctx, "terminal.write", map[string]interface{}{"session_id": "ghost", "text": "x"}, nil)
	assert.ErrorIs(t, err, terminal.ErrNotFound)

	_, err = p.Execute(ctx, "terminal.write", map[string]interface{}{"session_id": "ghost", "data": "%%%"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = p.Execute(ctx, "terminal.resize", map[string]interface{}{"session_id": "ghost", "cols": "wide", "rows": float64(3)}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = p.Execute(ctx, "terminal.close", map[string]interface{}{}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = p.Execute(ctx, "terminal.nope", nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	run(t, p, "terminal.create_session", map[string]interface{}{"session_id": "dup", "working_directory": t.TempDir()})
	_, err = p.Execute(ctx, "terminal.create_session", map[string]interface{}{"session_id": "dup"}, nil)
	assert.ErrorIs(t, err, terminal.ErrAlreadyExists)
}

func TestAttachWithoutTmux(t *testing.T) {
	p, _ := newTestProvider(t)

	_, err := p.Execute(context.Background(), "terminal.attach_session", map[string]interface{}{
		"session_id":    "s",
		"external_name": "ph-deadbeef",
	}, nil)
	assert.ErrorIs(t, err, terminal.ErrExternalCommandFailed)
}

func TestMultiplexerPreferencePersists(t *testing.T) {
	p, s := newTestProvider(t)

	status := run(t, p, "terminal.multiplexer_status", nil)
	assert.Equal(t, false, status.Data["available"])

	r := run(t, p, "terminal.set_use_multiplexer", map[string]interface{}{"enabled": true})
	assert.Equal(t, true, r.Data["persisted"])

	enabled, ok, err := s.UseMultiplexer(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, enabled)

	status = run(t, p, "terminal.multiplexer_status", nil)
	assert.Equal(t, true, status.Data["enabled"])

	external := run(t, p, "terminal.list_external", nil)
	assert.Equal(t, 0, external.Data["count"])
}

func TestSaveAndRestoreLayout(t *testing.T) {
	p, s := newTestProvider(t)
	ctx := context.Background()
	dirA, dirB := t.TempDir(), t.TempDir()

	run(t, p, "terminal.create_session", map[string]interface{}{"session_id": "a", "working_directory": dirA})

	saved := run(t, p, "terminal.save_layout", map[string]interface{}{
		"sessions": []interface{}{
			map[string]interface{}{"session_id": "a", "tab_name": "one", "sort_order": float64(0)},
			map[string]interface{}{"session_id": "b", "tab_name": "two", "working_directory": dirB, "sort_order": float64(1)},
		},
	})
	assert.Equal(t, 2, saved.Data["saved"])

	descriptors, err := s.LoadDescriptors(ctx)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	assert.Equal(t, dirA, descriptors[0].WorkingDirectory)

	restored := run(t, p, "terminal.restore_layout", nil)
	assert.Equal(t, 1, restored.Data["restored"])

	entries := restored.Data["sessions"].([]map[string]interface{})
	require.Len(t, entries, 2)
	assert.Equal(t, "active", entries[0]["status"])
	assert.Equal(t, "created", entries[1]["status"])

	info := run(t, p, "terminal.get_session", map[string]interface{}{"session_id": "b"})
	assert.Equal(t, dirB, info.Data["working_directory"])
}

func TestCloseAllReleasesSessions(t *testing.T) {
	p, _ := newTestProvider(t)
	run(t, p, "terminal.create_session", map[string]interface{}{"session_id": "x", "working_directory": t.TempDir()})
	run(t, p, "terminal.create_session", map[string]interface{}{"session_id": "y", "working_directory": t.TempDir()})

	r := run(t, p, "terminal.close_all", nil)
	assert.Equal(t, 2, r.Data["closed"])
	assert.Equal(t, 0, run(t, p, "terminal.list_sessions", nil).Data["count"])
}

func TestRejectsUnsafeIdentifiers(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Execute(ctx, "terminal.create_session", map[string]interface{}{"session_id": "bad id;rm"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = p.Execute(ctx, "terminal.attach_session", map[string]interface{}{
		"session_id":    "ok",
		"external_name": "=ph-x",
	}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParams)
}
