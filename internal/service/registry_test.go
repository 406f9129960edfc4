package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
)

type mockProvider struct {
	id  string
	err error
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "A mock service for testing",
		Category:     types.CategoryTerminal,
		Capabilities: []string{"read", "write"},
		Tools: []types.Tool{
			{
				ID:          m.id + ".test",
				Name:        "Test Tool",
				Description: "A test tool",
				Returns:     "string",
			},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"tool": toolID, "params": len(params)},
	}, nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(&mockProvider{id: "test"}))
	_, ok := r.Get("test")
	assert.True(t, ok)

	assert.Error(t, r.Register(&mockProvider{id: ""}))

	r.Unregister("test")
	_, ok = r.Get("test")
	assert.False(t, ok)
}

func TestListSortedAndFiltered(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockProvider{id: "zeta"})
	r.Register(&mockProvider{id: "alpha"})

	services := r.List(nil)
	require.Len(t, services, 2)
	assert.Equal(t, "alpha", services[0].ID)
	assert.Equal(t, "zeta", services[1].ID)

	cat := types.CategorySystem
	assert.Empty(t, r.List(&cat))
}

func TestExecute(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	r := NewRegistry(metrics)
	r.Register(&mockProvider{id: "test"})

	result, err := r.Execute(context.Background(), "test.test", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "test.test", result.Data["tool"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ServiceCalls.WithLabelValues("test", "test.test", "ok")))
}

func TestExecuteErrors(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("boom")
	r.Register(&mockProvider{id: "bad", err: boom})

	_, err := r.Execute(context.Background(), "notool", nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	result, err := r.Execute(context.Background(), "missing.tool", nil, nil)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.False(t, result.Success)

	_, err = r.Execute(context.Background(), "bad.test", nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestStats(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockProvider{id: "test1"})
	r.Register(&mockProvider{id: "test2"})

	stats := r.Stats()
	assert.Equal(t, 2, stats["total_services"])
	assert.Equal(t, 2, stats["total_tools"])
	assert.Equal(t, map[string]int{"terminal": 2}, stats["categories"])
}
