package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesFileAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ptyhost.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.SaveDescriptors(ctx, []DescriptorInput{{SessionID: "s1", WorkingDirectory: "/a"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are not reapplied and data survives.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadDescriptors(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].SessionID)
}

func TestSaveAndLoadDescriptors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.SaveDescriptors(ctx, []DescriptorInput{
		{SessionID: "b", ProjectID: "p1", TabName: "server", WorkingDirectory: "/srv", SortOrder: 2, ExternalName: "ph-bbbbbbbb"},
		{SessionID: "a", ProjectID: "p1", TabName: "shell", TabType: "shell", WorkingDirectory: "/home", SortOrder: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.LoadDescriptors(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].SessionID)
	assert.Empty(t, got[0].ExternalName)
	assert.Equal(t, "b", got[1].SessionID)
	assert.Equal(t, "ph-bbbbbbbb", got[1].ExternalName)
	assert.Equal(t, "shell", got[1].TabType)
	assert.Contains(t, got[1].ID, "desc_")
	assert.False(t, got[1].CreatedAt.IsZero())
}

func TestSaveReplacesAndCaps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveDescriptors(ctx, []DescriptorInput{{SessionID: "old", WorkingDirectory: "/"}})
	require.NoError(t, err)

	var inputs []DescriptorInput
	for i := 0; i < 15; i++ {
		inputs = append(inputs, DescriptorInput{SessionID: fmt.Sprintf("s%02d", i), WorkingDirectory: "/", SortOrder: i})
	}
	n, err := s.SaveDescriptors(ctx, inputs)
	require.NoError(t, err)
	assert.Equal(t, MaxDescriptors, n)

	got, err := s.LoadDescriptors(ctx)
	require.NoError(t, err)
	require.Len(t, got, MaxDescriptors)
	assert.Equal(t, "s00", got[0].SessionID)
	for _, d := range got {
		assert.NotEqual(t, "old", d.SessionID)
	}
}

func TestKnownExternalNames(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveDescriptors(ctx, []DescriptorInput{
		{SessionID: "a", WorkingDirectory: "/", ExternalName: "ph-aaaa1111"},
		{SessionID: "b", WorkingDirectory: "/"},
		{SessionID: "c", WorkingDirectory: "/", ExternalName: "ph-cccc3333"},
	})
	require.NoError(t, err)

	names, err := s.KnownExternalNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ph-aaaa1111", "ph-cccc3333"}, names)
}

func TestSettings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.UseMultiplexer(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetUseMultiplexer(ctx, false))
	enabled, ok, err := s.UseMultiplexer(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, enabled)

	require.NoError(t, s.SetUseMultiplexer(ctx, true))
	enabled, _, err = s.UseMultiplexer(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.SetSetting(ctx, SettingUseMultiplexer, "maybe"))
	_, _, err = s.UseMultiplexer(ctx)
	assert.Error(t, err)
}
