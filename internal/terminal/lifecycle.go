package terminal

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/ptyhost/internal/tmux"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Orphans returns the namespaced tmux sessions that are neither in known nor
// tracked by this Manager.
func (m *Manager) Orphans(ctx context.Context, known []string) ([]string, error) {
	if m.tmux == nil {
		return nil, nil
	}
	sessions, err := m.tmux.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalCommandFailed, err)
	}

	keep := lo.SliceToMap(known, func(name string) (string, struct{}) { return name, struct{}{} })
	m.mu.Lock()
	for _, s := range m.sessions {
		if name := s.backend.ExternalName(); name != "" {
			keep[name] = struct{}{}
		}
	}
	for _, name := range m.pending {
		if name != "" {
			keep[name] = struct{}{}
		}
	}
	m.mu.Unlock()

	names := lo.Map(sessions, func(s tmux.SessionInfo, _ int) string { return s.Name })
	return lo.Filter(names, func(name string, _ int) bool {
		_, ok := keep[name]
		return !ok
	}), nil
}

// SweepOrphans kills namespaced tmux sessions left behind by a previous run
// that are not in known. Failures to kill one session are logged and
// skipped. It returns the names that were killed.
func (m *Manager) SweepOrphans(ctx context.Context, known []string) ([]string, error) {
	orphans, err := m.Orphans(ctx, known)
	if err != nil {
		return nil, err
	}

	var killed []string
	failed := 0
	for _, name := range orphans {
		if err := m.tmux.KillSession(ctx, name); err != nil {
			failed++
			m.logger.Warn("failed to kill orphaned tmux session",
				zap.String("external_name", name),
				zap.Error(err))
			continue
		}
		killed = append(killed, name)
		m.logger.Info("killed orphaned tmux session", zap.String("external_name", name))
	}

	m.metrics.RecordSweep(len(killed), failed)
	if len(orphans) > 0 {
		m.logger.Info("orphan sweep finished",
			zap.Int("killed", len(killed)),
			zap.Int("failed", failed),
			zap.Int("known", len(known)))
	}
	return killed, nil
}
