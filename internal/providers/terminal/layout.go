package terminal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
	"github.com/GriffinCanCode/ptyhost/internal/store"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
)

// Restore outcomes per descriptor.
const (
	restoreActive   = "active"
	restoreAttached = "attached"
	restoreCreated  = "created"
	restoreFailed   = "failed"
)

var errNoStore = errors.New("layout store not configured")

func (p *Provider) saveLayout(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	if p.store == nil {
		return nil, errNoStore
	}
	raw, ok := params["sessions"].([]interface{})
	if !ok {
		return nil, invalid("sessions must be an array")
	}

	inputs := make([]store.DescriptorInput, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, invalid("sessions[%d] must be an object", i)
		}
		in, err := p.descriptorInput(entry, i)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}

	saved, err := p.store.SaveDescriptors(ctx, inputs)
	if err != nil {
		return nil, err
	}
	p.metrics.AddDescriptorsSaved(saved)
	p.logger.Info("layout saved", zap.Int("requested", len(inputs)), zap.Int("saved", saved))

	return success(map[string]interface{}{
		"saved":     saved,
		"truncated": len(inputs) > saved,
	})
}

// descriptorInput fills the external name from the live session when the
// caller did not send one.
func (p *Provider) descriptorInput(entry map[string]interface{}, index int) (store.DescriptorInput, error) {
	sessionID, err := requireString(entry, "session_id")
	if err != nil {
		return store.DescriptorInput{}, fmt.Errorf("sessions[%d]: %w", index, err)
	}
	sortOrder, err := optionalInt(entry, "sort_order", index)
	if err != nil {
		return store.DescriptorInput{}, fmt.Errorf("sessions[%d]: %w", index, err)
	}

	in := store.DescriptorInput{
		SessionID:        sessionID,
		ProjectID:        optionalString(entry, "project_id"),
		TabName:          optionalString(entry, "tab_name"),
		TabType:          optionalString(entry, "tab_type"),
		WorkingDirectory: optionalString(entry, "working_directory"),
		SortOrder:        sortOrder,
		ExternalName:     optionalString(entry, "external_name"),
	}

	if info, err := p.manager.SessionInfo(sessionID); err == nil {
		if in.ExternalName == "" {
			in.ExternalName = info.ExternalName
		}
		if in.WorkingDirectory == "" {
			in.WorkingDirectory = info.WorkingDirectory
		}
	}
	in.WorkingDirectory = defaultDir(in.WorkingDirectory)
	return in, nil
}

// restoreLayout brings every saved session back: surviving tmux sessions are
// reattached, everything else is recreated in its working directory.
func (p *Provider) restoreLayout(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	if p.store == nil {
		return nil, errNoStore
	}
	cols, rows, err := sizeParams(params)
	if err != nil {
		return nil, err
	}

	descriptors, err := p.store.LoadDescriptors(ctx)
	if err != nil {
		return nil, err
	}

	restored := 0
	entries := make([]map[string]interface{}, 0, len(descriptors))
	for _, d := range descriptors {
		status, externalName, err := p.restoreOne(ctx, d, cols, rows)
		entry := map[string]interface{}{
			"session_id":        d.SessionID,
			"project_id":        d.ProjectID,
			"tab_name":          d.TabName,
			"tab_type":          d.TabType,
			"working_directory": d.WorkingDirectory,
			"sort_order":        d.SortOrder,
			"external_name":     externalName,
			"status":            status,
		}
		if err != nil {
			entry["error"] = err.Error()
			p.logger.Warn("failed to restore session",
				zap.String("session_id", d.SessionID),
				zap.String("external_name", d.ExternalName),
				zap.Error(err))
		}
		if status == restoreAttached || status == restoreCreated {
			restored++
		}
		entries = append(entries, entry)
	}
	p.metrics.AddDescriptorsRestored(restored)

	return success(map[string]interface{}{
		"sessions": entries,
		"restored": restored,
	})
}

func (p *Provider) restoreOne(ctx context.Context, d store.Descriptor, cols, rows int) (string, string, error) {
	if info, err := p.manager.SessionInfo(d.SessionID); err == nil {
		return restoreActive, info.ExternalName, nil
	}

	if d.ExternalName != "" {
		_, err := p.manager.AttachSession(ctx, terminal.AttachRequest{
			ID:           d.SessionID,
			ExternalName: d.ExternalName,
			Dir:          d.WorkingDirectory,
			Cols:         cols,
			Rows:         rows,
		})
		if err == nil {
			return restoreAttached, d.ExternalName, nil
		}
		if !errors.Is(err, terminal.ErrNotFound) && !errors.Is(err, terminal.ErrExternalCommandFailed) {
			return restoreFailed, d.ExternalName, err
		}
		p.logger.Info("saved tmux session gone, recreating",
			zap.String("session_id", d.SessionID),
			zap.String("external_name", d.ExternalName))
	}

	externalName, err := p.manager.CreateSession(ctx, terminal.CreateRequest{
		ID:   d.SessionID,
		Dir:  defaultDir(d.WorkingDirectory),
		Cols: cols,
		Rows: rows,
	})
	if err != nil {
		return restoreFailed, "", err
	}
	return restoreCreated, externalName, nil
}

func (p *Provider) multiplexerStatus() (*types.Result, error) {
	status := p.manager.MultiplexerStatus()
	return success(map[string]interface{}{
		"available": status.Available,
		"version":   status.Version,
		"enabled":   status.Enabled,
		"prefix":    status.Prefix,
	})
}

func (p *Provider) listExternal(ctx context.Context) (*types.Result, error) {
	sessions, err := p.manager.ListExternal(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, map[string]interface{}{
			"name":    s.Name,
			"path":    s.Path,
			"created": s.Created,
		})
	}
	return success(map[string]interface{}{
		"sessions": list,
		"count":    len(list),
	})
}

func (p *Provider) setUseMultiplexer(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	enabled, err := requireBool(params, "enabled")
	if err != nil {
		return nil, err
	}

	p.manager.SetUseMultiplexer(enabled)

	persisted := false
	if p.store != nil {
		if err := p.store.SetUseMultiplexer(ctx, enabled); err != nil {
			return nil, err
		}
		persisted = true
	}
	return success(map[string]interface{}{
		"enabled":   enabled,
		"persisted": persisted,
	})
}
