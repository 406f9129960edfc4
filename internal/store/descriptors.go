package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/GriffinCanCode/ptyhost/internal/shared/id"
)

// MaxDescriptors caps how many sessions are saved and restored.
const MaxDescriptors = 10

// DescriptorInput is one session to persist.
type DescriptorInput struct {
	SessionID        string `json:"session_id"`
	ProjectID        string `json:"project_id"`
	TabName          string `json:"tab_name"`
	TabType          string `json:"tab_type"`
	WorkingDirectory string `json:"working_directory"`
	SortOrder        int    `json:"sort_order"`
	ExternalName     string `json:"external_name,omitempty"`
}

// Descriptor is a persisted session.
type Descriptor struct {
	ID string `json:"id"`
	DescriptorInput
	CreatedAt time.Time `json:"created_at"`
}

// SaveDescriptors replaces every stored descriptor with the first
// MaxDescriptors of inputs. It returns how many were stored.
func (s *Store) SaveDescriptors(ctx context.Context, inputs []DescriptorInput) (int, error) {
	if len(inputs) > MaxDescriptors {
		inputs = inputs[:MaxDescriptors]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM terminal_sessions"); err != nil {
		return 0, fmt.Errorf("clear descriptors: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO terminal_sessions
		(id, session_id, project_id, tab_name, tab_type, working_directory, sort_order, external_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, in := range inputs {
		tabType := in.TabType
		if tabType == "" {
			tabType = "shell"
		}
		_, err := stmt.ExecContext(ctx,
			id.NewDescriptorID().String(),
			in.SessionID,
			in.ProjectID,
			in.TabName,
			tabType,
			in.WorkingDirectory,
			in.SortOrder,
			nullString(in.ExternalName),
		)
		if err != nil {
			return 0, fmt.Errorf("insert descriptor %s: %w", in.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return len(inputs), nil
}

// LoadDescriptors returns stored descriptors ordered by sort order.
func (s *Store) LoadDescriptors(ctx context.Context) ([]Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, project_id, tab_name, tab_type,
		working_directory, sort_order, external_name, created_at
		FROM terminal_sessions
		ORDER BY sort_order ASC, created_at ASC
		LIMIT ?`, MaxDescriptors)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	var out []Descriptor
	for rows.Next() {
		var d Descriptor
		var external sql.NullString
		var created sql.NullTime
		if err := rows.Scan(&d.ID, &d.SessionID, &d.ProjectID, &d.TabName, &d.TabType,
			&d.WorkingDirectory, &d.SortOrder, &external, &created); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		d.ExternalName = external.String
		d.CreatedAt = created.Time
		out = append(out, d)
	}
	return out, rows.Err()
}

// KnownExternalNames returns the tmux session names referenced by stored
// descriptors.
func (s *Store) KnownExternalNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT external_name FROM terminal_sessions WHERE external_name IS NOT NULL AND external_name != ''")
	if err != nil {
		return nil, fmt.Errorf("query external names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan external name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
