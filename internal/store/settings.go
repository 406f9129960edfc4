package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// SettingUseMultiplexer stores the tmux backend preference.
const SettingUseMultiplexer = "use_multiplexer"

// GetSetting returns a setting's value and whether it is set.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// UseMultiplexer returns the stored backend preference, if any.
func (s *Store) UseMultiplexer(ctx context.Context) (enabled bool, ok bool, err error) {
	value, ok, err := s.GetSetting(ctx, SettingUseMultiplexer)
	if err != nil || !ok {
		return false, false, err
	}
	enabled, err = strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("parse %s: %w", SettingUseMultiplexer, err)
	}
	return enabled, true, nil
}

// SetUseMultiplexer stores the backend preference.
func (s *Store) SetUseMultiplexer(ctx context.Context, enabled bool) error {
	return s.SetSetting(ctx, SettingUseMultiplexer, strconv.FormatBool(enabled))
}
