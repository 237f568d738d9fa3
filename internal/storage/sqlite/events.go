package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

// recordEvent appends an audit entry inside tx. Values are stored as JSON; nil is stored as NULL.
func (s *SQLiteStorage) recordEvent(ctx context.Context, tx *sql.Tx, itemID string, eventType types.EventType, actor string, oldValue, newValue interface{}) error {
	oldJSON, err := marshalValue(oldValue)
	if err != nil {
		return err
	}
	newJSON, err := marshalValue(newValue)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (item_id, event_type, actor, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, itemID, string(eventType), actor, oldJSON, newJSON, formatTime(s.timestamp()))
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func marshalValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event value: %w", err)
	}
	return string(data), nil
}

// GetEvents returns the audit trail for an item, newest first.
// A limit of 0 or less returns every event.
func (s *SQLiteStorage) GetEvents(ctx context.Context, itemID string, limit int) ([]*types.Event, error) {
	query := `
		SELECT id, item_id, event_type, actor, old_value, new_value, created_at
		FROM events
		WHERE item_id = ?
		ORDER BY id DESC
	`
	args := []interface{}{itemID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*types.Event
	for rows.Next() {
		var event types.Event
		var oldValue, newValue sql.NullString
		var createdAt string
		if err := rows.Scan(&event.ID, &event.ItemID, &event.EventType, &event.Actor,
			&oldValue, &newValue, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if oldValue.Valid {
			event.OldValue = &oldValue.String
		}
		if newValue.Valid {
			event.NewValue = &newValue.String
		}
		if event.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// GetStatistics returns item counts by status and type
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	stats := &types.Statistics{ByType: make(map[types.ItemType]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)
		FROM items
	`).Scan(&stats.TotalItems, &stats.PendingItems, &stats.InProgressItems, &stats.DoneItems)
	if err != nil {
		return nil, fmt.Errorf("failed to get item counts: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&stats.TotalCategories); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM items GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items by type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var itemType types.ItemType
		var count int
		if err := rows.Scan(&itemType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		stats.ByType[itemType] = count
	}
	return stats, rows.Err()
}
