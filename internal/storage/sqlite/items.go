package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

const itemSelect = `
	SELECT i.id, i.title, i.category_id, c.name, i.type, i.status, i.image_url,
	       i.created_at, i.updated_at
	FROM items i
	LEFT JOIN categories c ON c.id = i.category_id
`

// CreateItem validates and inserts a new item.
// ID, timestamps and the default pending status are filled in; the category must exist.
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *types.Item, actor string) error {
	if item.Status == "" {
		item.Status = types.StatusPending
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := s.timestamp()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var categoryName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, item.CategoryID).Scan(&categoryName)
	if err == sql.ErrNoRows {
		return fmt.Errorf("category %s: %w", item.CategoryID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up category: %w", err)
	}
	item.CategoryName = &categoryName

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, title, category_id, type, status, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Title, item.CategoryID, string(item.Type), string(item.Status), nullString(item.ImageURL),
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	if err := s.recordEvent(ctx, tx, item.ID, types.EventCreated, actor, nil, item); err != nil {
		return err
	}

	return tx.Commit()
}

// GetItem returns the item with the given ID, or nil if it does not exist
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*types.Item, error) {
	return getItem(ctx, s.db, id)
}

// ListItems returns items matching filter, newest first
func (s *SQLiteStorage) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.Item, error) {
	return listItems(ctx, s.db, filter)
}

// ListDoneItems returns every done item, newest first, with category names resolved
func (s *SQLiteStorage) ListDoneItems(ctx context.Context) ([]types.Item, error) {
	status := types.StatusDone
	items, err := listItems(ctx, s.db, types.ItemFilter{Status: &status})
	if err != nil {
		return nil, err
	}
	done := make([]types.Item, 0, len(items))
	for _, item := range items {
		done = append(done, *item)
	}
	return done, nil
}

// UpdateItemStatus moves an item to a new status and records the change.
// Setting the current status again is a no-op.
func (s *SQLiteStorage) UpdateItemStatus(ctx context.Context, id string, status types.Status, actor string) (*types.Item, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	item, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if item.Status == status {
		return item, nil
	}

	oldStatus := item.Status
	item.Status = status
	item.UpdatedAt = s.timestamp()

	_, err = tx.ExecContext(ctx, `UPDATE items SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(item.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	err = s.recordEvent(ctx, tx, id, types.EventStatusChanged, actor,
		map[string]types.Status{"status": oldStatus},
		map[string]types.Status{"status": status})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item and returns it as it was before deletion
func (s *SQLiteStorage) DeleteItem(ctx context.Context, id string, actor string) (*types.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	item, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}
	if err := s.recordEvent(ctx, tx, id, types.EventDeleted, actor, item, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return item, nil
}

func getItem(ctx context.Context, q queryer, id string) (*types.Item, error) {
	row := q.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func listItems(ctx context.Context, q queryer, filter types.ItemFilter) ([]*types.Item, error) {
	var whereClauses []string
	var args []interface{}

	if filter.Type != nil {
		whereClauses = append(whereClauses, "i.type = ?")
		args = append(args, string(*filter.Type))
	}
	if filter.Status != nil {
		whereClauses = append(whereClauses, "i.status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.CategoryID != nil {
		whereClauses = append(whereClauses, "i.category_id = ?")
		args = append(args, *filter.CategoryID)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = " LIMIT ?"
		args = append(args, filter.Limit)
	}

	query := fmt.Sprintf("%s %s ORDER BY i.created_at DESC, i.rowid DESC%s", itemSelect, whereSQL, limitSQL)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func scanItem(row rowScanner) (*types.Item, error) {
	var item types.Item
	var title, categoryName, imageURL sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&item.ID, &title, &item.CategoryID, &categoryName, &item.Type, &item.Status,
		&imageURL, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Title = title.String
	if categoryName.Valid {
		item.CategoryName = &categoryName.String
	}
	if imageURL.Valid {
		item.ImageURL = &imageURL.String
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	return &item, nil
}

// nullString maps a missing value to SQL NULL
func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
