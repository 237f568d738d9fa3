package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

// CreateCategory validates and inserts a category, assigning its ID and timestamp
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *types.Category) error {
	if err := category.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	category.ID = uuid.NewString()
	category.CreatedAt = s.timestamp()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at)
		VALUES (?, ?, ?)
	`, category.ID, category.Name, formatTime(category.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// GetCategory returns the category with the given ID, or nil if it does not exist
func (s *SQLiteStorage) GetCategory(ctx context.Context, id string) (*types.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	category, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// ListCategories returns all categories, newest first
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]*types.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM categories
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []*types.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category together with its items.
// The removed items are returned so callers can clean up attached images.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id string, actor string) ([]*types.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	filter := types.ItemFilter{CategoryID: &id}
	items, err := listItems(ctx, tx, filter)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}

	// The foreign key cascade removed the items; keep their audit trail
	for _, item := range items {
		if err := s.recordEvent(ctx, tx, item.ID, types.EventDeleted, actor, item, nil); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return items, nil
}

func scanCategory(row rowScanner) (*types.Category, error) {
	var category types.Category
	var createdAt string
	if err := row.Scan(&category.ID, &category.Name, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	category.CreatedAt = t
	return &category, nil
}
