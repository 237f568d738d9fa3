package storage

import (
	"context"

	"github.com/syahfalah4787/wishlist-bug/internal/storage/sqlite"
	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

// DefaultPath is where `wishlist init` places the database
const DefaultPath = ".wishlist/wishlist.db"

// ErrNotFound is returned (wrapped) when a mutation targets a missing row
var ErrNotFound = sqlite.ErrNotFound

// Storage defines the interface for item storage backends
type Storage interface {
	// Categories
	CreateCategory(ctx context.Context, category *types.Category) error
	GetCategory(ctx context.Context, id string) (*types.Category, error)
	ListCategories(ctx context.Context) ([]*types.Category, error)
	DeleteCategory(ctx context.Context, id string, actor string) ([]*types.Item, error)

	// Items
	CreateItem(ctx context.Context, item *types.Item, actor string) error
	GetItem(ctx context.Context, id string) (*types.Item, error)
	ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.Item, error)
	ListDoneItems(ctx context.Context) ([]types.Item, error)
	UpdateItemStatus(ctx context.Context, id string, status types.Status, actor string) (*types.Item, error)
	DeleteItem(ctx context.Context, id string, actor string) (*types.Item, error)

	// Events
	GetEvents(ctx context.Context, itemID string, limit int) ([]*types.Event, error)

	// Statistics
	GetStatistics(ctx context.Context) (*types.Statistics, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".wishlist/wishlist.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: DefaultPath,
	}
}

// NewStorage opens the SQLite backend described by cfg.
// Failures to open or migrate the database are returned as *ConfigError.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	store, err := sqlite.New(ctx, cfg.Path)
	if err != nil {
		return nil, &ConfigError{Path: cfg.Path, Err: err}
	}
	return store, nil
}
