package sqlite

import "github.com/syahfalah4787/wishlist-bug/internal/storage/migrations"

// schemaMigrations is the full schema history, applied in order on open.
var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "create categories, items and events tables",
		Up: `
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- Items belong to a category and go away with it
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    image_url TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);
CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);

-- Audit trail, kept after the item is deleted
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_item ON events(item_id);
`,
		Down: `
DROP TABLE IF EXISTS events;
DROP TABLE IF EXISTS items;
DROP TABLE IF EXISTS categories;
`,
	},
	{
		Version:     2,
		Description: "index items by status for changelog queries",
		Up:          `CREATE INDEX IF NOT EXISTS idx_items_status_created ON items(status, created_at)`,
		Down:        `DROP INDEX IF EXISTS idx_items_status_created`,
	},
}
