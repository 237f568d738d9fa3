package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/syahfalah4787/wishlist-bug/internal/api"
	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/changelog"
	"github.com/syahfalah4787/wishlist-bug/internal/config"
	"github.com/syahfalah4787/wishlist-bug/internal/storage"
	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// newTestApp returns an app backed by an in-memory store
func newTestApp(t *testing.T) *app {
	t.Helper()
	testStore, err := storage.NewStorage(context.Background(), &storage.Config{Path: ":memory:"})
	require.NoError(t, err)

	originalNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		_ = testStore.Close()
		color.NoColor = originalNoColor
	})
	return &app{store: testStore, log: logr.Discard(), flush: func() {}}
}

func seedCategory(t *testing.T, s storage.Storage, name string) *types.Category {
	t.Helper()
	c := &types.Category{Name: name}
	require.NoError(t, s.CreateCategory(context.Background(), c))
	return c
}

func seedItem(t *testing.T, s storage.Storage, categoryID, title string, typ types.ItemType, done bool) *types.Item {
	t.Helper()
	ctx := context.Background()
	item := &types.Item{Title: title, CategoryID: categoryID, Type: typ}
	require.NoError(t, s.CreateItem(ctx, item, "test"))
	if done {
		_, err := s.UpdateItemStatus(ctx, item.ID, types.StatusDone, "test")
		require.NoError(t, err)
	}
	return item
}

func TestRunInit(t *testing.T) {
	a := &app{log: logr.Discard()}
	dir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, a.runInit(context.Background(), &out, dir, "shop"))
	assert.Contains(t, out.String(), "Initialized wishlist tracker")
	assert.FileExists(t, filepath.Join(dir, ".wishlist", "shop.db"))

	err := a.runInit(context.Background(), &out, dir, "shop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCategoryCommands(t *testing.T) {
	a := newTestApp(t)
	s := a.store
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, a.runCategoryList(ctx, &out))
	assert.Contains(t, out.String(), "No categories yet")

	out.Reset()
	require.NoError(t, a.runCategoryAdd(ctx, &out, "  Checkout "))
	assert.Contains(t, out.String(), "Created category Checkout")

	require.Error(t, a.runCategoryAdd(ctx, &out, "   "))

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	seedItem(t, s, categories[0].ID, "Broken cart", types.TypeBug, false)

	out.Reset()
	require.NoError(t, a.runCategoryList(ctx, &out))
	assert.Contains(t, out.String(), "Checkout")

	out.Reset()
	require.NoError(t, a.runCategoryDelete(ctx, &out, categories[0].ID))
	assert.Contains(t, out.String(), "(1 items)")

	err = a.runCategoryDelete(ctx, &out, categories[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestItemCommands(t *testing.T) {
	a := newTestApp(t)
	s := a.store
	ctx := context.Background()
	cat := seedCategory(t, s, "Core")
	blobs := blob.NewStore(logr.Discard(), t.TempDir(), "/images")

	imagePath := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(imagePath, pngBytes, 0644))

	var out bytes.Buffer
	item := &types.Item{Title: "Crash on save", CategoryID: cat.ID, Type: types.TypeBug}
	require.NoError(t, a.runItemAdd(ctx, &out, item, imagePath, blobs))
	assert.Contains(t, out.String(), "Created bug Crash on save")
	require.NotNil(t, item.ImageURL)
	name, ok := blobs.NameFromURL(*item.ImageURL)
	require.True(t, ok)
	f, err := blobs.Open(name)
	require.NoError(t, err)
	f.Close()

	err = a.runItemAdd(ctx, &out, &types.Item{Title: "x", CategoryID: "missing", Type: types.TypeBug}, "", blobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = a.runItemAdd(ctx, &out, &types.Item{Title: "x", CategoryID: cat.ID, Type: "chore"}, "", blobs)
	require.Error(t, err)

	out.Reset()
	require.NoError(t, a.runItemStatus(ctx, &out, item.ID, "proses"))
	assert.Contains(t, out.String(), "is now in_progress")

	require.Error(t, a.runItemStatus(ctx, &out, item.ID, "closed"))
	require.Error(t, a.runItemStatus(ctx, &out, "missing", "done"))

	out.Reset()
	filter, err := parseItemFilter("bug", "in_progress", 0)
	require.NoError(t, err)
	require.NoError(t, a.runItemList(ctx, &out, filter))
	assert.Contains(t, out.String(), "Crash on save")
	assert.Contains(t, out.String(), "[Core]")

	out.Reset()
	require.NoError(t, a.runItemHistory(ctx, &out, item.ID, 10))
	assert.Contains(t, out.String(), "status_changed")
	assert.Contains(t, out.String(), "created")

	out.Reset()
	require.NoError(t, a.runItemDelete(ctx, &out, item.ID, blobs))
	assert.Contains(t, out.String(), "Deleted Crash on save")
	_, err = blobs.Open(name)
	assert.True(t, os.IsNotExist(err))

	out.Reset()
	require.NoError(t, a.runItemList(ctx, &out, types.ItemFilter{}))
	assert.Contains(t, out.String(), "No items found")
}

func TestItemAddRejectsNonImage(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	cat := seedCategory(t, a.store, "Core")
	dir := t.TempDir()
	blobs := blob.NewStore(logr.Discard(), filepath.Join(dir, "images"), "/images")

	pagePath := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(pagePath, []byte("<html><script>alert(1)</script></html>"), 0644))

	var out bytes.Buffer
	err := a.runItemAdd(ctx, &out, &types.Item{Title: "Crash", CategoryID: cat.ID, Type: types.TypeBug}, pagePath, blobs)
	require.Error(t, err)
	assert.ErrorIs(t, err, blob.ErrNotImage)

	items, err := a.store.ListItems(ctx, types.ItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	entries, _ := os.ReadDir(filepath.Join(dir, "images"))
	assert.Empty(t, entries)
}

func TestParseItemFilter(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		status  string
		limit   int
		wantErr bool
	}{
		{name: "empty"},
		{name: "type and status", typ: "new_feature", status: "done", limit: 5},
		{name: "legacy status", status: "belum"},
		{name: "bad type", typ: "chore", wantErr: true},
		{name: "bad status", status: "closed", wantErr: true},
		{name: "negative limit", limit: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := parseItemFilter(tt.typ, tt.status, tt.limit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.limit, filter.Limit)
			assert.Equal(t, tt.typ != "", filter.Type != nil)
			assert.Equal(t, tt.status != "", filter.Status != nil)
		})
	}
}

func TestChangelogCommand(t *testing.T) {
	a := newTestApp(t)
	s := a.store
	ctx := context.Background()
	cat := seedCategory(t, s, "Core")
	seedItem(t, s, cat.ID, "Crash on save", types.TypeBug, true)
	seedItem(t, s, cat.ID, "Faster search", types.TypeFeatureUpdate, true)
	seedItem(t, s, cat.ID, "Someday", types.TypeNewFeature, false)

	want := "BUG FIXED:\n1. Fix: Crash on save\n\nCHANGES:\n1. Changes: Faster search\n"

	t.Run("text", func(t *testing.T) {
		var out, errOut bytes.Buffer
		require.NoError(t, a.runChangelog(ctx, &out, &errOut, changelogOptions{Format: "text", Plain: true}))
		assert.Equal(t, want, out.String())
		assert.Empty(t, errOut.String())
	})

	t.Run("text with summary", func(t *testing.T) {
		var out, errOut bytes.Buffer
		require.NoError(t, a.runChangelog(ctx, &out, &errOut, changelogOptions{Format: "text"}))
		assert.True(t, strings.HasPrefix(out.String(), want))
		assert.Contains(t, out.String(), "1 fixed, 0 added, 1 changed")
	})

	t.Run("json", func(t *testing.T) {
		var out, errOut bytes.Buffer
		require.NoError(t, a.runChangelog(ctx, &out, &errOut, changelogOptions{Format: "json"}))
		var doc changelogDocument
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, want, doc.Data)
		assert.Equal(t, changelog.Counts{BugFixed: 1, FeatureUpdated: 1}, doc.Stats)
		assert.Empty(t, doc.Error)
	})

	t.Run("yaml", func(t *testing.T) {
		var out, errOut bytes.Buffer
		require.NoError(t, a.runChangelog(ctx, &out, &errOut, changelogOptions{Format: "yaml"}))
		var doc changelogDocument
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, want, doc.Data)
		assert.Equal(t, 1, doc.Stats.BugFixed)
		assert.Contains(t, out.String(), "bug_fixed: 1")
	})

	t.Run("output file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		var out, errOut bytes.Buffer
		require.NoError(t, a.runChangelog(ctx, &out, &errOut, changelogOptions{Format: "text", Output: path}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
		assert.Empty(t, out.String())
	})

	t.Run("download", func(t *testing.T) {
		t.Chdir(t.TempDir())
		now := func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
		var out, errOut bytes.Buffer
		require.NoError(t, a.runChangelog(ctx, &out, &errOut, changelogOptions{Format: "text", Download: true, Now: now}))
		assert.Contains(t, out.String(), "changelog-2024-03-09.txt")
		data, err := os.ReadFile("changelog-2024-03-09.txt")
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	})

	t.Run("invalid format", func(t *testing.T) {
		var out, errOut bytes.Buffer
		assert.Error(t, a.runChangelog(ctx, &out, &errOut, changelogOptions{Format: "xml"}))
	})
}

func TestChangelogCommandWithoutStore(t *testing.T) {
	a := newTestApp(t)
	a.store = nil

	var out, errOut bytes.Buffer
	require.NoError(t, a.runChangelog(context.Background(), &out, &errOut, changelogOptions{Format: "json"}))
	var doc changelogDocument
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, changelog.ConfigErrorText, doc.Data)
	assert.Equal(t, "config_error", doc.Error)
	assert.Zero(t, doc.Stats.Total())
	assert.Contains(t, errOut.String(), "Warning:")
}

func TestChangelogCommandRemote(t *testing.T) {
	a := newTestApp(t)
	s := a.store
	cat := seedCategory(t, s, "Core")
	seedItem(t, s, cat.ID, "Dark mode", types.TypeNewFeature, true)

	now := func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	ts := httptest.NewServer(api.New(s, nil, logr.Discard(), api.Options{Now: now}))
	defer ts.Close()

	// The local store is not consulted
	local := &app{log: logr.Discard()}

	var out, errOut bytes.Buffer
	opts := changelogOptions{Format: "text", Plain: true, Remote: ts.URL, Timeout: 5 * time.Second}
	require.NoError(t, local.runChangelog(context.Background(), &out, &errOut, opts))
	assert.Equal(t, "ADD FEATURE:\n1. Add: Dark mode\n", out.String())

	t.Chdir(t.TempDir())
	out.Reset()
	opts.Download = true
	require.NoError(t, local.runChangelog(context.Background(), &out, &errOut, opts))
	data, err := os.ReadFile("changelog-2025-01-02.txt")
	require.NoError(t, err)
	assert.Equal(t, "ADD FEATURE:\n1. Add: Dark mode\n", string(data))
}

func TestStatsCommand(t *testing.T) {
	a := newTestApp(t)
	s := a.store
	cat := seedCategory(t, s, "Core")
	seedItem(t, s, cat.ID, "a", types.TypeBug, true)
	seedItem(t, s, cat.ID, "b", types.TypeNewFeature, false)

	var out bytes.Buffer
	require.NoError(t, a.runStats(context.Background(), &out))
	assert.Contains(t, out.String(), "Total:       2")
	assert.Contains(t, out.String(), "Done:        1")
	assert.Contains(t, out.String(), "Categories: 1")
}

func TestResolveDBPath(t *testing.T) {
	originalFlag := dbFlag
	t.Cleanup(func() { dbFlag = originalFlag })

	dbFlag = "/tmp/explicit.db"
	path, err := resolveDBPath(&config.Config{DBPath: "/tmp/config.db"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.db", path)

	dbFlag = ""
	path, err = resolveDBPath(&config.Config{DBPath: "/tmp/config.db"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/config.db", path)

	t.Setenv(storage.EnvDBPath, "")
	t.Chdir(t.TempDir())
	_, err = resolveDBPath(nil)
	require.Error(t, err)
	var cfgErr *storage.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestAppFromContext(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	bare := appFrom(cmd)
	require.NotNil(t, bare)
	assert.Nil(t, bare.store)
	bare.close()

	a := newTestApp(t)
	cmd.SetContext(withApp(context.Background(), a))
	assert.Same(t, a, appFrom(cmd))
}
