package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := map[string]struct {
		original string
		want     string
	}{
		"plain":            {original: "screenshot.png", want: "1700000000123_screenshot.png"},
		"spaces":           {original: "my shot (1).png", want: "1700000000123_my_shot_1_.png"},
		"path stripped":    {original: "../../etc/passwd", want: "1700000000123_passwd"},
		"windows path":     {original: `C:\Users\me\bug.jpg`, want: "1700000000123_bug.jpg"},
		"empty":            {original: "", want: "1700000000123_upload"},
		"only unsafe":      {original: "???", want: "1700000000123_upload"},
		"leading dot file": {original: ".hidden", want: "1700000000123_hidden"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ObjectName(now, tt.original))
		})
	}
}

func TestPutOpenRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	store := NewStore(logr.Discard(), dir, "/images/")
	ctx := context.Background()

	n, err := store.Put(ctx, "1_bug.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	f, err := store.Open("1_bug.png")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "png-bytes", string(data))

	// No temporary file left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = store.Put(ctx, "1_bug.png", strings.NewReader("v2"))
	require.NoError(t, err)
	f, err = store.Open("1_bug.png")
	require.NoError(t, err)
	data, _ = io.ReadAll(f)
	_ = f.Close()
	assert.Equal(t, "v2", string(data))

	require.NoError(t, store.Remove("1_bug.png"))
	require.NoError(t, store.Remove("1_bug.png"), "missing object is not an error")

	_, err = store.Open("1_bug.png")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestInvalidNames(t *testing.T) {
	store := NewStore(logr.Discard(), t.TempDir(), "/images")
	for _, name := range []string{"", ".", "..", "../x", "a/b", "x.tmp"} {
		_, err := store.Put(context.Background(), name, strings.NewReader("x"))
		assert.True(t, errors.Is(err, ErrInvalidName), name)
	}
}

func TestPutHonorsContext(t *testing.T) {
	store := NewStore(logr.Discard(), t.TempDir(), "/images")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, "1_x.png", strings.NewReader("data"))
	require.Error(t, err)
	_, err = store.Open("1_x.png")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestURLRoundTrip(t *testing.T) {
	store := NewStore(logr.Discard(), t.TempDir(), "/images/")
	url := store.URL("1_bug.png")
	assert.Equal(t, "/images/1_bug.png", url)

	name, ok := store.NameFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "1_bug.png", name)

	_, ok = store.NameFromURL("https://cdn.example.com/1_bug.png")
	assert.False(t, ok)
	_, ok = store.NameFromURL("/images/../secret")
	assert.False(t, ok)
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	var m keyedMutex
	var (
		wg      sync.WaitGroup
		counter = make(map[string]int)
		countMu sync.Mutex
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("obj-%d", i%8)
			unlock := m.Lock(key)
			defer unlock()
			countMu.Lock()
			counter[key]++
			countMu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, counter, 8)
	assert.Zero(t, m.size())

	store := NewStore(logr.Discard(), t.TempDir(), "/images")
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("%d_bug.png", i)
		_, err := store.Put(ctx, name, strings.NewReader("png-bytes"))
		require.NoError(t, err)
		require.NoError(t, store.Remove(name))
	}
	assert.Zero(t, store.keyedMutex.size())
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var m keyedMutex
	unlock := m.Lock("a")

	acquired := make(chan struct{})
	go func() {
		unlockB := m.Lock("a")
		close(acquired)
		unlockB()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock on the same key did not block")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, m.size())

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock was never granted")
	}
}
