package changelog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

func item(typ types.ItemType, title string) types.Item {
	return types.Item{Type: typ, Title: title, Status: types.StatusDone}
}

func TestBuild(t *testing.T) {
	tests := map[string]struct {
		items      []types.Item
		wantText   string
		wantCounts Counts
	}{
		"nil input": {
			items:    nil,
			wantText: EmptyText,
		},
		"empty input": {
			items:    []types.Item{},
			wantText: EmptyText,
		},
		"single bug": {
			items:      []types.Item{item(types.TypeBug, "Crash on save")},
			wantText:   "BUG FIXED:\n1. Fix: Crash on save\n",
			wantCounts: Counts{BugFixed: 1},
		},
		"mixed input rendered in fixed section order": {
			items: []types.Item{
				item(types.TypeNewFeature, "Dark mode"),
				item(types.TypeBug, "Null title"),
				item(types.TypeFeatureUpdate, "Faster search"),
			},
			wantText: "BUG FIXED:\n1. Fix: Null title\n" +
				"\n" +
				"ADD FEATURE:\n1. Add: Dark mode\n" +
				"\n" +
				"CHANGES:\n1. Changes: Faster search\n",
			wantCounts: Counts{BugFixed: 1, FeatureAdded: 1, FeatureUpdated: 1},
		},
		"numbering restarts per section": {
			items: []types.Item{
				item(types.TypeBug, "First"),
				item(types.TypeBug, "Second"),
				item(types.TypeNewFeature, "Third"),
			},
			wantText:   "BUG FIXED:\n1. Fix: First\n2. Fix: Second\n\nADD FEATURE:\n1. Add: Third\n",
			wantCounts: Counts{BugFixed: 2, FeatureAdded: 1},
		},
		"input order kept within a section": {
			items: []types.Item{
				item(types.TypeFeatureUpdate, "Newest"),
				item(types.TypeBug, "Only bug"),
				item(types.TypeFeatureUpdate, "Oldest"),
			},
			wantText:   "BUG FIXED:\n1. Fix: Only bug\n\nCHANGES:\n1. Changes: Newest\n2. Changes: Oldest\n",
			wantCounts: Counts{BugFixed: 1, FeatureUpdated: 2},
		},
		"unrecognized type excluded": {
			items: []types.Item{
				item("chore", "Bump deps"),
				item(types.TypeNewFeature, "Export CSV"),
			},
			wantText:   "ADD FEATURE:\n1. Add: Export CSV\n",
			wantCounts: Counts{FeatureAdded: 1},
		},
		"only unrecognized types": {
			items:    []types.Item{item("chore", "Bump deps"), item("Bug", "Case differs")},
			wantText: EmptyText,
		},
		"empty title": {
			items:      []types.Item{item(types.TypeBug, "")},
			wantText:   "BUG FIXED:\n1. Fix: \n",
			wantCounts: Counts{BugFixed: 1},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := Build(tt.items)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantCounts, got.Counts)
		})
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	items := []types.Item{
		item(types.TypeBug, "A"),
		item(types.TypeFeatureUpdate, "B"),
		item(types.TypeNewFeature, "C"),
		item(types.TypeBug, "D"),
	}

	first := Build(items)
	second := Build(items)
	assert.Equal(t, first, second)
}

func TestBuildDoesNotConsultStatusOrCategory(t *testing.T) {
	name := "Checkout"
	items := []types.Item{
		{Type: types.TypeBug, Title: "Pending bug", Status: types.StatusPending, CategoryName: &name},
	}

	got := Build(items)
	assert.Equal(t, "BUG FIXED:\n1. Fix: Pending bug\n", got.Text)
	assert.NotContains(t, got.Text, name)
}

func TestBuildWhitespace(t *testing.T) {
	items := []types.Item{
		item(types.TypeBug, "a"),
		item(types.TypeNewFeature, "b"),
		item(types.TypeFeatureUpdate, "c"),
	}
	text := Build(items).Text

	assert.False(t, strings.HasPrefix(text, "\n"), "no leading blank line")
	assert.False(t, strings.HasSuffix(text, "\n\n"), "no trailing blank line")
	assert.Equal(t, 2, strings.Count(text, "\n\n"), "one blank line between sections")
	assert.NotContains(t, text, "\n\n\n")

	single := Build([]types.Item{item(types.TypeBug, "a"), item(types.TypeBug, "b")}).Text
	assert.NotContains(t, single, "\n\n")
}

func TestBuildCountsMatchLines(t *testing.T) {
	items := []types.Item{
		item(types.TypeBug, "1"),
		item(types.TypeBug, "2"),
		item(types.TypeBug, "3"),
		item(types.TypeNewFeature, "4"),
		item(types.TypeFeatureUpdate, "5"),
		item(types.TypeFeatureUpdate, "6"),
		item("unknown", "7"),
	}
	got := Build(items)

	require.Equal(t, 6, got.Counts.Total())
	assert.Equal(t, got.Counts.BugFixed, strings.Count(got.Text, ". Fix: "))
	assert.Equal(t, got.Counts.FeatureAdded, strings.Count(got.Text, ". Add: "))
	assert.Equal(t, got.Counts.FeatureUpdated, strings.Count(got.Text, ". Changes: "))
}
