package changelog

import (
	"fmt"
	"strings"

	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

// EmptyText is the changelog text when no item falls into any section.
const EmptyText = "No changelog yet"

// Counts holds the number of entries in each section.
type Counts struct {
	BugFixed       int `json:"bugFixed" yaml:"bug_fixed"`
	FeatureAdded   int `json:"featureAdded" yaml:"feature_added"`
	FeatureUpdated int `json:"featureUpdated" yaml:"feature_updated"`
}

// Total returns the number of items that made it into the text.
func (c Counts) Total() int {
	return c.BugFixed + c.FeatureAdded + c.FeatureUpdated
}

// Report is the rendered changelog.
type Report struct {
	Text   string `json:"data" yaml:"data"`
	Counts Counts `json:"stats" yaml:"stats"`
}

// section describes how one item type is rendered.
type section struct {
	itemType types.ItemType
	heading  string
	verb     string
}

// sections is the fixed output order.
var sections = []section{
	{itemType: types.TypeBug, heading: "BUG FIXED:", verb: "Fix"},
	{itemType: types.TypeNewFeature, heading: "ADD FEATURE:", verb: "Add"},
	{itemType: types.TypeFeatureUpdate, heading: "CHANGES:", verb: "Changes"},
}

// Build renders done items into the changelog text and section counts.
//
// Items are grouped by exact type. Unrecognized types belong to no section and are
// not counted. Within a section, items keep their input order and are numbered
// from 1. Sections are separated by a single blank line.
func Build(items []types.Item) Report {
	groups := partition(items)

	counts := Counts{
		BugFixed:       len(groups[types.TypeBug]),
		FeatureAdded:   len(groups[types.TypeNewFeature]),
		FeatureUpdated: len(groups[types.TypeFeatureUpdate]),
	}

	var blocks []string
	for _, s := range sections {
		titles := groups[s.itemType]
		if len(titles) == 0 {
			continue
		}
		blocks = append(blocks, renderSection(s, titles))
	}

	if len(blocks) == 0 {
		return Report{Text: EmptyText}
	}
	return Report{Text: strings.Join(blocks, "\n"), Counts: counts}
}

// partition collects titles per recognized type, preserving input order.
func partition(items []types.Item) map[types.ItemType][]string {
	groups := make(map[types.ItemType][]string, len(sections))
	for _, item := range items {
		if !item.Type.IsValid() {
			continue
		}
		groups[item.Type] = append(groups[item.Type], item.Title)
	}
	return groups
}

func renderSection(s section, titles []string) string {
	var b strings.Builder
	b.WriteString(s.heading)
	b.WriteByte('\n')
	for i, title := range titles {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s.verb, title)
	}
	return b.String()
}
