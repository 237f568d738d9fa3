// Package changelog derives release notes from finished work items.
//
// This package implements:
//   - Build: the pure transformation from done items to changelog text and counts
//   - Fetch: loading done items from a store and folding failures into sentinel reports
//   - Terminal formatting and download file naming for the CLI and HTTP layers
//
// Build never sorts, filters by status, or consults categories. The caller hands it
// done items newest first and it preserves that order within each section.
package changelog
