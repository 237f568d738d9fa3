package changelog

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// headingStyles maps section headings to their terminal color.
var headingStyles = map[string]*color.Color{
	"BUG FIXED:":   color.New(color.FgYellow, color.Bold),
	"ADD FEATURE:": color.New(color.FgGreen, color.Bold),
	"CHANGES:":     color.New(color.FgBlue, color.Bold),
}

// FormatOptions controls the terminal output formatting.
type FormatOptions struct {
	Plain bool // Disable colors
}

// FormatTerminal writes the report text to w, coloring section headings.
// Plain mode writes the text byte for byte.
func FormatTerminal(w io.Writer, r Report, opts FormatOptions) error {
	if opts.Plain {
		_, err := io.WriteString(w, r.Text)
		return err
	}

	lines := strings.SplitAfter(r.Text, "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		heading := strings.TrimSuffix(line, "\n")
		if style, ok := headingStyles[heading]; ok {
			if _, err := fmt.Fprintf(w, "%s%s", style.Sprint(heading), line[len(heading):]); err != nil {
				return err
			}
			continue
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatSummary returns a one-line count summary, e.g. "2 fixed, 1 added, 0 changed".
func FormatSummary(c Counts) string {
	return fmt.Sprintf("%d fixed, %d added, %d changed", c.BugFixed, c.FeatureAdded, c.FeatureUpdated)
}

// DownloadFilename names the downloadable changelog after the UTC date of t.
func DownloadFilename(t time.Time) string {
	return "changelog-" + t.UTC().Format("2006-01-02") + ".txt"
}
