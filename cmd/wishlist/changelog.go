package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syahfalah4787/wishlist-bug/internal/changelog"
	"github.com/syahfalah4787/wishlist-bug/internal/client"
)

var (
	changelogFormat   string
	changelogOutput   string
	changelogDownload bool
	changelogPlain    bool
	changelogRemote   string
	changelogTimeout  time.Duration
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Print the changelog of finished items",
	Long: `Print the changelog built from every item marked done.

Sections appear in a fixed order (BUG FIXED, ADD FEATURE, CHANGES) and items
keep their creation order within a section. When the database cannot be used
the command prints a short sentinel message instead of failing.

Example:
  wishlist changelog
  wishlist changelog --format json
  wishlist changelog --download                  # writes changelog-YYYY-MM-DD.txt
  wishlist changelog --remote http://localhost:8080`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationOptionalStore: ""},
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		opts := changelogOptions{
			Format:   changelogFormat,
			Output:   changelogOutput,
			Download: changelogDownload,
			Plain:    changelogPlain,
			Remote:   changelogRemote,
			Timeout:  changelogTimeout,
			Now:      time.Now,
		}
		a.exitOnError(a.runChangelog(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts))
	},
}

func init() {
	changelogCmd.Flags().StringVar(&changelogFormat, "format", "text", "Output format: text, json, yaml")
	changelogCmd.Flags().StringVarP(&changelogOutput, "output", "o", "-", "Write to file instead of stdout (- for stdout)")
	changelogCmd.Flags().BoolVar(&changelogDownload, "download", false, "Write the plain-text changelog to changelog-YYYY-MM-DD.txt")
	changelogCmd.Flags().BoolVar(&changelogPlain, "plain", false, "Disable colored headings")
	changelogCmd.Flags().StringVar(&changelogRemote, "remote", "", "Read from a running server at this URL")
	changelogCmd.Flags().DurationVar(&changelogTimeout, "timeout", 10*time.Second, "Request timeout for --remote")
	rootCmd.AddCommand(changelogCmd)
}

type changelogOptions struct {
	Format   string
	Output   string
	Download bool
	Plain    bool
	Remote   string
	Timeout  time.Duration
	Now      func() time.Time
}

// changelogDocument is the json and yaml rendering of a changelog
type changelogDocument struct {
	Data  string           `json:"data" yaml:"data"`
	Stats changelog.Counts `json:"stats" yaml:"stats"`
	Error string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func (a *app) runChangelog(ctx context.Context, stdout, stderr io.Writer, opts changelogOptions) error {
	switch opts.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q (want text, json or yaml)", opts.Format)
	}

	if opts.Download {
		return a.downloadChangelog(ctx, stdout, opts)
	}

	var (
		report  changelog.Report
		errName string
	)
	if opts.Remote != "" {
		c := client.NewClient(opts.Remote)
		if opts.Timeout > 0 {
			c.SetTimeout(opts.Timeout)
		}
		r, err := c.Changelog(ctx)
		if err != nil {
			return err
		}
		report = r
	} else {
		res := changelog.Fetch(ctx, a.store)
		if res.Outcome.Failed() {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Fprintf(stderr, "%s %v\n", yellow("Warning:"), res.Err)
			errName = res.Outcome.String()
		}
		report = res.Report
	}

	out := stdout
	plain := opts.Plain
	if opts.Output != "" && opts.Output != "-" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.Output, err)
		}
		defer f.Close()
		out = f
		plain = true
	}

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(changelogDocument{Data: report.Text, Stats: report.Counts, Error: errName}); err != nil {
			return fmt.Errorf("failed to encode changelog: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(changelogDocument{Data: report.Text, Stats: report.Counts, Error: errName}); err != nil {
			return fmt.Errorf("failed to encode changelog: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode changelog: %w", err)
		}
	default:
		if err := changelog.FormatTerminal(out, report, changelog.FormatOptions{Plain: plain}); err != nil {
			return fmt.Errorf("failed to write changelog: %w", err)
		}
		if out == stdout && !plain && report.Counts.Total() > 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Fprintf(stdout, "\n%s\n", gray(changelog.FormatSummary(report.Counts)))
		}
	}
	return nil
}

// downloadChangelog writes the plain-text attachment into the current directory
func (a *app) downloadChangelog(ctx context.Context, w io.Writer, opts changelogOptions) error {
	var (
		filename string
		body     []byte
	)
	if opts.Remote != "" {
		c := client.NewClient(opts.Remote)
		if opts.Timeout > 0 {
			c.SetTimeout(opts.Timeout)
		}
		name, data, err := c.DownloadChangelog(ctx)
		if err != nil {
			return err
		}
		filename, body = filepath.Base(name), data
	} else {
		res := changelog.Fetch(ctx, a.store)
		filename, body = changelog.DownloadFilename(opts.Now()), []byte(res.Report.Text)
	}

	if opts.Output != "" && opts.Output != "-" {
		filename = opts.Output
	}
	if err := os.WriteFile(filename, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "%s Wrote %s\n", green("✓"), filename)
	return nil
}
