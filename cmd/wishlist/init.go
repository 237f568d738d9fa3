package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syahfalah4787/wishlist-bug/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Initialize a wishlist tracker in the current directory",
	Long: `Initialize a wishlist tracker by creating a .wishlist/ directory with a database.

This creates:
  - .wishlist/ directory
  - .wishlist/<name>.db (SQLite database with the current schema)

If no name is provided, "wishlist" is used.

Example:
  cd ~/myproject
  wishlist init            # Creates .wishlist/wishlist.db
  wishlist init shop       # Creates .wishlist/shop.db`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationNoStore: ""},
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		cwd, err := os.Getwd()
		if err != nil {
			a.exitOnError(fmt.Errorf("failed to get current directory: %w", err))
		}
		a.exitOnError(a.runInit(cmd.Context(), cmd.OutOrStdout(), cwd, name))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func (a *app) runInit(ctx context.Context, w io.Writer, dir, name string) error {
	dbPath, err := storage.InitProject(dir, name)
	if err != nil {
		return err
	}

	// Opening the store applies the schema
	db, err := storage.NewStorage(ctx, &storage.Config{Path: dbPath})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	_ = db.Close()

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s Initialized wishlist tracker\n\n", green("✓"))
	fmt.Fprintf(w, "  Database: %s\n", cyan(dbPath))
	fmt.Fprintf(w, "  Project root: %s\n\n", cyan(dir))
	fmt.Fprintf(w, "%s Next steps:\n", gray("→"))
	fmt.Fprintf(w, "  %s\n", gray("wishlist category add \"Checkout\""))
	fmt.Fprintf(w, "  %s\n", gray("wishlist serve"))
	fmt.Fprintln(w)
	return nil
}
