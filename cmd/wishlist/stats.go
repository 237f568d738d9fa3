package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show item and category counts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		a.exitOnError(a.runStats(cmd.Context(), cmd.OutOrStdout()))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func (a *app) runStats(ctx context.Context, w io.Writer) error {
	stats, err := a.store.GetStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\n%s\n\n", cyan("=== Wishlist Statistics ==="))
	fmt.Fprintf(w, "%s\n", yellow("Items:"))
	fmt.Fprintf(w, "  Total:       %d\n", stats.TotalItems)
	fmt.Fprintf(w, "  Pending:     %d\n", stats.PendingItems)
	fmt.Fprintf(w, "  In progress: %d\n", stats.InProgressItems)
	fmt.Fprintf(w, "  Done:        %d\n\n", stats.DoneItems)

	fmt.Fprintf(w, "%s\n", yellow("By type:"))
	for _, t := range types.ItemTypes {
		fmt.Fprintf(w, "  %-15s %d\n", string(t)+":", stats.ByType[t])
	}
	fmt.Fprintf(w, "\n%s %d\n\n", yellow("Categories:"), stats.TotalCategories)
	return nil
}
