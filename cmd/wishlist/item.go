package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/storage"
	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

var (
	itemTitle    string
	itemCategory string
	itemType     string
	itemImage    string

	itemListType   string
	itemListStatus string
	itemListLimit  int

	itemHistoryLimit int
)

var itemCmd = &cobra.Command{
	Use:     "item",
	Aliases: []string{"items"},
	Short:   "Manage work items",
}

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a work item",
	Long: `Create a work item in a category. New items start as pending.

Example:
  wishlist item add --title "Crash on save" --category <id> --type bug
  wishlist item add --title "Dark mode" --category <id> --type new_feature --image shot.png`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		item := &types.Item{
			Title:      itemTitle,
			CategoryID: itemCategory,
			Type:       types.ItemType(itemType),
		}
		a.exitOnError(a.runItemAdd(cmd.Context(), cmd.OutOrStdout(), item, itemImage, a.imageStore()))
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work items, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		filter, err := parseItemFilter(itemListType, itemListStatus, itemListLimit)
		a.exitOnError(err)
		a.exitOnError(a.runItemList(cmd.Context(), cmd.OutOrStdout(), filter))
	},
}

var itemStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change the status of an item (pending, in_progress, done)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		a.exitOnError(a.runItemStatus(cmd.Context(), cmd.OutOrStdout(), args[0], args[1]))
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item and its image",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		a.exitOnError(a.runItemDelete(cmd.Context(), cmd.OutOrStdout(), args[0], a.imageStore()))
	},
}

var itemHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the audit trail of an item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		a.exitOnError(a.runItemHistory(cmd.Context(), cmd.OutOrStdout(), args[0], itemHistoryLimit))
	},
}

func init() {
	itemAddCmd.Flags().StringVar(&itemTitle, "title", "", "Item title (required)")
	itemAddCmd.Flags().StringVar(&itemCategory, "category", "", "Category ID (required)")
	itemAddCmd.Flags().StringVar(&itemType, "type", "", "Item type: bug, new_feature, feature_update (required)")
	itemAddCmd.Flags().StringVar(&itemImage, "image", "", "Image file to attach")
	_ = itemAddCmd.MarkFlagRequired("title")
	_ = itemAddCmd.MarkFlagRequired("category")
	_ = itemAddCmd.MarkFlagRequired("type")

	itemListCmd.Flags().StringVar(&itemListType, "type", "", "Filter by type")
	itemListCmd.Flags().StringVar(&itemListStatus, "status", "", "Filter by status")
	itemListCmd.Flags().IntVar(&itemListLimit, "limit", 0, "Maximum number of items (0 for all)")

	itemHistoryCmd.Flags().IntVar(&itemHistoryLimit, "limit", 20, "Maximum number of events")

	itemCmd.AddCommand(itemAddCmd, itemListCmd, itemStatusCmd, itemDeleteCmd, itemHistoryCmd)
	rootCmd.AddCommand(itemCmd)
}

// actorName identifies the CLI user in the audit trail
func actorName() string {
	if user := os.Getenv("USER"); user != "" {
		return "cli:" + user
	}
	return "cli"
}

func parseItemFilter(typ, status string, limit int) (types.ItemFilter, error) {
	var filter types.ItemFilter
	if typ != "" {
		t := types.ItemType(typ)
		if !t.IsValid() {
			return filter, fmt.Errorf("invalid item type: %s", typ)
		}
		filter.Type = &t
	}
	if status != "" {
		s, err := types.ParseStatus(status)
		if err != nil {
			return filter, err
		}
		filter.Status = &s
	}
	if limit < 0 {
		return filter, fmt.Errorf("limit cannot be negative")
	}
	filter.Limit = limit
	return filter, nil
}

func (a *app) runItemAdd(ctx context.Context, w io.Writer, item *types.Item, imagePath string, blobs *blob.Store) error {
	item.Status = types.StatusPending
	if err := item.Validate(); err != nil {
		return err
	}

	var imageName string
	if imagePath != "" {
		if blobs == nil {
			return fmt.Errorf("image storage is not configured")
		}
		f, err := os.Open(imagePath)
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()

		_, content, err := blob.SniffImage(f)
		if err != nil {
			return fmt.Errorf("%s: %w", imagePath, err)
		}

		imageName = blob.ObjectName(time.Now(), filepath.Base(imagePath))
		if _, err := blobs.Put(ctx, imageName, content); err != nil {
			return fmt.Errorf("failed to store image: %w", err)
		}
		url := blobs.URL(imageName)
		item.ImageURL = &url
	}

	if err := a.store.CreateItem(ctx, item, actorName()); err != nil {
		if imageName != "" {
			_ = blobs.Remove(imageName)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("category %s not found", item.CategoryID)
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(w, "%s Created %s %s %s\n", green("✓"), item.Type, item.Title, gray("("+item.ID+")"))
	if item.ImageURL != nil {
		fmt.Fprintf(w, "  Image: %s\n", *item.ImageURL)
	}
	return nil
}

func (a *app) runItemList(ctx context.Context, w io.Writer, filter types.ItemFilter) error {
	items, err := a.store.ListItems(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	if len(items) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(w, "%s No items found\n", yellow("ℹ"))
		return nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, item := range items {
		category := item.CategoryID
		if item.CategoryName != nil {
			category = *item.CategoryName
		}
		fmt.Fprintf(w, "%s  %s  %-14s %s  %s\n",
			cyan(item.ID), statusColor(item.Status)(fmt.Sprintf("%-11s", item.Status)),
			item.Type, item.Title, gray("["+category+"]"))
	}
	return nil
}

func statusColor(s types.Status) func(a ...interface{}) string {
	switch s {
	case types.StatusDone:
		return color.New(color.FgGreen).SprintFunc()
	case types.StatusInProgress:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}

func (a *app) runItemStatus(ctx context.Context, w io.Writer, id, value string) error {
	status, err := types.ParseStatus(value)
	if err != nil {
		return err
	}
	item, err := a.store.UpdateItemStatus(ctx, id, status, actorName())
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("item %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "%s %s is now %s\n", green("✓"), item.Title, statusColor(item.Status)(string(item.Status)))
	return nil
}

func (a *app) runItemDelete(ctx context.Context, w io.Writer, id string, blobs *blob.Store) error {
	item, err := a.store.DeleteItem(ctx, id, actorName())
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("item %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	a.removeItemImage(blobs, item)

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "%s Deleted %s\n", green("✓"), item.Title)
	return nil
}

func (a *app) runItemHistory(ctx context.Context, w io.Writer, id string, limit int) error {
	events, err := a.store.GetEvents(ctx, id, limit)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}

	if len(events) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(w, "%s No history for %s\n", yellow("ℹ"), id)
		return nil
	}

	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, e := range events {
		change := ""
		if e.OldValue != nil || e.NewValue != nil {
			change = fmt.Sprintf(" %s -> %s", valueOrDash(e.OldValue), valueOrDash(e.NewValue))
		}
		fmt.Fprintf(w, "%s  %-14s by %s%s\n", gray(e.CreatedAt.Local().Format("2006-01-02 15:04:05")), e.EventType, e.Actor, change)
	}
	return nil
}

func valueOrDash(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
