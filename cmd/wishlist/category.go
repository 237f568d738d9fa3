package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/storage"
	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"categories"},
	Short:   "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		a.exitOnError(a.runCategoryAdd(cmd.Context(), cmd.OutOrStdout(), args[0]))
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		a.exitOnError(a.runCategoryList(cmd.Context(), cmd.OutOrStdout()))
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category and every item in it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		a.exitOnError(a.runCategoryDelete(cmd.Context(), cmd.OutOrStdout(), args[0]))
	},
}

func init() {
	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd, categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}

func (a *app) runCategoryAdd(ctx context.Context, w io.Writer, name string) error {
	category := &types.Category{Name: name}
	if err := category.Validate(); err != nil {
		return err
	}
	if err := a.store.CreateCategory(ctx, category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(w, "%s Created category %s %s\n", green("✓"), category.Name, gray("("+category.ID+")"))
	return nil
}

func (a *app) runCategoryList(ctx context.Context, w io.Writer) error {
	categories, err := a.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	if len(categories) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(w, "%s No categories yet\n", yellow("ℹ"))
		return nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, c := range categories {
		fmt.Fprintf(w, "%s  %s  %s\n", cyan(c.ID), c.Name, gray(c.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	return nil
}

func (a *app) runCategoryDelete(ctx context.Context, w io.Writer, id string) error {
	removed, err := a.store.DeleteCategory(ctx, id, actorName())
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("category %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	blobs := a.imageStore()
	for _, item := range removed {
		a.removeItemImage(blobs, item)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "%s Deleted category %s (%d items)\n", green("✓"), id, len(removed))
	return nil
}

func (a *app) removeItemImage(blobs *blob.Store, item *types.Item) {
	if blobs == nil || item == nil || item.ImageURL == nil {
		return
	}
	if name, ok := blobs.NameFromURL(*item.ImageURL); ok {
		if err := blobs.Remove(name); err != nil {
			a.log.Error(err, "failed to remove image", "item", item.ID, "image", name)
		}
	}
}
