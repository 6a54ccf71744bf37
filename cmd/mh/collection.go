package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markhaven/markhaven/internal/controller"
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"col"},
	Short:   "Manage collections",
}

var (
	colAddDescription string
	colAddIcon        string
	colAddColor       string
)

var collectionAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a collection",
	Long: `Create a collection. Names are unique among active collections,
case-insensitively.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		col, err := a.collections.Add(ctx, controller.CollectionInput{
			Name:        args[0],
			Description: colAddDescription,
			Icon:        colAddIcon,
			Color:       colAddColor,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating collection: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created %s (%s)\n", col.Name, col.ID)
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		items := a.collections.List()
		if len(items) == 0 {
			fmt.Println("No collections")
			return
		}
		for _, col := range items {
			count := len(a.bookmarks.ListByCollection(col.ID))
			fmt.Printf("%-36s  %-24s  %d bookmarks\n", col.ID, truncate(col.Name, 24), count)
		}
	},
}

var (
	colUpdateName        string
	colUpdateDescription string
	colUpdateIcon        string
	colUpdateColor       string
)

var collectionUpdateCmd = &cobra.Command{
	Use:   "update <id-or-name>",
	Short: "Update a collection's fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		col, err := resolveCollectionRef(a, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var upd controller.CollectionUpdate
		if cmd.Flags().Changed("name") {
			upd.Name = &colUpdateName
		}
		if cmd.Flags().Changed("description") {
			upd.Description = &colUpdateDescription
		}
		if cmd.Flags().Changed("icon") {
			upd.Icon = &colUpdateIcon
		}
		if cmd.Flags().Changed("color") {
			upd.Color = &colUpdateColor
		}

		updated, err := a.collections.Update(ctx, col.ID, upd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error updating collection: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated %s\n", updated.Name)
	},
}

var collectionRemoveCmd = &cobra.Command{
	Use:   "remove <id-or-name>",
	Short: "Move a collection and its bookmarks to the bin",
	Long: `Soft-delete a collection. Every bookmark in it is binned with it and
restored with it. The default collection cannot be removed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		col, err := resolveCollectionRef(a, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := a.collections.Remove(ctx, col.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing collection: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Moved %s and its bookmarks to bin\n", col.Name)
	},
}

func init() {
	collectionAddCmd.Flags().StringVar(&colAddDescription, "description", "", "collection description")
	collectionAddCmd.Flags().StringVar(&colAddIcon, "icon", "", "icon name (default: folder)")
	collectionAddCmd.Flags().StringVar(&colAddColor, "color", "", "hex color, e.g. #6366f1")

	collectionUpdateCmd.Flags().StringVar(&colUpdateName, "name", "", "new name")
	collectionUpdateCmd.Flags().StringVar(&colUpdateDescription, "description", "", "new description")
	collectionUpdateCmd.Flags().StringVar(&colUpdateIcon, "icon", "", "new icon")
	collectionUpdateCmd.Flags().StringVar(&colUpdateColor, "color", "", "new color")

	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionUpdateCmd)
	collectionCmd.AddCommand(collectionRemoveCmd)
}
