package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"example.com/lifeplanner/internal/registry"
)

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage activity categories",
	}
	cmd.AddCommand(
		newCategoriesListCmd(a),
		newCategoriesCreateCmd(a),
		newCategoriesDeleteCmd(a),
		newCategoriesFavoriteCmd(a),
	)
	return cmd
}

func newCategoriesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List activity categories and their fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.registry.Load(cmd.Context()); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDEFAULT\tFAVORITE\tFIELDS")
			for _, c := range a.registry.Categories() {
				fmt.Fprintf(w, "%d\t%s\t%v\t%v\t%d\n", c.ID, c.Name, c.IsDefault, c.IsFavorite, len(c.CustomFields))
				for _, f := range c.CustomFields {
					detail := string(f.FieldType)
					if f.Unit != "" {
						detail += ", " + f.Unit
					}
					fmt.Fprintf(w, "\t  %d %s (%s)\t\t\t\n", f.ID, f.Name, detail)
				}
			}
			return w.Flush()
		},
	}
}

func newCategoriesCreateCmd(a *app) *cobra.Command {
	var input registry.CreateCategoryInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a custom activity category",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.registry.Load(cmd.Context()); err != nil {
				return err
			}
			created, err := a.registry.CreateCategory(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Printf("created category %d (%s)\n", created.ID, created.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "category name")
	cmd.Flags().StringVar(&input.Icon, "icon", "", "icon name")
	cmd.Flags().StringVar(&input.Color, "color", "", "hex color, e.g. #FF5733")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCategoriesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom activity category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}
			if err := a.registry.Load(cmd.Context()); err != nil {
				return err
			}
			if err := a.registry.DeleteCategory(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("deleted category %d\n", id)
			return nil
		},
	}
}

func newCategoriesFavoriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle a category's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}
			if err := a.registry.Load(cmd.Context()); err != nil {
				return err
			}
			updated, err := a.registry.ToggleFavorite(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("category %d favorite=%v\n", updated.ID, updated.IsFavorite)
			return nil
		},
	}
}
