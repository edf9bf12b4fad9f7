package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"example.com/lifeplanner/internal/codec"
	"example.com/lifeplanner/internal/query"
	"example.com/lifeplanner/internal/registry"
	"example.com/lifeplanner/internal/schema"
)

func newExercisesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exercises",
		Aliases: []string{"ex"},
		Short:   "Browse exercises",
	}
	cmd.AddCommand(newExercisesListCmd(a))
	return cmd
}

func newExercisesListCmd(a *app) *cobra.Command {
	var (
		categoryName string
		filters      []string
		sortDir      string
		search       string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List exercises with per-field filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.registry.Load(cmd.Context()); err != nil {
				return err
			}
			if limit == 0 {
				limit = a.cfg.ExerciseLimit
			}
			exercises, err := a.registry.LoadExercises(cmd.Context(), registry.ExerciseQuery{
				Search: search,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			opts := query.Options{Sort: query.SortDirection(sortDir), Clauses: map[int]string{}}

			if categoryName != "" {
				category, ok := findCategory(a.registry.Categories(), categoryName)
				if !ok {
					return fmt.Errorf("unknown category %q", categoryName)
				}
				opts.CategoryID = category.ID
			}

			for _, raw := range filters {
				name, value, ok := strings.Cut(raw, "=")
				if !ok {
					return fmt.Errorf("invalid filter %q, expected field=value", raw)
				}
				field, ok := findField(a.registry.Categories(), opts.CategoryID, name)
				if !ok {
					return fmt.Errorf("unknown field %q", name)
				}
				opts.Clauses[field.ID] = value
			}

			result := a.engine.Apply(exercises, opts)
			printGroups(cmd, a, a.engine.GroupByCategory(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryName, "category", "", "category name or id")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field filter, repeatable: --filter distance=5")
	cmd.Flags().StringVar(&sortDir, "sort", "asc", "sort by name: asc or desc")
	cmd.Flags().StringVar(&search, "search", "", "server-side name search")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results")
	return cmd
}

func findCategory(categories []schema.ActivityCategory, nameOrID string) (schema.ActivityCategory, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, nameOrID) || fmt.Sprintf("%d", c.ID) == nameOrID {
			return c, true
		}
	}
	return schema.ActivityCategory{}, false
}

// findField resolves a field name within one category, or across all
// categories when no category filter is active.
func findField(categories []schema.ActivityCategory, categoryID int, name string) (schema.FieldDefinition, bool) {
	for _, c := range categories {
		if categoryID != 0 && c.ID != categoryID {
			continue
		}
		for _, f := range c.CustomFields {
			if strings.EqualFold(f.Name, name) {
				return f, true
			}
		}
	}
	return schema.FieldDefinition{}, false
}

func printGroups(cmd *cobra.Command, a *app, groups []query.Group) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, group := range groups {
		label := "Autres"
		if category, ok := a.registry.CategoryByID(group.CategoryID); ok {
			label = category.Name
		}
		fmt.Fprintf(w, "%s\n", label)
		for _, ex := range group.Exercises {
			fmt.Fprintf(w, "  %d\t%s\t%s\n", ex.ID, ex.Name, fieldSummary(ex))
		}
	}
}

func fieldSummary(ex schema.Exercise) string {
	parts := make([]string, 0, len(ex.FieldValues))
	for _, fv := range ex.FieldValues {
		value, ok := codec.DecodeFieldValue(fv)
		if !ok {
			continue
		}
		display := value.Display()
		if fv.Field.Unit != "" {
			display += " " + fv.Field.Unit
		}
		parts = append(parts, fv.Field.Name+"="+display)
	}
	return strings.Join(parts, ", ")
}
