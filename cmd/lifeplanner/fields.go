package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"example.com/lifeplanner/internal/registry"
	"example.com/lifeplanner/internal/schema"
)

func newFieldsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage custom fields on activity categories",
	}
	cmd.AddCommand(newFieldsAddCmd(a), newFieldsDeleteCmd(a))
	return cmd
}

func newFieldsAddCmd(a *app) *cobra.Command {
	var (
		categoryID int
		fieldType  string
		input      registry.FieldInput
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom field to a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			input.FieldType = schema.FieldType(fieldType)
			if err := a.registry.Load(cmd.Context()); err != nil {
				return err
			}
			created, err := a.registry.AddField(cmd.Context(), categoryID, input)
			if err != nil {
				return err
			}
			fmt.Printf("added field %d (%s, %s) to category %d\n", created.ID, created.Name, created.FieldType, categoryID)
			return nil
		},
	}

	cmd.Flags().IntVar(&categoryID, "category", 0, "category id")
	cmd.Flags().StringVar(&input.Name, "name", "", "field name")
	cmd.Flags().StringVar(&fieldType, "type", "text", "field type: text, number, select, multi_select, checkbox, date, duration")
	cmd.Flags().StringSliceVar(&input.Options, "options", nil, "options for select/multi_select fields")
	cmd.Flags().StringVar(&input.Unit, "unit", "", "unit label, e.g. km")
	cmd.Flags().StringVar(&input.Placeholder, "placeholder", "", "input placeholder")
	cmd.Flags().StringVar(&input.DefaultValue, "default", "", "default value")
	cmd.Flags().BoolVar(&input.IsRequired, "required", false, "mark the field required")
	cmd.Flags().IntVar(&input.Order, "order", 0, "display order")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newFieldsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid field id %q", args[0])
			}
			if err := a.registry.Load(cmd.Context()); err != nil {
				return err
			}
			if err := a.registry.DeleteField(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("deleted field %d\n", id)
			return nil
		},
	}
}
