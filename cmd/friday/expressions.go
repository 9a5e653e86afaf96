package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"friday/internal/nlu"
)

func newExpressionsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expressions",
		Short: "Manage phrase patterns taught to the assistant",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List taught expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			exprs, err := store.ListExpressions(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range exprs {
				fmt.Fprintf(c.out, "%s  %-20s %s\n", mutedStyle.Render(e.ID), e.Intent, e.Pattern)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <intent> <pattern...>",
		Short: "Teach a new pattern for an existing intent",
		Example: `  friday expressions add food.order "get me something from <<restaurant>>"
  friday expressions add stop enough`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, pattern := args[0], strings.Join(args[1:], " ")

			catalog, err := c.catalog(cmd.Context())
			if err != nil {
				return err
			}
			if !slices.Contains(catalog.Understander().Table().Intents(), intent) {
				return fmt.Errorf("%w: %s", nlu.ErrUnknownIntent, intent)
			}

			store, err := c.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			e, err := store.AddExpression(cmd.Context(), intent, pattern)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "taught %s: %s (%s)\n", e.Intent, e.Pattern, e.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Forget a taught expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			return store.DeleteExpression(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "teach-value <category> <value...>",
		Short: "Add a known value to an entity category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			return store.AddEntityValue(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "values",
		Short: "List taught entity values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			values, err := store.ListEntityValues(cmd.Context())
			if err != nil {
				return err
			}
			for _, v := range values {
				fmt.Fprintf(c.out, "%-20s %s\n", v.Category, v.Value)
			}
			return nil
		},
	})

	return cmd
}
