package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Register every skill and report the first pattern that fails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := c.catalog(cmd.Context())
			if err != nil {
				fmt.Fprintln(c.out, errorStyle.Render(err.Error()))
				return err
			}
			table := catalog.Understander().Table()
			for _, intent := range table.Intents() {
				fmt.Fprintf(c.out, "%-20s %d\n", intent, len(table.Expressions(intent)))
			}
			fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("%d intents, %d expressions", len(table.Intents()), table.Len())))
			return nil
		},
	}
}
