package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"friday/internal/client"
	"friday/internal/nlu"
)

func newUnderstandCmd(c *cli) *cobra.Command {
	var run bool
	cmd := &cobra.Command{
		Use:   "understand <text...>",
		Short: "Show how an utterance is split and understood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if remote := c.remote(); remote != nil {
				return c.understandRemote(cmd.Context(), remote, text, run)
			}

			catalog, err := c.catalog(cmd.Context())
			if err != nil {
				return err
			}

			p := nlu.NewProcessor(catalog.Understander())
			for ts := range p.Structs(text) {
				fmt.Fprintln(c.out, renderStructure(ts))
			}
			if !run {
				return nil
			}
			console := newConsole(c.in, c.out)
			return p.FinalAssist(cmd.Context(), text, catalog.Dispatcher(console))
		},
	}
	cmd.Flags().BoolVar(&run, "run", false, "also run the skills the utterance resolves to")
	return cmd
}

func (c *cli) understandRemote(ctx context.Context, remote *client.Client, text string, run bool) error {
	views, err := remote.Understand(ctx, text)
	if err != nil {
		return err
	}
	for _, v := range views {
		fmt.Fprintln(c.out, renderView(v))
	}
	if !run {
		return nil
	}

	id, err := remote.CreateSession(ctx)
	if err != nil {
		return err
	}
	defer remote.DeleteSession(context.WithoutCancel(ctx), id)

	resp, err := remote.Turn(ctx, id, text, true)
	if err != nil {
		return err
	}
	c.printTurn(resp.Outputs, resp.Error)
	return nil
}

func (c *cli) printTurn(outputs []string, turnErr string) {
	for _, o := range outputs {
		fmt.Fprintln(c.out, replyStyle.Render(o))
	}
	if turnErr != "" {
		fmt.Fprintln(c.out, errorStyle.Render(turnErr))
	}
}
