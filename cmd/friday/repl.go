package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"friday/internal/session"
)

const consoleSessionID = "console"

// turnFunc runs one fast or final turn on the running transcript.
type turnFunc func(ctx context.Context, text string, final bool) error

func newReplCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Converse with the assistant",
		Long: `Every line extends the running transcript and runs the fast path on it,
as a speech recognizer's interim results would. An empty line runs the final
path on the transcript and starts the next turn.

With --server the turns run in a session on that server. Skills that ask a
follow-up question cannot be answered over HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			console := newConsole(c.in, c.out)
			name := c.cfg.Assistant.Name

			var turn turnFunc
			if remote := c.remote(); remote != nil {
				id, err := remote.CreateSession(ctx)
				if err != nil {
					return err
				}
				defer remote.DeleteSession(context.WithoutCancel(ctx), id)
				turn = func(ctx context.Context, text string, final bool) error {
					resp, err := remote.Turn(ctx, id, text, final)
					if err != nil {
						return err
					}
					c.printTurn(resp.Outputs, resp.Error)
					return nil
				}
			} else {
				catalog, err := c.catalog(ctx)
				if err != nil {
					return err
				}
				name = catalog.Assistant().Name
				sess := session.New(catalog.Understander(), c.cfg.Session.TTL).Get(consoleSessionID)
				d := catalog.Dispatcher(console)
				log := catalog.Assistant().Logger
				turn = func(ctx context.Context, text string, final bool) error {
					if _, err := sess.Turn(ctx, text, final, d); err != nil {
						log.WithError(err).Debug("turn finished with errors")
					}
					return nil
				}
			}

			fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("%s is listening. Empty line ends a turn, Ctrl-D quits.", name)))
			return converse(ctx, console, turn)
		},
	}
}

func converse(ctx context.Context, console *consoleInterface, turn turnFunc) error {
	var transcript []string
	for {
		line, err := console.readLine()
		if errors.Is(err, io.EOF) {
			if len(transcript) > 0 {
				return turn(ctx, strings.Join(transcript, " "), true)
			}
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		final := line == ""
		if !final {
			transcript = append(transcript, line)
		}
		if len(transcript) == 0 {
			continue
		}
		if err := turn(ctx, strings.Join(transcript, " "), final); err != nil {
			return err
		}
		if final {
			transcript = transcript[:0]
		}
	}
}
