package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// consoleInterface talks to the user on the command line.
type consoleInterface struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *consoleInterface {
	return &consoleInterface{in: bufio.NewReader(in), out: out}
}

func (c *consoleInterface) Kind() string { return "cli" }

func (c *consoleInterface) Output(_ context.Context, text string) error {
	_, err := fmt.Fprintln(c.out, replyStyle.Render(text))
	return err
}

func (c *consoleInterface) Input(_ context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(c.out, askStyle.Render(prompt)+" "); err != nil {
		return "", err
	}
	return c.readLine()
}

// readLine returns the next line without its newline. The last line of the
// input is returned even when it is not newline terminated.
func (c *consoleInterface) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}
