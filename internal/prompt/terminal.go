// Package prompt collects interactive login credentials from a terminal.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Terminal asks for credentials on out and reads answers from in. When in is
// a terminal, the second factor is read without echo.
type Terminal struct {
	out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
	fd     int
	isTTY  bool
}

// NewTerminal returns a prompter bound to stdin and stdout.
func NewTerminal() *Terminal {
	fd := int(os.Stdin.Fd())
	return &Terminal{
		out:    os.Stdout,
		reader: bufio.NewReader(os.Stdin),
		fd:     fd,
		isTTY:  term.IsTerminal(fd),
	}
}

// New returns a prompter over arbitrary streams. Input is always echoed.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		out:    out,
		reader: bufio.NewReader(in),
	}
}

func (t *Terminal) RequestCode(ctx context.Context) (string, error) {
	return t.ask(ctx, "Please enter the code you received: ", false)
}

func (t *Terminal) RequestSecondFactor(ctx context.Context) (string, error) {
	return t.ask(ctx, "Please enter your 2FA password: ", true)
}

func (t *Terminal) ask(ctx context.Context, question string, secret bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.out, question)

	if secret && t.isTTY {
		b, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := t.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return "", fmt.Errorf("empty answer")
	}
	return answer, nil
}
