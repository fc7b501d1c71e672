// Package prompt asks the user for the admin password when the API answers 401.
//
// An empty answer means the user declined; callers must not retry in that case.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
)

// PlainPrompt reads the password as one line from an io.Reader.
// It is used when stdin is not a terminal.
type PlainPrompt struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
	label  string
}

// NewPlainPrompt returns a PlainPrompt reading from in and writing the label to out.
func NewPlainPrompt(in io.Reader, out io.Writer) *PlainPrompt {
	return &PlainPrompt{reader: bufio.NewReader(in), out: out, label: "Admin password: "}
}

// RequestPassword prints the label and reads one line. End of input counts
// as a declined prompt.
func (p *PlainPrompt) RequestPassword(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, p.label)
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// FormPrompt asks for the password with a masked huh input.
type FormPrompt struct {
	// Accessible renders the form in line mode for screen readers.
	Accessible bool
}

// RequestPassword runs a one-field form. Aborting the form (ctrl+c, esc)
// counts as a declined prompt.
func (p *FormPrompt) RequestPassword(ctx context.Context) (string, error) {
	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Admin password").
				Description("Session expired or missing. Leave empty to cancel.").
				Value(&password).
				EchoMode(huh.EchoModePassword),
		),
	).WithAccessible(p.Accessible).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("password form: %w", err)
	}
	return strings.TrimSpace(password), nil
}
