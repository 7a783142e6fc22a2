package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// IsStdinTTY reports whether stdin is attached to a terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	if !IsStdinTTY() {
		return "", fmt.Errorf("stdin is not a terminal: pass --password or set PFOLDERS_PASSWORD")
	}
	_, _ = fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
