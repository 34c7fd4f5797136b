package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsStdoutTTY returns true if stdout is a terminal
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// PrefersDark reports the host color-scheme preference. An explicit override
// wins; otherwise the terminal background is queried, and a non-terminal
// stdout reports light.
func PrefersDark(override *bool) bool {
	if override != nil {
		return *override
	}
	if !IsStdoutTTY() {
		return false
	}
	return termenv.HasDarkBackground()
}
