package cmd

import (
	"os"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agenix-go/agenix/internal/utils"
)

// startSpinner shows a progress spinner on stderr while a slow external
// step runs, unless verbose or debug output is active or the session is
// non-interactive. stdout is never touched: it carries the tool's output
// contract.
// Returns a stop function that should be called when the step finishes.
func startSpinner(message string) func() {
	if !utils.IsTerminal() {
		return func() {}
	}
	if verbose || debug {
		Logger.Infof("%s", message)
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	s.Start()
	return s.Stop
}
