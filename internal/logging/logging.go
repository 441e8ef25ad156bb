package logger

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Logger emits diagnostic messages gated by verbosity. The zero value is
// silent except for warnings and errors, so workflows can log through an
// unset Logger field.
type Logger struct {
	Verbose bool
	Debug   bool
}

// Infof prints to stdout, but only in verbose mode: quiet runs keep stdout
// reserved for the reporting messages callers print themselves.
func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose {
		fmt.Fprintf(os.Stdout, color.GreenString("[info] ")+msg+"\n", args...)
	}
}

// Debugf prints to stdout in debug mode.
func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(os.Stdout, color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

// Warnf always prints, to stderr; non-fatal problems such as a skipped
// identity file must surface even in quiet runs.
func (l Logger) Warnf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, color.YellowString("[warn] ")+msg+"\n", args...)
}

// Errorf always prints, to stderr.
func (l Logger) Errorf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, color.RedString("[error] ")+msg+"\n", args...)
}
