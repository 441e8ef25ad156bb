// Package ui provides semantic text formatting for CLI output.
//
// Formatters degrade gracefully when color is unavailable (NO_COLOR,
// dumb terminals, piped output) by substituting plain-text decorations.
package ui
