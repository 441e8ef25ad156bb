// Package errors defines sentinel errors shared across the application.
//
// Sentinels let the CLI layer match failure classes with errors.Is and
// choose user-facing messages and exit behavior without string matching.
// Workflow and library code wraps these with fmt.Errorf and %w to add the
// offending path or literal.
package errors
