// Package logger provides leveled, colorized logging for diagnostic output.
//
// Diagnostic messages never go to stdout unless verbose mode is enabled;
// stdout is reserved for the tool's machine-readable output contract.
package logger
