// Package workspace manages ephemeral plaintext holding areas.
//
// A workspace directory has mode 0700 and its files mode 0600 for their
// entire lifetime, starting at creation. Cleanup is the caller's deferred
// Close; nothing is ever left for a separate reaping process.
package workspace
