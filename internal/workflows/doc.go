// Package workflows orchestrates the edit and rekey operations.
//
// Workflows coordinate the rule store, identity resolution, the secure
// workspace and the encryption layer to implement complete user-facing
// operations, independent of CLI concerns like flag parsing and spinners.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Maps errors to the user-facing output contract
//
// Workflows handle everything else:
//   - Looking up rule entries and resolving identities
//   - Managing the plaintext workspace and its cleanup
//   - Running the external editor
//   - Publishing ciphertexts atomically
//
// Process-global state (home directory, $EDITOR) is passed in explicitly
// through the Options structs, keeping the workflows testable without
// environment mutation.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	_, err := workflows.Rekey(ctx, opts)
//	if errors.Is(err, kerrors.ErrNoMatchingKey) {
//	    // Report the missing-identity contract message
//	}
//
// # Security invariants
//
// Plaintext only ever exists inside a 0700 workspace directory as a 0600
// file (edit) or in process memory (rekey). The workspace is closed via a
// deferred call on every exit path, and ciphertext files are replaced with
// an atomic rename, so no failure mode leaves a secret truncated, mixed,
// or world-readable.
package workflows
