package errors

import "errors"

// Configuration errors indicate the user must fix their rule or key setup.
var (
	// ErrUnknownSecret indicates the requested secret has no rule entry.
	ErrUnknownSecret = errors.New("no rule found for the given secret")

	// ErrInvalidRecipient indicates a rule entry lists a malformed public key.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrInvalidRules indicates the rule document failed schema validation.
	ErrInvalidRules = errors.New("secrets rules are invalid")
)

// Identity errors indicate decryption keys are missing or unusable.
var (
	// ErrNoUsableIdentity indicates no identity files could be located at all.
	// The message is part of the CLI output contract.
	ErrNoUsableIdentity = errors.New("No usable identity or identities")

	// ErrNoMatchingKey indicates identities exist but none can decrypt the
	// target ciphertext. The message is part of the CLI output contract.
	ErrNoMatchingKey = errors.New("No matching keys found")
)

// Cryptographic errors indicate failures in the encryption layer.
var (
	// ErrMalformedCiphertext indicates the ciphertext file is not a valid
	// age file and cannot be decrypted by any identity.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// External process errors indicate a subprocess the tool depends on failed.
var (
	// ErrEditorFailed indicates the configured editor exited non-zero.
	ErrEditorFailed = errors.New("editor invocation failed")

	// ErrRulesEval indicates the rules file could not be evaluated.
	ErrRulesEval = errors.New("failed to evaluate secrets rules")
)
