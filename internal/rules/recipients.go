package rules

import (
	"strings"

	"filippo.io/age"
	"filippo.io/age/agessh"

	kerrors "github.com/agenix-go/agenix/internal/errors"
)

// RecipientKind identifies the accepted public key encodings.
type RecipientKind int

const (
	// Ed25519Ssh is an OpenSSH ed25519 public key ("ssh-ed25519 AAAA...").
	Ed25519Ssh RecipientKind = iota
	// RsaSsh is an OpenSSH RSA public key ("ssh-rsa AAAA...").
	RsaSsh
	// X25519 is a native age public key ("age1...").
	X25519
)

// String returns the conventional name of the key encoding.
func (k RecipientKind) String() string {
	switch k {
	case Ed25519Ssh:
		return "ssh-ed25519"
	case RsaSsh:
		return "ssh-rsa"
	case X25519:
		return "X25519"
	}
	return "unknown"
}

// RecipientKey is a validated public key a secret may be encrypted for.
// The raw literal is preserved for deterministic output and error messages.
type RecipientKey struct {
	Kind RecipientKind
	Raw  string

	recipient age.Recipient
}

// Recipient returns the parsed key for use with the encryption layer.
func (k RecipientKey) Recipient() age.Recipient {
	return k.recipient
}

// InvalidRecipientError reports a public key string that matches none of
// the accepted encodings. The offending literal is carried verbatim.
type InvalidRecipientError struct {
	Literal string
}

func (e *InvalidRecipientError) Error() string {
	return "Invalid recipient: " + e.Literal
}

func (e *InvalidRecipientError) Unwrap() error {
	return kerrors.ErrInvalidRecipient
}

// RecipientHint names the accepted key types. The CLI prints it alongside
// an InvalidRecipientError to guide correction.
const RecipientHint = "Make sure you use an ssh-ed25519, ssh-rsa or an X25519 public key"

// ParseRecipientKey validates a public key string against the accepted
// encodings, tried in order: ssh-ed25519, ssh-rsa, X25519. The first
// structural match wins.
func ParseRecipientKey(s string) (RecipientKey, error) {
	switch {
	case strings.HasPrefix(s, "ssh-ed25519 "):
		if r, err := agessh.ParseRecipient(s); err == nil {
			return RecipientKey{Kind: Ed25519Ssh, Raw: s, recipient: r}, nil
		}
	case strings.HasPrefix(s, "ssh-rsa "):
		if r, err := agessh.ParseRecipient(s); err == nil {
			return RecipientKey{Kind: RsaSsh, Raw: s, recipient: r}, nil
		}
	default:
		if r, err := age.ParseX25519Recipient(s); err == nil {
			return RecipientKey{Kind: X25519, Raw: s, recipient: r}, nil
		}
	}
	return RecipientKey{}, &InvalidRecipientError{Literal: s}
}
