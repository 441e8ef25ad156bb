// Package rules loads and validates the declarative secret rules.
//
// The rules source (conventionally secrets.nix) is evaluated by an external
// evaluator into a JSON document mapping secret paths to recipient lists:
//
//	{
//	    "secret.age": { "publicKeys": [ "ssh-ed25519 AAAA..." ] }
//	}
//
// This package never parses the Nix source itself. A Source implementation
// produces the document; the package then validates it in two passes:
//
//  1. Structural validation against the embedded JSON schema. All
//     violations are collected and reported together with their JSON
//     pointers, so a broken document surfaces every problem at once.
//  2. Recipient validation. Every public key string in every entry must
//     parse as one of the three supported encodings (ssh-ed25519, ssh-rsa,
//     or a native X25519 key). Validation is eager: a malformed key in an
//     entry that is never touched still fails the run, because silently
//     carrying bad configuration is worse than an early abort.
//
// The resulting Store is immutable and maps secret paths to their rule
// entries in deterministic (sorted) order.
package rules
