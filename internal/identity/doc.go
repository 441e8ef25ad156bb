// Package identity resolves private keys used to attempt decryption.
package identity
