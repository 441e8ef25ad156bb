// Package crypt is the boundary to the age encryption primitive.
//
// It exposes exactly two capabilities: decrypt a ciphertext file with a
// set of identities, and encrypt plaintext for a set of recipients. Key
// matching stays inside the library; callers only learn whether an
// identity could decrypt, never why.
package crypt
