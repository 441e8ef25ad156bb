package crypt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"

	kerrors "github.com/agenix-go/agenix/internal/errors"
)

// Decrypt reads the ciphertext file at path and decrypts it with the first
// matching identity. Armored and binary age files are both accepted; the
// envelope is detected by the begin marker.
//
// Fails with ErrNoMatchingKey when none of the identities correspond to a
// recipient of the ciphertext, and with ErrMalformedCiphertext when the
// file is not a valid age file.
func Decrypt(path string, identities []age.Identity) ([]byte, error) {
	if len(identities) == 0 {
		return nil, kerrors.ErrNoMatchingKey
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ciphertext %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var src io.Reader = br
	if peek, err := br.Peek(len(armor.Header)); err == nil && string(peek) == armor.Header {
		src = armor.NewReader(br)
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, classifyDecryptError(path, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrMalformedCiphertext, path, err)
	}
	return plaintext, nil
}

// Encrypt encrypts plaintext for the given recipient set. With armored set,
// the output is the ASCII envelope bounded by the age begin/end markers and
// terminated by a newline.
//
// The recipient list must be non-empty; rule loading guarantees this for
// every entry before any workflow runs.
func Encrypt(plaintext []byte, recipients []age.Recipient, armored bool) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("refusing to encrypt to an empty recipient list")
	}

	var buf bytes.Buffer
	var dst io.Writer = &buf
	var aw io.WriteCloser
	if armored {
		aw = armor.NewWriter(&buf)
		dst = aw
	}

	w, err := age.Encrypt(dst, recipients...)
	if err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	if aw != nil {
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("writing armored envelope: %w", err)
		}
		// The envelope's end marker is a full line.
		if buf.Len() == 0 || buf.Bytes()[buf.Len()-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

func classifyDecryptError(path string, err error) error {
	var noMatch *age.NoIdentityMatchError
	if errors.As(err, &noMatch) {
		return kerrors.ErrNoMatchingKey
	}
	return fmt.Errorf("%w: %s: %v", kerrors.ErrMalformedCiphertext, path, err)
}
