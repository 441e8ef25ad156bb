package identity

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/age"
	"filippo.io/age/agessh"
	"golang.org/x/crypto/ssh"

	kerrors "github.com/agenix-go/agenix/internal/errors"
	logger "github.com/agenix-go/agenix/internal/logging"
	"github.com/agenix-go/agenix/internal/utils"
)

// defaultKeyFiles are probed under ~/.ssh when no explicit identity paths
// are given, in this order.
var defaultKeyFiles = []string{"id_rsa", "id_ed25519"}

// Resolver turns explicit identity paths or a home-directory search into a
// set of usable decryption identities.
//
// Identities are opaque private-key handles; they are never serialized and
// their material never appears in error text.
type Resolver struct {
	// Paths are explicit identity files (--identity). When non-empty,
	// exactly these are used and the default search is skipped.
	Paths []string

	// HomeDir anchors the default search (~/.ssh/id_rsa, ~/.ssh/id_ed25519)
	// when no explicit paths are given.
	HomeDir string

	// Passphrase prompts for an encrypted SSH key's passphrase. Defaults
	// to a no-echo terminal prompt.
	Passphrase func(prompt string) ([]byte, error)

	Logger logger.Logger
}

// Resolve returns the decryption identities obtained from the configured
// paths. Files that hold no parseable identity are skipped with a warning;
// a later decryption against an empty set fails with ErrNoMatchingKey.
//
// Resolve fails with ErrNoUsableIdentity only when there is nothing to
// probe at all: no explicit paths, and a home directory that is unset,
// unusable, or holds none of the default key files.
func (r *Resolver) Resolve() ([]age.Identity, error) {
	candidates := r.Paths
	if len(candidates) == 0 {
		var err error
		candidates, err = r.defaultCandidates()
		if err != nil {
			return nil, err
		}
	}

	var identities []age.Identity
	for _, path := range candidates {
		parsed, err := r.parseFile(path)
		if err != nil {
			r.Logger.Warnf("skipping identity file %s: %v", path, err)
			continue
		}
		r.Logger.Debugf("loaded %d identity(ies) from %s", len(parsed), path)
		identities = append(identities, parsed...)
	}
	return identities, nil
}

func (r *Resolver) defaultCandidates() ([]string, error) {
	if r.HomeDir == "" {
		return nil, kerrors.ErrNoUsableIdentity
	}
	info, err := os.Stat(r.HomeDir)
	if err != nil || !info.IsDir() {
		return nil, kerrors.ErrNoUsableIdentity
	}

	var candidates []string
	for _, name := range defaultKeyFiles {
		path := filepath.Join(r.HomeDir, ".ssh", name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		candidates = append(candidates, path)
	}
	if len(candidates) == 0 {
		return nil, kerrors.ErrNoUsableIdentity
	}
	return candidates, nil
}

// parseFile reads one identity file, which may be a native age identity
// file or an SSH private key (optionally passphrase-protected).
func (r *Resolver) parseFile(path string) ([]age.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		id, err := r.parseSSH(path, data)
		if err != nil {
			return nil, err
		}
		return []age.Identity{id}, nil
	}

	ids, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a usable identity file: %v", err)
	}
	return ids, nil
}

func (r *Resolver) parseSSH(path string, data []byte) (age.Identity, error) {
	id, err := agessh.ParseIdentity(data)
	if err == nil {
		return id, nil
	}

	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("not a usable SSH key: %v", err)
	}

	// Encrypted key. The embedded public key is absent for some formats,
	// in which case the conventional sibling .pub file supplies it.
	pubKey := missing.PublicKey
	if pubKey == nil {
		pubData, err := os.ReadFile(path + ".pub")
		if err != nil {
			return nil, fmt.Errorf("passphrase-protected key without a %s.pub file: %w", filepath.Base(path), err)
		}
		pubKey, _, _, _, err = ssh.ParseAuthorizedKey(pubData)
		if err != nil {
			return nil, fmt.Errorf("parsing %s.pub: %v", filepath.Base(path), err)
		}
	}

	prompt := r.Passphrase
	if prompt == nil {
		prompt = utils.ReadPassphraseFromTTY
	}
	return agessh.NewEncryptedSSHIdentity(pubKey, data, func() ([]byte, error) {
		return prompt(fmt.Sprintf("Enter passphrase for %s: ", path))
	})
}
