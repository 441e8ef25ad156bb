package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"golang.org/x/crypto/ssh"

	kerrors "github.com/agenix-go/agenix/internal/errors"
)

// writeSSHKey writes an unencrypted OpenSSH ed25519 private key to path.
func writeSSHKey(t *testing.T, path string) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
}

// writeAgeKey writes a native age identity file to path.
func writeAgeKey(t *testing.T, path string) *age.X25519Identity {
	t.Helper()
	id, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("Failed to generate identity: %v", err)
	}
	content := "# created for tests\n" + id.String() + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write identity file: %v", err)
	}
	return id
}

func TestResolve_ExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	sshKey := filepath.Join(dir, "id_ed25519")
	ageKey := filepath.Join(dir, "key.txt")
	writeSSHKey(t, sshKey)
	writeAgeKey(t, ageKey)

	r := &Resolver{Paths: []string{sshKey, ageKey}}
	ids, err := r.Resolve()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 identities, got: %d", len(ids))
	}
}

func TestResolve_DefaultSearchUnderHome(t *testing.T) {
	home := t.TempDir()
	sshDir := filepath.Join(home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		t.Fatalf("Failed to create .ssh: %v", err)
	}
	writeSSHKey(t, filepath.Join(sshDir, "id_ed25519"))

	r := &Resolver{HomeDir: home}
	ids, err := r.Resolve()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Expected 1 identity, got: %d", len(ids))
	}
}

func TestResolve_NoHomeNoPaths(t *testing.T) {
	r := &Resolver{}
	if _, err := r.Resolve(); !errors.Is(err, kerrors.ErrNoUsableIdentity) {
		t.Fatalf("Expected ErrNoUsableIdentity, got: %v", err)
	}
}

func TestResolve_UnusableHome(t *testing.T) {
	r := &Resolver{HomeDir: "/homeless-shelter"}
	if _, err := r.Resolve(); !errors.Is(err, kerrors.ErrNoUsableIdentity) {
		t.Fatalf("Expected ErrNoUsableIdentity, got: %v", err)
	}
}

func TestResolve_HomeWithoutDefaultKeys(t *testing.T) {
	r := &Resolver{HomeDir: t.TempDir()}
	if _, err := r.Resolve(); !errors.Is(err, kerrors.ErrNoUsableIdentity) {
		t.Fatalf("Expected ErrNoUsableIdentity, got: %v", err)
	}
}

func TestResolve_EmptyExplicitFileIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty-key")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("Failed to write empty file: %v", err)
	}

	// An explicit file with no parseable identity is skipped; the failure
	// surfaces later as "No matching keys found" at decryption time.
	r := &Resolver{Paths: []string{empty}}
	ids, err := r.Resolve()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no identities, got: %d", len(ids))
	}
}

func TestResolve_IdentityActuallyDecrypts(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.txt")
	id := writeAgeKey(t, keyFile)

	r := &Resolver{Paths: []string{keyFile}}
	ids, err := r.Resolve()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected 1 identity, got: %d", len(ids))
	}

	// The resolved identity must be interchangeable with the generated one.
	if ids[0].(*age.X25519Identity).String() != id.String() {
		t.Error("Expected the resolved identity to match the file's key")
	}
}
