package workflows

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"

	"github.com/agenix-go/agenix/internal/crypt"
	kerrors "github.com/agenix-go/agenix/internal/errors"
	"github.com/agenix-go/agenix/internal/identity"
	"github.com/agenix-go/agenix/internal/rules"
)

// fixture is a rules directory with one secret and a matching identity.
type fixture struct {
	dir      string
	store    *rules.Store
	resolver *identity.Resolver
	id       *age.X25519Identity
	path     string // resolved ciphertext path of "secret.age"
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	id, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("Failed to generate identity: %v", err)
	}
	keyFile := filepath.Join(dir, "key.txt")
	if err := os.WriteFile(keyFile, []byte(id.String()+"\n"), 0o600); err != nil {
		t.Fatalf("Failed to write identity file: %v", err)
	}

	doc := map[string]any{
		"secret.age": map[string]any{
			"publicKeys": []any{id.Recipient().String()},
		},
	}
	store, err := rules.Load(doc, filepath.Join(dir, "secrets.nix"))
	if err != nil {
		t.Fatalf("Failed to load rules: %v", err)
	}

	return &fixture{
		dir:      dir,
		store:    store,
		resolver: &identity.Resolver{Paths: []string{keyFile}},
		id:       id,
		path:     filepath.Join(dir, "secret.age"),
	}
}

// encryptSecret seeds the fixture's ciphertext with the given plaintext.
func (f *fixture) encryptSecret(t *testing.T, plaintext string) {
	t.Helper()
	entry, ok := f.store.Lookup("secret.age")
	if !ok {
		t.Fatal("Fixture entry missing")
	}
	ciphertext, err := crypt.Encrypt([]byte(plaintext), entry.AgeRecipients(), true)
	if err != nil {
		t.Fatalf("Failed to encrypt fixture secret: %v", err)
	}
	if err := os.WriteFile(f.path, ciphertext, 0o644); err != nil {
		t.Fatalf("Failed to write fixture ciphertext: %v", err)
	}
}

func (f *fixture) decryptSecret(t *testing.T) string {
	t.Helper()
	plaintext, err := crypt.Decrypt(f.path, []age.Identity{f.id})
	if err != nil {
		t.Fatalf("Failed to decrypt secret: %v", err)
	}
	return string(plaintext)
}

// writeEditor writes an executable shell script to use as $EDITOR.
func writeEditor(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "editor.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		t.Fatalf("Failed to write editor script: %v", err)
	}
	return path
}

func (f *fixture) editOptions(editor string, stdout *bytes.Buffer) EditOptions {
	return EditOptions{
		Secret:     "secret.age",
		Store:      f.store,
		Identities: f.resolver,
		Editor:     editor,
		Stdout:     stdout,
	}
}

func TestEdit_UnchangedSkipsReencryption(t *testing.T) {
	f := newFixture(t)
	f.encryptSecret(t, "wurzelpfropf\n")

	before, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatalf("Failed to read ciphertext: %v", err)
	}

	var stdout bytes.Buffer
	result, err := Edit(context.Background(), f.editOptions("true", &stdout))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Reencrypted {
		t.Error("Expected re-encryption to be skipped")
	}

	want := f.path + " wasn't changed, skipping re-encryption.\n"
	if stdout.String() != want {
		t.Errorf("Expected output %q, got: %q", want, stdout.String())
	}

	after, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatalf("Failed to read ciphertext: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("Expected the ciphertext bytes to be untouched")
	}
}

func TestEdit_ChangedContentIsReencrypted(t *testing.T) {
	f := newFixture(t)
	f.encryptSecret(t, "old secret\n")
	editor := writeEditor(t, f.dir, `printf 'new secret\n' > "$1"`)

	var stdout bytes.Buffer
	result, err := Edit(context.Background(), f.editOptions(editor, &stdout))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.Reencrypted {
		t.Error("Expected the secret to be re-encrypted")
	}
	if stdout.Len() != 0 {
		t.Errorf("Expected no output, got: %q", stdout.String())
	}
	if got := f.decryptSecret(t); got != "new secret\n" {
		t.Errorf("Expected edited plaintext, got: %q", got)
	}
}

func TestEdit_NewEntryNeedsNoIdentity(t *testing.T) {
	f := newFixture(t)
	editor := writeEditor(t, f.dir, `printf 'brand new\n' > "$1"`)

	var stdout bytes.Buffer
	opts := f.editOptions(editor, &stdout)
	// No identities are resolvable; creating a new secret must not care.
	opts.Identities = &identity.Resolver{}

	result, err := Edit(context.Background(), opts)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.Created || !result.Reencrypted {
		t.Errorf("Expected a created, encrypted secret, got: %+v", result)
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatalf("Expected the ciphertext to exist: %v", err)
	}
	if !strings.HasPrefix(string(raw), "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Error("Expected an armored ciphertext")
	}
	if got := f.decryptSecret(t); got != "brand new\n" {
		t.Errorf("Expected new plaintext, got: %q", got)
	}
}

func TestEdit_EditorFailureAborts(t *testing.T) {
	f := newFixture(t)

	var stdout bytes.Buffer
	_, err := Edit(context.Background(), f.editOptions("false", &stdout))
	if !errors.Is(err, kerrors.ErrEditorFailed) {
		t.Fatalf("Expected ErrEditorFailed, got: %v", err)
	}
	if _, err := os.Stat(f.path); !os.IsNotExist(err) {
		t.Error("Expected no ciphertext to be published")
	}
}

func TestEdit_NoEditorConfigured(t *testing.T) {
	f := newFixture(t)

	var stdout bytes.Buffer
	_, err := Edit(context.Background(), f.editOptions("", &stdout))
	if !errors.Is(err, kerrors.ErrEditorFailed) {
		t.Fatalf("Expected ErrEditorFailed, got: %v", err)
	}
}

func TestEdit_UnknownSecret(t *testing.T) {
	f := newFixture(t)

	var stdout bytes.Buffer
	opts := f.editOptions("true", &stdout)
	opts.Secret = "wurzelpfropf.age"

	_, err := Edit(context.Background(), opts)
	if !errors.Is(err, kerrors.ErrUnknownSecret) {
		t.Fatalf("Expected ErrUnknownSecret, got: %v", err)
	}
}

func TestEdit_EditorCommandWithArguments(t *testing.T) {
	f := newFixture(t)
	f.encryptSecret(t, "before\n")

	// The editor value is a command line, not a single binary.
	var stdout bytes.Buffer
	result, err := Edit(context.Background(), f.editOptions(`sh -c 'printf "after\n" > "$0"'`, &stdout))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.Reencrypted {
		t.Error("Expected the secret to be re-encrypted")
	}
	if got := f.decryptSecret(t); got != "after\n" {
		t.Errorf("Expected edited plaintext, got: %q", got)
	}
}
