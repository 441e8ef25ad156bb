package workflows

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/agenix-go/agenix/internal/crypt"
	kerrors "github.com/agenix-go/agenix/internal/errors"
	"github.com/agenix-go/agenix/internal/identity"
	logger "github.com/agenix-go/agenix/internal/logging"
	"github.com/agenix-go/agenix/internal/rules"
	"github.com/agenix-go/agenix/internal/utils"
	"github.com/agenix-go/agenix/internal/workspace"
)

// EditOptions configures the edit workflow.
type EditOptions struct {
	// Secret names the secret to edit, by its rule-document key or path.
	Secret string

	// Store is the validated rule set.
	Store *rules.Store

	// Identities resolves decryption keys. Resolution is deferred until a
	// ciphertext actually has to be decrypted, so creating a brand-new
	// secret requires no identity at all.
	Identities *identity.Resolver

	// Editor is the editor command line, typically $EDITOR. It may carry
	// arguments and shell quoting; it is invoked as
	// `/bin/sh -c '<editor> <plaintext-file>'`.
	Editor string

	// Stdout receives the workflow's reporting messages.
	Stdout io.Writer

	Logger logger.Logger
}

// EditResult contains the outcome of an edit operation.
type EditResult struct {
	// Path is the resolved ciphertext path of the edited secret.
	Path string

	// Created is true when no ciphertext existed before this edit.
	Created bool

	// Reencrypted is false when the editor left the plaintext untouched
	// and the existing ciphertext was kept byte-for-byte.
	Reencrypted bool
}

// Edit runs the decrypt-edit-reencrypt workflow for a single secret.
//
// The plaintext only ever exists inside a workspace directory with
// owner-only permissions, and the workspace is removed on every exit path.
// If the editor exits non-zero nothing is re-encrypted. If the edited
// content is byte-identical to the original and a ciphertext already
// existed, the ciphertext file is not touched at all. Publishing replaces
// the target atomically.
func Edit(ctx context.Context, opts EditOptions) (*EditResult, error) {
	entry, ok := opts.Store.Lookup(opts.Secret)
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnknownSecret, opts.Secret)
	}
	opts.Logger.Debugf("editing %s (ciphertext at %s)", entry.Name, entry.Path)

	ws, err := workspace.Open()
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	exists := fileExists(entry.Path)

	// original is nil for the new-entry case and the decrypted plaintext
	// otherwise; it is captured before the editor runs and is the
	// reference for the unchanged-content comparison.
	var original []byte
	if exists {
		ids, err := opts.Identities.Resolve()
		if err != nil {
			return nil, err
		}
		original, err = crypt.Decrypt(entry.Path, ids)
		if err != nil {
			return nil, err
		}
	} else {
		opts.Logger.Infof("%s does not exist yet, starting from an empty file", entry.Path)
	}

	plaintextPath, err := ws.WriteFile(editFileName(entry), original)
	if err != nil {
		return nil, err
	}

	if err := runEditor(ctx, opts.Editor, plaintextPath); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(plaintextPath)
	if err != nil {
		return nil, fmt.Errorf("reading edited plaintext: %w", err)
	}

	result := &EditResult{Path: entry.Path, Created: !exists}
	if exists && plaintextUnchanged(original, edited) {
		fmt.Fprintf(opts.Stdout, "%s wasn't changed, skipping re-encryption.\n", entry.Path)
		return result, nil
	}

	ciphertext, err := crypt.Encrypt(edited, entry.AgeRecipients(), entry.Armor)
	if err != nil {
		return nil, err
	}
	if err := publish(entry.Path, ciphertext); err != nil {
		return nil, err
	}
	result.Reencrypted = true
	opts.Logger.Infof("re-encrypted %s for %d recipient(s)", entry.Path, len(entry.Recipients))
	return result, nil
}

// plaintextUnchanged reports whether the post-edit content is
// byte-identical to the pre-edit content.
func plaintextUnchanged(before, after []byte) bool {
	return bytes.Equal(before, after)
}

// editFileName names the workspace plaintext file after the secret so the
// editor can pick up syntax highlighting ("app.yaml.age" edits "app.yaml").
func editFileName(entry *rules.RuleEntry) string {
	name := strings.TrimSuffix(filepath.Base(entry.Path), ".age")
	if name == "" {
		name = filepath.Base(entry.Path)
	}
	return name
}

// runEditor blocks on the external editor. A non-zero exit is fatal for
// the edit; the caller's deferred workspace cleanup still runs.
func runEditor(ctx context.Context, editor, plaintextPath string) error {
	if strings.TrimSpace(editor) == "" {
		return fmt.Errorf("%w: no editor configured, set $EDITOR", kerrors.ErrEditorFailed)
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", editor+" "+shellQuote(plaintextPath))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %q exited with status %d", kerrors.ErrEditorFailed, editor, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: %v", kerrors.ErrEditorFailed, err)
	}
	return nil
}

// publish atomically replaces the ciphertext at path.
func publish(path string, ciphertext []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return utils.AtomicWriteFile(path, ciphertext, 0o644)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
