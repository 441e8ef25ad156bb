package workflows

import (
	"context"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/agenix-go/agenix/internal/crypt"
	kerrors "github.com/agenix-go/agenix/internal/errors"
	"github.com/agenix-go/agenix/internal/identity"
	logger "github.com/agenix-go/agenix/internal/logging"
	"github.com/agenix-go/agenix/internal/rules"
)

// RekeyOptions configures the rekey workflow.
type RekeyOptions struct {
	// Store is the validated rule set.
	Store *rules.Store

	// Identities resolves decryption keys. Rekeying always decrypts, so
	// resolution happens up front.
	Identities *identity.Resolver

	// Only restricts rekeying to the named secrets. Empty means all rule
	// entries. Names that match no rule entry are fatal.
	Only []string

	// ContinueOnError keeps rekeying remaining entries after a failure
	// and reports a summary error at the end. The default aborts the
	// whole run on the first failing entry.
	ContinueOnError bool

	// Stdout receives the per-entry progress messages.
	Stdout io.Writer

	Logger logger.Logger
}

// RekeyResult contains the outcome of a rekey run.
type RekeyResult struct {
	// Rekeyed lists the ciphertext paths that were re-encrypted.
	Rekeyed []string

	// Missing lists rule entries whose ciphertext does not exist on disk.
	// These are skipped, not errors: rekeying is idempotent over the rule
	// set regardless of which secrets have been created yet.
	Missing []string

	// Failed lists entries that could not be rekeyed. Non-empty only with
	// ContinueOnError.
	Failed []string
}

// Rekey re-encrypts every existing secret against its current recipient
// list, which may differ from the recipients the file was originally
// encrypted for. Entries are processed in the rule document's iteration
// order and each ciphertext is replaced atomically, so a crash mid-run
// leaves every secret either fully old or fully new.
func Rekey(ctx context.Context, opts RekeyOptions) (*RekeyResult, error) {
	entries, err := selectEntries(opts.Store, opts.Only)
	if err != nil {
		return nil, err
	}

	identities, err := opts.Identities.Resolve()
	if err != nil {
		return nil, err
	}
	opts.Logger.Debugf("rekeying %d rule entry(ies) with %d identity(ies)", len(entries), len(identities))

	result := &RekeyResult{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !fileExists(entry.Path) {
			fmt.Fprintf(opts.Stdout, "Does not exist, ignored: %s\n", entry.Path)
			result.Missing = append(result.Missing, entry.Path)
			continue
		}

		fmt.Fprintf(opts.Stdout, "Rekeying %s\n", entry.Path)
		if err := rekeyEntry(&entry, identities); err != nil {
			if !opts.ContinueOnError {
				return nil, fmt.Errorf("rekeying %s: %w", entry.Path, err)
			}
			opts.Logger.Errorf("rekeying %s: %v", entry.Path, err)
			result.Failed = append(result.Failed, entry.Path)
			continue
		}
		result.Rekeyed = append(result.Rekeyed, entry.Path)
	}

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("failed to rekey %d of %d secret(s)", len(result.Failed), len(result.Failed)+len(result.Rekeyed))
	}
	return result, nil
}

// rekeyEntry round-trips one ciphertext through decrypt and encrypt. The
// plaintext stays in memory for the duration; it never touches disk.
func rekeyEntry(entry *rules.RuleEntry, identities []age.Identity) error {
	plaintext, err := crypt.Decrypt(entry.Path, identities)
	if err != nil {
		return err
	}

	ciphertext, err := crypt.Encrypt(plaintext, entry.AgeRecipients(), entry.Armor)
	if err != nil {
		return err
	}
	return publish(entry.Path, ciphertext)
}

// selectEntries returns the rule entries to rekey, either the whole store
// or the subset named by only.
func selectEntries(store *rules.Store, only []string) ([]rules.RuleEntry, error) {
	if len(only) == 0 {
		return store.Entries(), nil
	}

	entries := make([]rules.RuleEntry, 0, len(only))
	for _, name := range only {
		entry, ok := store.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrUnknownSecret, name)
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
