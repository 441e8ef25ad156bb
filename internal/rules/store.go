package rules

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"filippo.io/age"
)

// RuleEntry associates one secret with its authorized recipients.
type RuleEntry struct {
	// Name is the secret's path exactly as written in the rule document.
	Name string

	// Path is the resolved absolute location of the ciphertext file,
	// relative paths being anchored at the rules file's directory.
	Path string

	// Recipients holds the validated public keys, preserving document
	// order. Always non-empty.
	Recipients []RecipientKey

	// Armor selects the ASCII-armored envelope for this entry's
	// ciphertext. Defaults to true.
	Armor bool
}

// AgeRecipients returns the entry's recipients for the encryption layer.
func (e *RuleEntry) AgeRecipients() []age.Recipient {
	recipients := make([]age.Recipient, len(e.Recipients))
	for i, k := range e.Recipients {
		recipients[i] = k.Recipient()
	}
	return recipients
}

// Store is an immutable mapping from secret path to rule entry. Entries
// iterate in sorted path order, matching the evaluated document's order.
type Store struct {
	entries []RuleEntry
	byName  map[string]int
}

// Load validates an evaluated rule document and builds a Store.
//
// The document is first checked against the embedded schema; on failure a
// ValidationError lists every violation. Then every recipient string of
// every entry is validated, and all invalid recipients are aggregated into
// a single error rather than stopping at the first.
func Load(doc map[string]any, rulesFile string) (*Store, error) {
	if err := validateSchema(doc, rulesFile); err != nil {
		return nil, err
	}

	base, err := filepath.Abs(filepath.Dir(rulesFile))
	if err != nil {
		return nil, fmt.Errorf("resolving rules directory: %w", err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	store := &Store{
		entries: make([]RuleEntry, 0, len(names)),
		byName:  make(map[string]int, len(names)),
	}

	var invalid []error
	for _, name := range names {
		// Shapes are guaranteed by the schema at this point.
		attrs := doc[name].(map[string]any)
		keys := attrs["publicKeys"].([]any)

		entry := RuleEntry{
			Name:       name,
			Path:       resolvePath(base, name),
			Recipients: make([]RecipientKey, 0, len(keys)),
			Armor:      true,
		}
		if armor, ok := attrs["armor"].(bool); ok {
			entry.Armor = armor
		}

		for _, raw := range keys {
			key, err := ParseRecipientKey(raw.(string))
			if err != nil {
				invalid = append(invalid, err)
				continue
			}
			entry.Recipients = append(entry.Recipients, key)
		}

		store.byName[entry.Name] = len(store.entries)
		store.entries = append(store.entries, entry)
	}

	if len(invalid) > 0 {
		return nil, errors.Join(invalid...)
	}
	return store, nil
}

// Lookup finds the rule entry for a secret, by its name in the rule
// document or by its resolved path.
func (s *Store) Lookup(name string) (*RuleEntry, bool) {
	if i, ok := s.byName[name]; ok {
		return &s.entries[i], true
	}
	if abs, err := filepath.Abs(name); err == nil {
		for i := range s.entries {
			if s.entries[i].Path == abs {
				return &s.entries[i], true
			}
		}
	}
	return nil, false
}

// Entries returns all rule entries in deterministic order.
func (s *Store) Entries() []RuleEntry {
	return s.entries
}

// Len returns the number of rule entries.
func (s *Store) Len() int {
	return len(s.entries)
}

func resolvePath(base, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(base, name)
}
