package ingredient

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Store is the persistence collaborator behind the catalog. InTx runs the
// given function as one atomic unit; implementations backed by a database
// must map unique-constraint violations to errors recognized by
// IsDuplicate.
type Store interface {
	FindCanonicalByKey(ctx context.Context, normalizedName string) (*Canonical, error)
	FindCanonicalsByKeys(ctx context.Context, normalizedNames []string) ([]Canonical, error)
	CreateCanonical(ctx context.Context, name, normalizedName string) (*Canonical, error)
	FindAliases(ctx context.Context, normalizedKeys []string) ([]Alias, error)
	CreateAlias(ctx context.Context, canonicalID int64, alias, normalizedAlias string) (*Alias, error)
	RepointAlias(ctx context.Context, aliasID, canonicalID int64, alias string) error
	ExistingAliasKeys(ctx context.Context, normalizedKeys []string) (map[string]struct{}, error)
	AliasNameMap(ctx context.Context) (map[string]string, error)
	InTx(ctx context.Context, fn func(Store) error) error
}

// Catalog finds-or-creates canonical ingredients, attaches aliases and
// bulk-syncs the catalog from observed recipe ingredient names.
type Catalog struct {
	store Store
}

// NewCatalog creates a Catalog over the given store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// GetOrCreateCanonical resolves a raw ingredient name to its canonical
// record, creating one when absent. An unnormalizable name returns
// (nil, nil): there is nothing to do, which is not an error. A concurrent
// insert of the same key is resolved by re-reading the winner's row.
func (c *Catalog) GetOrCreateCanonical(ctx context.Context, rawName, displayName string) (*Canonical, error) {
	normalized := NormalizeName(rawName)
	if normalized == "" {
		return nil, nil
	}

	existing, err := c.store.FindCanonicalByKey(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up canonical %q: %w", normalized, err)
	}
	if existing != nil {
		return existing, nil
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = normalized
	}
	created, err := c.store.CreateCanonical(ctx, name, normalized)
	if err != nil {
		if IsDuplicate(err) {
			return c.store.FindCanonicalByKey(ctx, normalized)
		}
		return nil, fmt.Errorf("failed to create canonical %q: %w", normalized, err)
	}
	return created, nil
}

// AttachAliases attaches the given alias texts to a canonical. The list is
// normalized and de-duplicated first (the first occurrence of a normalized
// form wins). An alias already pointing at this canonical is skipped
// silently; one pointing at a different canonical is either re-pointed
// (overwriteExisting) or reported in Conflicts and left untouched. Conflicts
// are data, not errors. The whole call runs in one transaction.
func (c *Catalog) AttachAliases(ctx context.Context, canonical *Canonical, aliases []string, overwriteExisting bool) (AttachResult, error) {
	normalizedToAlias := make(map[string]string)
	var order []string
	for _, value := range aliases {
		raw := strings.TrimSpace(value)
		normalized := NormalizeName(raw)
		if raw == "" || normalized == "" {
			continue
		}
		if _, seen := normalizedToAlias[normalized]; seen {
			continue
		}
		normalizedToAlias[normalized] = raw
		order = append(order, normalized)
	}
	if len(order) == 0 {
		return AttachResult{}, nil
	}

	var result AttachResult
	err := c.store.InTx(ctx, func(tx Store) error {
		existingRows, err := tx.FindAliases(ctx, order)
		if err != nil {
			return fmt.Errorf("failed to load existing aliases: %w", err)
		}
		existing := make(map[string]Alias, len(existingRows))
		for _, row := range existingRows {
			existing[row.NormalizedAlias] = row
		}

		for _, normalized := range order {
			raw := normalizedToAlias[normalized]
			if row, ok := existing[normalized]; ok {
				if row.CanonicalID == canonical.ID {
					continue
				}
				if overwriteExisting {
					if err := tx.RepointAlias(ctx, row.ID, canonical.ID, raw); err != nil {
						return fmt.Errorf("failed to repoint alias %q: %w", raw, err)
					}
					continue
				}
				result.Conflicts = append(result.Conflicts, raw)
				continue
			}
			if _, err := tx.CreateAlias(ctx, canonical.ID, raw, normalized); err != nil {
				return fmt.Errorf("failed to create alias %q: %w", raw, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return AttachResult{}, err
	}
	return result, nil
}

// Sync bulk-creates catalog entries from observed recipe ingredient names.
// Names already known as aliases are skipped, the new ones are grouped by
// derived canonical key, missing canonicals are created with the bare key as
// their name, then one alias per new name is created. Duplicate-key errors
// from a concurrent sync are treated as "someone else already did this".
func (c *Catalog) Sync(ctx context.Context, names []string) (SyncStats, error) {
	normalizedToRaw := make(map[string]string)
	var order []string
	for _, value := range names {
		raw := strings.TrimSpace(value)
		normalized := NormalizeName(raw)
		if raw == "" || normalized == "" {
			continue
		}
		if _, seen := normalizedToRaw[normalized]; seen {
			continue
		}
		normalizedToRaw[normalized] = raw
		order = append(order, normalized)
	}
	if len(order) == 0 {
		return SyncStats{}, nil
	}

	var stats SyncStats
	err := c.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.ExistingAliasKeys(ctx, order)
		if err != nil {
			return fmt.Errorf("failed to check existing aliases: %w", err)
		}

		var missing []string
		for _, key := range order {
			if _, ok := existing[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) == 0 {
			return nil
		}

		canonicalKeySet := make(map[string]struct{})
		for _, aliasKey := range missing {
			if canonicalKey := DeriveCanonicalKey(aliasKey); canonicalKey != "" {
				canonicalKeySet[canonicalKey] = struct{}{}
			}
		}
		canonicalKeys := make([]string, 0, len(canonicalKeySet))
		for key := range canonicalKeySet {
			canonicalKeys = append(canonicalKeys, key)
		}
		sort.Strings(canonicalKeys)

		canonicalRows, err := tx.FindCanonicalsByKeys(ctx, canonicalKeys)
		if err != nil {
			return fmt.Errorf("failed to load canonicals: %w", err)
		}
		byKey := make(map[string]Canonical, len(canonicalRows))
		for _, row := range canonicalRows {
			byKey[row.NormalizedName] = row
		}

		for _, key := range canonicalKeys {
			if _, ok := byKey[key]; ok {
				continue
			}
			created, err := tx.CreateCanonical(ctx, key, key)
			if err != nil {
				if IsDuplicate(err) {
					winner, ferr := tx.FindCanonicalByKey(ctx, key)
					if ferr != nil {
						return fmt.Errorf("failed to re-read canonical %q: %w", key, ferr)
					}
					if winner != nil {
						byKey[key] = *winner
					}
					continue
				}
				return fmt.Errorf("failed to create canonical %q: %w", key, err)
			}
			byKey[key] = *created
			stats.CreatedCanonicals++
		}

		for _, aliasKey := range missing {
			canonical, ok := byKey[DeriveCanonicalKey(aliasKey)]
			if !ok {
				continue
			}
			if _, err := tx.CreateAlias(ctx, canonical.ID, normalizedToRaw[aliasKey], aliasKey); err != nil {
				if IsDuplicate(err) {
					continue
				}
				return fmt.Errorf("failed to create alias %q: %w", aliasKey, err)
			}
			stats.CreatedAliases++
		}
		return nil
	})
	if err != nil {
		return SyncStats{}, err
	}
	return stats, nil
}

// AliasNameMap exposes the normalized-alias to canonical-name mapping for
// display purposes (see CanonicalNameFor).
func (c *Catalog) AliasNameMap(ctx context.Context) (map[string]string, error) {
	return c.store.AliasNameMap(ctx)
}
