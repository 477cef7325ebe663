package ingredient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// IsDuplicate reports whether an error is a unique-constraint violation.
// Concurrent catalog syncs race on the normalized-name/alias unique indexes;
// callers treat such errors as "already exists, proceed as found".
func IsDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the SQLite-backed catalog store.
type SQLStore struct {
	db *sql.DB
	q  dbtx
}

// NewSQLStore creates a SQLStore over an open database connection.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// InTx runs fn against a store bound to a single transaction. Nested calls
// reuse the surrounding transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&SQLStore{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

const canonicalColumns = `id, name, normalized_name, current_price_rub, current_price_unit,
	current_price_currency, price_region, price_source, price_is_stale, price_updated_at, created_at`

func scanCanonical(row interface{ Scan(...any) error }) (*Canonical, error) {
	var c Canonical
	var priceRub sql.NullFloat64
	var priceUnit, currency, region, source sql.NullString
	var isStale sql.NullBool
	var updatedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.Name, &c.NormalizedName,
		&priceRub, &priceUnit, &currency, &region, &source, &isStale, &updatedAt,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if priceRub.Valid && priceUnit.Valid {
		c.Price = &Price{
			AmountRub: priceRub.Float64,
			Unit:      priceUnit.String,
			Currency:  currency.String,
			Region:    region.String,
			Source:    source.String,
			IsStale:   isStale.Valid && isStale.Bool,
		}
		if updatedAt.Valid {
			c.Price.UpdatedAt = updatedAt.Time
		}
	}
	return &c, nil
}

// FindCanonicalByKey returns the canonical with the given normalized name,
// or nil when absent.
func (s *SQLStore) FindCanonicalByKey(ctx context.Context, normalizedName string) (*Canonical, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+canonicalColumns+` FROM ingredient_catalog WHERE normalized_name = ?`,
		normalizedName,
	)
	c, err := scanCanonical(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query canonical: %w", err)
	}
	return c, nil
}

// FindCanonicalsByKeys returns all canonicals whose normalized name is in
// the given set.
func (s *SQLStore) FindCanonicalsByKeys(ctx context.Context, normalizedNames []string) ([]Canonical, error) {
	if len(normalizedNames) == 0 {
		return nil, nil
	}
	query := `SELECT ` + canonicalColumns + ` FROM ingredient_catalog WHERE normalized_name IN (` +
		placeholders(len(normalizedNames)) + `)`
	rows, err := s.q.QueryContext(ctx, query, stringArgs(normalizedNames)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query canonicals: %w", err)
	}
	defer rows.Close()

	var result []Canonical
	for rows.Next() {
		c, err := scanCanonical(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan canonical: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// CreateCanonical inserts a canonical ingredient row.
func (s *SQLStore) CreateCanonical(ctx context.Context, name, normalizedName string) (*Canonical, error) {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO ingredient_catalog (name, normalized_name, created_at) VALUES (?, ?, ?)`,
		name, normalizedName, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read canonical id: %w", err)
	}
	return &Canonical{ID: id, Name: name, NormalizedName: normalizedName, CreatedAt: now}, nil
}

// SetPrice updates the curated price fields of a canonical ingredient.
func (s *SQLStore) SetPrice(ctx context.Context, canonicalID int64, price Price) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE ingredient_catalog
		 SET current_price_rub = ?, current_price_unit = ?, current_price_currency = ?,
		     price_region = ?, price_source = ?, price_is_stale = ?, price_updated_at = ?
		 WHERE id = ?`,
		price.AmountRub, price.Unit, price.Currency,
		price.Region, price.Source, price.IsStale, time.Now().UTC(),
		canonicalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	return nil
}

// FindAliases returns the alias rows whose normalized alias is in the given
// set.
func (s *SQLStore) FindAliases(ctx context.Context, normalizedKeys []string) ([]Alias, error) {
	if len(normalizedKeys) == 0 {
		return nil, nil
	}
	query := `SELECT id, canonical_id, alias, normalized_alias, created_at
		FROM ingredient_aliases WHERE normalized_alias IN (` + placeholders(len(normalizedKeys)) + `)`
	rows, err := s.q.QueryContext(ctx, query, stringArgs(normalizedKeys)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	var result []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.CanonicalID, &a.Alias, &a.NormalizedAlias, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// CreateAlias inserts an alias row pointing at a canonical.
func (s *SQLStore) CreateAlias(ctx context.Context, canonicalID int64, alias, normalizedAlias string) (*Alias, error) {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO ingredient_aliases (canonical_id, alias, normalized_alias, created_at) VALUES (?, ?, ?, ?)`,
		canonicalID, alias, normalizedAlias, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read alias id: %w", err)
	}
	return &Alias{ID: id, CanonicalID: canonicalID, Alias: alias, NormalizedAlias: normalizedAlias, CreatedAt: now}, nil
}

// RepointAlias moves an existing alias to another canonical and overwrites
// its display text.
func (s *SQLStore) RepointAlias(ctx context.Context, aliasID, canonicalID int64, alias string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE ingredient_aliases SET canonical_id = ?, alias = ? WHERE id = ?`,
		canonicalID, alias, aliasID,
	)
	if err != nil {
		return fmt.Errorf("failed to repoint alias: %w", err)
	}
	return nil
}

// ExistingAliasKeys returns which of the given normalized keys already exist
// as aliases.
func (s *SQLStore) ExistingAliasKeys(ctx context.Context, normalizedKeys []string) (map[string]struct{}, error) {
	result := make(map[string]struct{})
	if len(normalizedKeys) == 0 {
		return result, nil
	}
	query := `SELECT normalized_alias FROM ingredient_aliases WHERE normalized_alias IN (` +
		placeholders(len(normalizedKeys)) + `)`
	rows, err := s.q.QueryContext(ctx, query, stringArgs(normalizedKeys)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alias keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan alias key: %w", err)
		}
		result[key] = struct{}{}
	}
	return result, rows.Err()
}

// AliasNameMap returns the normalized-alias to canonical display-name
// mapping used for shopping list and report rendering.
func (s *SQLStore) AliasNameMap(ctx context.Context) (map[string]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT a.normalized_alias, c.name
		 FROM ingredient_aliases a
		 JOIN ingredient_catalog c ON c.id = a.canonical_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alias map: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var alias, name string
		if err := rows.Scan(&alias, &name); err != nil {
			return nil, fmt.Errorf("failed to scan alias map row: %w", err)
		}
		if alias != "" && name != "" {
			result[alias] = name
		}
	}
	return result, rows.Err()
}

// PriceRow is one priced surface form read for the costing lookup. Alias
// fields are empty for canonical-only rows.
type PriceRow struct {
	NormalizedAlias string
	AliasText       string
	NormalizedName  string
	CanonicalName   string
	PriceRub        float64
	PriceUnit       string
}

const pricedFilter = `c.current_price_rub IS NOT NULL
		AND c.current_price_unit IS NOT NULL
		AND c.current_price_currency = 'RUB'
		AND c.price_is_stale = 0`

// ListAliasPrices returns every alias joined to a canonical that carries a
// usable (non-null, non-stale, RUB) price.
func (s *SQLStore) ListAliasPrices(ctx context.Context) ([]PriceRow, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT a.normalized_alias, a.alias, c.normalized_name, c.name, c.current_price_rub, c.current_price_unit
		 FROM ingredient_aliases a
		 JOIN ingredient_catalog c ON c.id = a.canonical_id
		 WHERE `+pricedFilter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alias prices: %w", err)
	}
	defer rows.Close()
	return collectPriceRows(rows)
}

// ListCanonicalPrices returns every canonical with a usable price, without
// alias surface forms.
func (s *SQLStore) ListCanonicalPrices(ctx context.Context) ([]PriceRow, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT '', '', c.normalized_name, c.name, c.current_price_rub, c.current_price_unit
		 FROM ingredient_catalog c
		 WHERE `+pricedFilter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical prices: %w", err)
	}
	defer rows.Close()
	return collectPriceRows(rows)
}

func collectPriceRows(rows *sql.Rows) ([]PriceRow, error) {
	var result []PriceRow
	for rows.Next() {
		var r PriceRow
		if err := rows.Scan(&r.NormalizedAlias, &r.AliasText, &r.NormalizedName, &r.CanonicalName, &r.PriceRub, &r.PriceUnit); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
