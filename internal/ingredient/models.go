package ingredient

import "time"

// Price units accepted for canonical ingredient prices.
const (
	PriceUnitKilogram = "kg"
	PriceUnitLiter    = "l"
	PriceUnitPiece    = "pcs"
)

// Canonical is the single authoritative record for an ingredient concept.
// Price fields are curated manually (possibly stale) and read by the
// costing engine.
type Canonical struct {
	ID             int64
	Name           string
	NormalizedName string
	Price          *Price
	CreatedAt      time.Time
}

// Price holds the current reference price of a canonical ingredient.
type Price struct {
	AmountRub float64
	Unit      string // kg, l or pcs
	Currency  string
	Region    string
	Source    string
	IsStale   bool
	UpdatedAt time.Time
}

// Alias maps one free-text ingredient name variant to a canonical record.
// NormalizedAlias is globally unique: an alias cannot belong to two
// canonicals at once.
type Alias struct {
	ID              int64
	CanonicalID     int64
	Alias           string
	NormalizedAlias string
	CreatedAt       time.Time
}

// SyncStats reports what a catalog sync pass created.
type SyncStats struct {
	CreatedCanonicals int
	CreatedAliases    int
}

// AttachResult reports the outcome of attaching aliases to a canonical.
// Conflicts lists alias texts that already point to a different canonical
// and were left untouched.
type AttachResult struct {
	Created   int
	Conflicts []string
}
