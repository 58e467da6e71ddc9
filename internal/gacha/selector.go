package gacha

import (
	"errors"
	"math"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// ErrEmptyCatalog is returned when a draw is attempted on a catalog that
// has no entries or an entry without a finite positive weight.
var ErrEmptyCatalog = errors.New("catalog has no drawable entries")

// RNG abstracts random number generation for deterministic testing.
// *math/rand/v2.Rand satisfies it.
type RNG interface {
	// Float64 returns a random float64 in [0.0, 1.0).
	Float64() float64
}

// Select draws one entry with probability weight/totalWeight.
func Select(catalog models.Catalog, rng RNG) (models.CatalogEntry, error) {
	return selectFrom(catalog.Entries, rng)
}

func selectFrom(entries []models.CatalogEntry, rng RNG) (models.CatalogEntry, error) {
	if len(entries) == 0 {
		return models.CatalogEntry{}, ErrEmptyCatalog
	}

	var total float64
	for _, e := range entries {
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight <= 0 {
			return models.CatalogEntry{}, ErrEmptyCatalog
		}
		total += e.Weight
	}

	roll := rng.Float64() * total
	var cumulative float64
	for _, e := range entries {
		cumulative += e.Weight
		if cumulative > roll {
			return e, nil
		}
	}

	// Only reachable through float rounding at the upper bound.
	return entries[len(entries)-1], nil
}
