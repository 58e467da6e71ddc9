package gacha

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// fixedRNG always returns the same value.
type fixedRNG float64

func (r fixedRNG) Float64() float64 { return float64(r) }

// sequenceRNG returns values from a pre-set sequence, cycling.
type sequenceRNG struct {
	values []float64
	idx    int
}

func (r *sequenceRNG) Float64() float64 {
	v := r.values[r.idx%len(r.values)]
	r.idx++
	return v
}

func swordAndPotion() models.Catalog {
	return models.Catalog{Entries: []models.CatalogEntry{
		{ID: "1", Name: "Legendary Sword", Weight: 10, Image: "sword.png", Description: "sword.md"},
		{ID: "2", Name: "Potion", Weight: 90, Image: "potion.png", Description: "potion.md"},
	}}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		roll     float64
		expected string
	}{
		{name: "low roll picks first entry", roll: 0, expected: "Legendary Sword"},
		{name: "roll just under first boundary", roll: 0.0999, expected: "Legendary Sword"},
		{name: "roll on first boundary moves on", roll: 0.1, expected: "Potion"},
		{name: "high roll picks last entry", roll: 0.9999, expected: "Potion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := Select(swordAndPotion(), fixedRNG(tt.roll))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, entry.Name)
		})
	}
}

func TestSelectEmptyCatalog(t *testing.T) {
	tests := []struct {
		name    string
		catalog models.Catalog
	}{
		{name: "no entries", catalog: models.Catalog{}},
		{name: "zero weight", catalog: models.Catalog{Entries: []models.CatalogEntry{{ID: "1", Name: "a", Weight: 0}}}},
		{name: "negative weight", catalog: models.Catalog{Entries: []models.CatalogEntry{{ID: "1", Name: "a", Weight: 5}, {ID: "2", Name: "b", Weight: -5}}}},
		{name: "nan weight", catalog: models.Catalog{Entries: []models.CatalogEntry{{ID: "1", Name: "a", Weight: 10}, {ID: "2", Name: "b", Weight: math.NaN()}}}},
		{name: "infinite weight", catalog: models.Catalog{Entries: []models.CatalogEntry{{ID: "1", Name: "a", Weight: 10}, {ID: "2", Name: "b", Weight: math.Inf(1)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(tt.catalog, fixedRNG(0.5))
			assert.ErrorIs(t, err, ErrEmptyCatalog)
		})
	}
}

func TestSelectNeverReturnsForeignEntry(t *testing.T) {
	catalog := swordAndPotion()
	rng := rand.New(rand.NewPCG(7, 11))

	for range 1000 {
		entry, err := Select(catalog, rng)
		require.NoError(t, err)
		assert.Contains(t, catalog.Entries, entry)
	}
}

func TestSelectFrequenciesConverge(t *testing.T) {
	catalog := models.Catalog{Entries: []models.CatalogEntry{
		{ID: "a", Name: "A", Weight: 1},
		{ID: "b", Name: "B", Weight: 3},
		{ID: "c", Name: "C", Weight: 6},
	}}
	rng := rand.New(rand.NewPCG(42, 1024))

	const n = 200000
	counts := make(map[string]int)
	for range n {
		entry, err := Select(catalog, rng)
		require.NoError(t, err)
		counts[entry.ID]++
	}

	total := catalog.TotalWeight()
	for _, e := range catalog.Entries {
		expected := e.Weight / total
		got := float64(counts[e.ID]) / n
		assert.InDelta(t, expected, got, 0.01, "entry %s", e.ID)
	}
}
