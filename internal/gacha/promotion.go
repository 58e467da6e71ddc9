package gacha

import (
	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// Outcome is the final result of a draw after grade promotion.
type Outcome struct {
	Entry         models.CatalogEntry
	Promoted      bool
	FromGrade     string
	FakePromotion bool
}

// CheckPromotion returns the next grade when the promotion roll succeeds.
func CheckPromotion(grade models.Grade, rng RNG) (string, bool) {
	if grade.Promotion == nil || grade.Promotion.NextGrade == "" {
		return "", false
	}
	if rng.Float64() < grade.Promotion.Rate {
		return grade.Promotion.NextGrade, true
	}
	return "", false
}

// CheckFakePromotion reports whether a fake promotion effect should play.
func CheckFakePromotion(grade models.Grade, rng RNG) bool {
	if grade.Promotion == nil || grade.Promotion.FakeRate <= 0 {
		return false
	}
	return rng.Float64() < grade.Promotion.FakeRate
}

// Draw selects an entry by weight and then walks the promotion chain of its
// grade. The walk is bounded by the number of grades so cyclic configs
// terminate, and it lands on the furthest reached grade that owns entries.
func Draw(catalog models.Catalog, rng RNG) (Outcome, error) {
	entry, err := Select(catalog, rng)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Entry: entry, FromGrade: entry.Grade}
	if entry.Grade == "" || len(catalog.Grades) == 0 {
		return out, nil
	}

	reached := []string{entry.Grade}
	for range len(catalog.Grades) {
		cfg, ok := catalog.Grades[reached[len(reached)-1]]
		if !ok {
			break
		}
		next, promoted := CheckPromotion(cfg, rng)
		if !promoted {
			break
		}
		reached = append(reached, next)
	}

	current := entry.Grade
	for i := len(reached) - 1; i > 0; i-- {
		if len(catalog.ByGrade(reached[i])) > 0 {
			current = reached[i]
			break
		}
	}

	if current != entry.Grade {
		promotedEntry, err := selectFrom(catalog.ByGrade(current), rng)
		if err != nil {
			return Outcome{}, err
		}
		out.Entry = promotedEntry
		out.Promoted = true
		return out, nil
	}

	if cfg, ok := catalog.Grades[entry.Grade]; ok {
		out.FakePromotion = CheckFakePromotion(cfg, rng)
	}
	return out, nil
}
