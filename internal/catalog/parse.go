package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// DefaultTitle is shown when gacha.yaml does not name the machine
const DefaultTitle = "お楽しみガチャ"

// ErrMalformedCatalog is returned for payloads that cannot become a Catalog
var ErrMalformedCatalog = errors.New("malformed catalog")

// rawRecord mirrors one items.yaml record. Pointers distinguish missing
// fields from zero values.
type rawRecord struct {
	ID          any      `yaml:"id"`
	Name        *string  `yaml:"name"`
	Weight      *float64 `yaml:"weight"`
	Image       *string  `yaml:"image"`
	Description *string  `yaml:"description"`
	Grade       string   `yaml:"grade"`
}

type gachaConfig struct {
	Name   string                  `yaml:"name"`
	Grades map[string]models.Grade `yaml:"grades"`
}

// Parse turns a raw payload into a validated Catalog. Any bad record fails
// the whole payload.
func Parse(payload models.CatalogPayload) (models.Catalog, error) {
	var cfg gachaConfig
	if strings.TrimSpace(payload.GachaYAML) != "" {
		if err := yaml.Unmarshal([]byte(payload.GachaYAML), &cfg); err != nil {
			return models.Catalog{}, fmt.Errorf("%w: gacha.yaml: %v", ErrMalformedCatalog, err)
		}
	}
	if err := validateGrades(cfg.Grades); err != nil {
		return models.Catalog{}, err
	}

	var records []rawRecord
	if err := yaml.Unmarshal([]byte(payload.ItemsYAML), &records); err != nil {
		return models.Catalog{}, fmt.Errorf("%w: items.yaml: %v", ErrMalformedCatalog, err)
	}
	if len(records) == 0 {
		return models.Catalog{}, fmt.Errorf("%w: no items", ErrMalformedCatalog)
	}

	catalog := models.Catalog{
		Title:   cfg.Name,
		Grades:  cfg.Grades,
		Entries: make([]models.CatalogEntry, 0, len(records)),
	}
	if catalog.Title == "" {
		catalog.Title = DefaultTitle
	}

	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		entry, err := rec.toEntry()
		if err != nil {
			return models.Catalog{}, fmt.Errorf("%w: record %d: %v", ErrMalformedCatalog, i, err)
		}
		if seen[entry.ID] {
			return models.Catalog{}, fmt.Errorf("%w: record %d: duplicate id %q", ErrMalformedCatalog, i, entry.ID)
		}
		if entry.Grade != "" && len(cfg.Grades) > 0 {
			if _, ok := cfg.Grades[entry.Grade]; !ok {
				return models.Catalog{}, fmt.Errorf("%w: record %d: unknown grade %q", ErrMalformedCatalog, i, entry.Grade)
			}
		}
		seen[entry.ID] = true
		catalog.Entries = append(catalog.Entries, entry)
	}

	return catalog, nil
}

func (r rawRecord) toEntry() (models.CatalogEntry, error) {
	if r.ID == nil {
		return models.CatalogEntry{}, errors.New("missing id")
	}
	id := strings.TrimSpace(fmt.Sprint(r.ID))
	if id == "" {
		return models.CatalogEntry{}, errors.New("empty id")
	}
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return models.CatalogEntry{}, errors.New("missing name")
	}
	if r.Weight == nil {
		return models.CatalogEntry{}, errors.New("missing weight")
	}
	if w := *r.Weight; math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return models.CatalogEntry{}, fmt.Errorf("weight must be positive, got %v", *r.Weight)
	}
	if r.Image == nil || *r.Image == "" {
		return models.CatalogEntry{}, errors.New("missing image")
	}
	if r.Description == nil || *r.Description == "" {
		return models.CatalogEntry{}, errors.New("missing description")
	}

	return models.CatalogEntry{
		ID:          id,
		Name:        *r.Name,
		Weight:      *r.Weight,
		Image:       *r.Image,
		Description: *r.Description,
		Grade:       r.Grade,
	}, nil
}

func validateGrades(grades map[string]models.Grade) error {
	for key, g := range grades {
		if g.Promotion == nil {
			continue
		}
		p := g.Promotion
		if !inUnit(p.Rate) || !inUnit(p.FakeRate) {
			return fmt.Errorf("%w: grade %q: rates must be within [0, 1]", ErrMalformedCatalog, key)
		}
		if p.NextGrade != "" {
			if _, ok := grades[p.NextGrade]; !ok {
				return fmt.Errorf("%w: grade %q: unknown next_grade %q", ErrMalformedCatalog, key, p.NextGrade)
			}
		}
	}
	return nil
}

// inUnit reports whether v is within [0, 1]; NaN is not
func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
