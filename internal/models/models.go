package models

import "time"

// CatalogEntry is one drawable item of a gacha catalog
type CatalogEntry struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Image       string  `json:"image" yaml:"image"`             // file ref, resolved by the backend
	Description string  `json:"description" yaml:"description"` // markdown file ref
	Grade       string  `json:"grade,omitempty" yaml:"grade,omitempty"`
}

// Ref returns the asset references needed to resolve this entry
func (e CatalogEntry) Ref() AssetRef {
	return AssetRef{Image: e.Image, Description: e.Description}
}

// Promotion configures how a grade may upgrade after a draw
type Promotion struct {
	Rate      float64 `json:"rate" yaml:"rate"`
	NextGrade string  `json:"next_grade" yaml:"next_grade"`
	FakeRate  float64 `json:"fake_rate,omitempty" yaml:"fake_rate,omitempty"`
}

// Grade is a rarity tier
type Grade struct {
	Color     string     `json:"color" yaml:"color"`
	Promotion *Promotion `json:"promotion,omitempty" yaml:"promotion,omitempty"`
}

// Catalog is the loaded, validated item list. Entries keep source order.
type Catalog struct {
	Title   string           `json:"title"`
	Entries []CatalogEntry   `json:"entries"`
	Grades  map[string]Grade `json:"grades,omitempty"`
}

// TotalWeight sums the weight of every entry
func (c Catalog) TotalWeight() float64 {
	var total float64
	for _, e := range c.Entries {
		total += e.Weight
	}
	return total
}

// ByGrade returns the entries of one grade, in catalog order
func (c Catalog) ByGrade(grade string) []CatalogEntry {
	var out []CatalogEntry
	for _, e := range c.Entries {
		if e.Grade == grade {
			out = append(out, e)
		}
	}
	return out
}

// AssetRef names the two files that make up an item's asset
type AssetRef struct {
	Image       string `json:"image"`
	Description string `json:"description"`
}

// CatalogPayload is the raw catalog as delivered by a backend
type CatalogPayload struct {
	GachaYAML string `json:"gachaYaml"`
	ItemsYAML string `json:"itemsYaml"`
}

// AssetPayload is the raw asset as delivered by a backend
type AssetPayload struct {
	ImageData string `json:"imageData"` // data URI
	MDContent string `json:"mdContent"`
}

// AssetBundle is a resolved asset ready for display
type AssetBundle struct {
	ImageData       string `json:"image"`
	DescriptionHTML string `json:"description"`
}

// PullSession tracks a single draw from start to reveal or failure
type PullSession struct {
	ID            uint64
	StartedAt     time.Time
	Selected      CatalogEntry
	Asset         *AssetBundle
	AnimationDone bool
	AssetResolved bool

	Promoted      bool
	FromGrade     string
	FakePromotion bool
}
