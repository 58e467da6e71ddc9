package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

const itemsYAML = `- id: 1
  name: Legendary Sword
  weight: 10
  image: sword.png
  description: sword.md
- id: potion
  name: Potion
  weight: 90
  image: potion.png
  description: potion.md
`

func TestParse(t *testing.T) {
	catalog, err := Parse(models.CatalogPayload{ItemsYAML: itemsYAML})
	require.NoError(t, err)

	require.Len(t, catalog.Entries, 2)
	assert.Equal(t, DefaultTitle, catalog.Title)
	assert.Equal(t, models.CatalogEntry{ID: "1", Name: "Legendary Sword", Weight: 10, Image: "sword.png", Description: "sword.md"}, catalog.Entries[0])
	assert.Equal(t, "potion", catalog.Entries[1].ID)
	assert.Equal(t, float64(100), catalog.TotalWeight())
}

func TestParseWithGrades(t *testing.T) {
	gacha := `name: 伝説の装備ガチャ
grades:
  blue:
    color: blue
    promotion:
      rate: 0.1
      next_grade: gold
      fake_rate: 0.05
  gold:
    color: gold
`
	items := `- {id: 1, name: Shield, weight: 5, image: s.png, description: s.md, grade: blue}
- {id: 2, name: Crown, weight: 1, image: c.png, description: c.md, grade: gold}
`
	catalog, err := Parse(models.CatalogPayload{GachaYAML: gacha, ItemsYAML: items})
	require.NoError(t, err)

	assert.Equal(t, "伝説の装備ガチャ", catalog.Title)
	require.Contains(t, catalog.Grades, "blue")
	require.NotNil(t, catalog.Grades["blue"].Promotion)
	assert.Equal(t, "gold", catalog.Grades["blue"].Promotion.NextGrade)
	assert.Equal(t, 0.05, catalog.Grades["blue"].Promotion.FakeRate)
	assert.Len(t, catalog.ByGrade("gold"), 1)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		gacha string
		items string
	}{
		{name: "missing weight", items: "- {id: 1, name: Sword, image: s.png, description: s.md}"},
		{name: "zero weight", items: "- {id: 1, name: Sword, weight: 0, image: s.png, description: s.md}"},
		{name: "nan weight", items: "- {id: 1, name: Sword, weight: 10, image: s.png, description: s.md}\n- {id: 2, name: Potion, weight: .nan, image: p.png, description: p.md}"},
		{name: "infinite weight", items: "- {id: 1, name: Sword, weight: 10, image: s.png, description: s.md}\n- {id: 2, name: Potion, weight: .inf, image: p.png, description: p.md}"},
		{name: "non numeric weight", items: "- {id: 1, name: Sword, weight: heavy, image: s.png, description: s.md}"},
		{name: "missing name", items: "- {id: 1, weight: 1, image: s.png, description: s.md}"},
		{name: "missing id", items: "- {name: Sword, weight: 1, image: s.png, description: s.md}"},
		{name: "missing image", items: "- {id: 1, name: Sword, weight: 1, description: s.md}"},
		{name: "missing description", items: "- {id: 1, name: Sword, weight: 1, image: s.png}"},
		{name: "duplicate id", items: "- {id: 1, name: A, weight: 1, image: a.png, description: a.md}\n- {id: 1, name: B, weight: 1, image: b.png, description: b.md}"},
		{name: "empty list", items: "[]"},
		{name: "empty payload", items: ""},
		{name: "not a list", items: "name: Sword"},
		{name: "unknown grade", gacha: "grades: {blue: {color: blue}}", items: "- {id: 1, name: A, weight: 1, image: a.png, description: a.md, grade: red}"},
		{name: "unknown next grade", gacha: "grades: {blue: {promotion: {rate: 0.5, next_grade: gold}}}", items: "- {id: 1, name: A, weight: 1, image: a.png, description: a.md}"},
		{name: "rate out of range", gacha: "grades: {blue: {promotion: {rate: 1.5}}}", items: "- {id: 1, name: A, weight: 1, image: a.png, description: a.md}"},
		{name: "nan rate", gacha: "grades: {blue: {promotion: {rate: .nan}}}", items: "- {id: 1, name: A, weight: 1, image: a.png, description: a.md}"},
		{name: "broken gacha yaml", gacha: "grades: [", items: "- {id: 1, name: A, weight: 1, image: a.png, description: a.md}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(models.CatalogPayload{GachaYAML: tt.gacha, ItemsYAML: tt.items})
			assert.ErrorIs(t, err, ErrMalformedCatalog)
		})
	}
}
