package present

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// CatalogTable renders the entries of c with each entry's draw probability,
// followed by the grade promotion rules when there are any.
func CatalogTable(c models.Catalog) string {
	total := c.TotalWeight()

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("ID", "NAME", "GRADE", "WEIGHT", "CHANCE")
	for _, e := range c.Entries {
		chance := 0.0
		if total > 0 {
			chance = e.Weight / total * 100
		}
		t.Row(e.ID, e.Name, e.Grade, fmt.Sprintf("%g", e.Weight), fmt.Sprintf("%.2f%%", chance))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Title))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")

	keys := make([]string, 0, len(c.Grades))
	for k := range c.Grades {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := c.Grades[k].Promotion
		if p == nil {
			continue
		}
		fmt.Fprintf(&b, "%s → %s: %.1f%% (fake %.1f%%)\n", k, p.NextGrade, p.Rate*100, p.FakeRate*100)
	}
	return b.String()
}
