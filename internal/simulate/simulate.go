// Package simulate runs a catalog through many draws offline and compares
// the observed frequencies with the configured weights.
package simulate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/gacha/internal/gacha"
	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// Draw is one simulated pull, as exported to parquet
type Draw struct {
	Index         int64  `parquet:"index"`
	ID            string `parquet:"id"`
	Name          string `parquet:"name"`
	Grade         string `parquet:"grade"`
	Promoted      bool   `parquet:"promoted"`
	FromGrade     string `parquet:"from_grade"`
	FakePromotion bool   `parquet:"fake_promotion"`
}

// EntryStat compares one entry's share of the draws with its weight
type EntryStat struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Grade    string  `yaml:"grade,omitempty"`
	Weight   float64 `yaml:"weight"`
	Expected float64 `yaml:"expected"`
	Count    int     `yaml:"count"`
	Observed float64 `yaml:"observed"`
	Delta    float64 `yaml:"delta"`
}

// Report summarizes a simulation run
type Report struct {
	Title          string      `yaml:"title"`
	Pulls          int         `yaml:"pulls"`
	Seed           uint64      `yaml:"seed"`
	Promotions     int         `yaml:"promotions"`
	FakePromotions int         `yaml:"fake_promotions"`
	Entries        []EntryStat `yaml:"entries"`
}

// Run draws pulls times from catalog. Expected frequencies are the plain
// weight shares; promotions move draws between grades on top of that.
func Run(catalog models.Catalog, pulls int, rng gacha.RNG) (Report, []Draw, error) {
	if pulls <= 0 {
		return Report{}, nil, fmt.Errorf("pulls must be positive, got %d", pulls)
	}
	total := catalog.TotalWeight()
	if len(catalog.Entries) == 0 || total <= 0 {
		return Report{}, nil, gacha.ErrEmptyCatalog
	}

	counts := make(map[string]int, len(catalog.Entries))
	draws := make([]Draw, 0, pulls)
	report := Report{Title: catalog.Title, Pulls: pulls}

	for i := range pulls {
		out, err := gacha.Draw(catalog, rng)
		if err != nil {
			return Report{}, nil, fmt.Errorf("draw %d: %w", i, err)
		}
		counts[out.Entry.ID]++
		if out.Promoted {
			report.Promotions++
		}
		if out.FakePromotion {
			report.FakePromotions++
		}
		draws = append(draws, Draw{
			Index:         int64(i),
			ID:            out.Entry.ID,
			Name:          out.Entry.Name,
			Grade:         out.Entry.Grade,
			Promoted:      out.Promoted,
			FromGrade:     out.FromGrade,
			FakePromotion: out.FakePromotion,
		})
	}

	for _, e := range catalog.Entries {
		expected := e.Weight / total
		observed := float64(counts[e.ID]) / float64(pulls)
		report.Entries = append(report.Entries, EntryStat{
			ID:       e.ID,
			Name:     e.Name,
			Grade:    e.Grade,
			Weight:   e.Weight,
			Expected: expected,
			Count:    counts[e.ID],
			Observed: observed,
			Delta:    observed - expected,
		})
	}

	slog.Debug("Simulation finished", "pulls", pulls, "entries", len(report.Entries), "promotions", report.Promotions)
	return report, draws, nil
}

// Print writes a human readable summary of the report
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "%s: %d pulls\n", r.Title, r.Pulls)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "%-24s %-8s %8s %10s %10s %9s\n", "NAME", "GRADE", "COUNT", "EXPECTED", "OBSERVED", "DELTA")
	fmt.Fprintln(w, strings.Repeat("-", 72))

	entries := append([]EntryStat(nil), r.Entries...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Expected > entries[j].Expected })
	for _, e := range entries {
		fmt.Fprintf(w, "%-24s %-8s %8d %9.3f%% %9.3f%% %+8.3f%%\n",
			truncate(e.Name, 24), e.Grade, e.Count, e.Expected*100, e.Observed*100, e.Delta*100)
	}

	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "Promotions: %d\n", r.Promotions)
	fmt.Fprintf(w, "Fake promotions: %d\n", r.FakePromotions)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// SaveYAML writes the report to path
func SaveYAML(path string, r Report) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

// WriteParquet exports draws to a parquet file at path
func WriteParquet(path string, draws []Draw) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Draw](file)
	if _, err := writer.Write(draws); err != nil {
		return fmt.Errorf("failed to write draws: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}

	slog.Debug("Draws exported", "path", path, "rows", len(draws))
	return file.Close()
}

// ReadParquet loads draws previously written by WriteParquet
func ReadParquet(path string) ([]Draw, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Draw](pf)
	defer reader.Close()

	draws := make([]Draw, 0, pf.NumRows())
	rows := make([]Draw, 128)
	for {
		n, err := reader.Read(rows)
		draws = append(draws, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read draws: %w", err)
		}
	}
	return draws, nil
}
