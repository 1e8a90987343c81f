package domain

import (
	"sort"
	"strings"
)

// FilterByUnit returns the entries belonging to a unit code, order preserved.
// Unit codes compare case-insensitively.
func (c Catalog) FilterByUnit(unit string) Catalog {
	var out Catalog
	for _, e := range c {
		if strings.EqualFold(e.Unit, unit) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByYear returns the entries from one exam year, order preserved.
func (c Catalog) FilterByYear(year int) Catalog {
	var out Catalog
	for _, e := range c {
		if e.Year == year {
			out = append(out, e)
		}
	}
	return out
}

// Units returns the distinct unit codes in the catalog, sorted.
func (c Catalog) Units() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range c {
		key := strings.ToUpper(e.Unit)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Years returns the distinct known exam years in the catalog, ascending.
func (c Catalog) Years() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, e := range c {
		if e.Year == 0 {
			continue
		}
		if _, ok := seen[e.Year]; ok {
			continue
		}
		seen[e.Year] = struct{}{}
		out = append(out, e.Year)
	}
	sort.Ints(out)
	return out
}

// Stats summarizes the catalog for display.
type Stats struct {
	Total   int
	PerUnit map[string]int
	PerYear map[int]int
}

// Stats computes per-unit and per-year question counts.
func (c Catalog) Stats() Stats {
	s := Stats{
		Total:   len(c),
		PerUnit: make(map[string]int),
		PerYear: make(map[int]int),
	}
	for _, e := range c {
		s.PerUnit[strings.ToUpper(e.Unit)]++
		if e.Year != 0 {
			s.PerYear[e.Year]++
		}
	}
	return s
}
