package menu

import (
	"sort"
	"strings"

	"github.com/Tomich37/foodplanner/internal/recipe"
	"github.com/Tomich37/foodplanner/internal/units"
)

// shoppingAggregate accumulates ingredients of resolved meals keyed by
// lowercased ingredient name. Mass and volume totals are tracked separately;
// unquantified ("to taste") lines are flagged, not summed.
type shoppingAggregate struct {
	conv    *units.Converter
	entries map[string]*shoppingEntry
}

type shoppingEntry struct {
	name        string // original casing of the first occurrence
	massTotal   float64
	volumeTotal float64
	countTotal  float64
	hasOther    bool
}

func newShoppingAggregate(conv *units.Converter) *shoppingAggregate {
	return &shoppingAggregate{conv: conv, entries: make(map[string]*shoppingEntry)}
}

func (s *shoppingAggregate) add(ingredients []recipe.Ingredient) {
	for _, ing := range ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		entry, ok := s.entries[key]
		if !ok {
			entry = &shoppingEntry{name: name}
			s.entries[key] = entry
		}

		base, unitType, ok := s.conv.ToBase(ing.Amount, ing.Unit)
		if !ok {
			entry.hasOther = true
			continue
		}
		switch unitType {
		case units.TypeMass:
			entry.massTotal += base
		case units.TypeVolume:
			entry.volumeTotal += base
		case units.TypeCount:
			entry.countTotal += base
		}
	}
}

// items renders the aggregate as an alphabetically sorted shopping list.
// Display preference per item: mass total, then volume, then count, then the
// "to taste" marker, then a dash.
func (s *shoppingAggregate) items() []ShoppingItem {
	result := make([]ShoppingItem, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, ShoppingItem{Name: entry.name, Display: s.display(entry)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (s *shoppingAggregate) display(entry *shoppingEntry) string {
	if entry.massTotal > 0 {
		value, label := s.conv.FormatTotal(entry.massTotal, units.TypeMass)
		return units.FormatValue(value) + " " + label
	}
	if entry.volumeTotal > 0 {
		value, label := s.conv.FormatTotal(entry.volumeTotal, units.TypeVolume)
		return units.FormatValue(value) + " " + label
	}
	if entry.countTotal > 0 {
		value, label := s.conv.FormatTotal(entry.countTotal, units.TypeCount)
		return units.FormatValue(value) + " " + label
	}
	if entry.hasOther {
		return "по вкусу"
	}
	return "—"
}
