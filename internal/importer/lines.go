package importer

import (
	"strconv"
	"strings"

	"github.com/Tomich37/foodplanner/internal/recipe"
)

// multiword unit spellings folded into one token before splitting.
var unitReplacer = strings.NewReplacer(
	"ст. л.", "ст.л.",
	"ст. ложка", "ст.л.",
	"ст. ложки", "ст.л.",
	"столовая ложка", "ст.л.",
	"столовые ложки", "ст.л.",
	"столовых ложек", "ст.л.",
	"ч. л.", "ч.л.",
	"ч. ложка", "ч.л.",
	"чайная ложка", "ч.л.",
	"чайные ложки", "ч.л.",
	"чайных ложек", "ч.л.",
)

// unitTokens maps a Russian unit spelling to a unit key and a factor applied
// to the written amount (кг and л are folded into the base g/ml units).
var unitTokens = map[string]struct {
	key    string
	factor float64
}{
	"г":       {"g", 1},
	"гр":      {"g", 1},
	"грамм":   {"g", 1},
	"грамма":  {"g", 1},
	"граммов": {"g", 1},
	"кг":      {"g", 1000},
	"мл":      {"ml", 1},
	"л":       {"ml", 1000},
	"литр":    {"ml", 1000},
	"литра":   {"ml", 1000},
	"ст.л.":   {"tbsp", 1},
	"ст.л":    {"tbsp", 1},
	"ч.л.":    {"tsp", 1},
	"ч.л":     {"tsp", 1},
	"шт":      {"pcs", 1},
	"штука":   {"pcs", 1},
	"штуки":   {"pcs", 1},
	"штук":    {"pcs", 1},
}

// ParseIngredientLine turns a free-text ingredient line like
// "Молоко — 500 мл" or "Яйца — 2 шт." into a structured entry. Lines that
// reduce to an empty name are rejected.
func (im *Importer) ParseIngredientLine(line string) (recipe.Ingredient, bool) {
	cleaned := strings.TrimSpace(line)
	if cleaned == "" {
		return recipe.Ingredient{}, false
	}

	lower := strings.ToLower(cleaned)
	if strings.Contains(lower, "по вкусу") {
		name := strings.TrimSpace(trimSeparators(strings.ReplaceAll(lower, "по вкусу", "")))
		if name == "" {
			return recipe.Ingredient{}, false
		}
		return recipe.Ingredient{Name: name, Amount: 0, Unit: "taste"}, true
	}

	lower = unitReplacer.Replace(lower)
	tokens := strings.Fields(trimSeparators(lower))

	amount := 0.0
	unit := ""
	var nameTokens []string
	for i := 0; i < len(tokens); i++ {
		token := strings.Trim(tokens[i], ".")
		if amount == 0 {
			if value, ok := parseAmount(token); ok {
				amount = value
				// a unit spelling directly after the number belongs to it
				if i+1 < len(tokens) {
					next := strings.Trim(tokens[i+1], ".")
					if info, known := unitTokens[next]; known {
						unit = info.key
						amount *= info.factor
						i++
					}
				}
				continue
			}
		}
		if info, known := unitTokens[token]; known && unit == "" {
			unit = info.key
			if amount > 0 {
				amount *= info.factor
			}
			continue
		}
		nameTokens = append(nameTokens, tokens[i])
	}

	name := strings.TrimSpace(trimSeparators(strings.Join(nameTokens, " ")))
	if name == "" {
		return recipe.Ingredient{}, false
	}
	if unit == "" {
		unit = im.conv.NormalizeUnit("")
	}
	return recipe.Ingredient{Name: name, Amount: amount, Unit: unit}, true
}

// parseAmount reads "2", "1.5", "1,5" and simple fractions like "1/2".
func parseAmount(token string) (float64, bool) {
	token = strings.ReplaceAll(token, ",", ".")
	if num, den, ok := strings.Cut(token, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func trimSeparators(value string) string {
	return strings.Trim(value, " \t-–—:,")
}
