package units

import (
	"strconv"
	"strings"
)

// Type classifies a measurement unit for aggregation and pricing purposes.
type Type string

const (
	TypeMass   Type = "mass"
	TypeVolume Type = "volume"
	TypeCount  Type = "count"
	TypeOther  Type = "other"
)

// Info describes a supported measurement unit.
type Info struct {
	Key          string
	Label        string
	Type         Type
	FactorToBase float64 // grams or milliliters for mass/volume units
}

// Converter maps ingredient unit tokens to base quantities (g/ml/pcs) and
// renders human-readable amounts with Russian labels.
type Converter struct {
	units       map[string]Info
	defaultUnit string
}

// NewConverter creates a Converter with the fixed unit catalog used across
// recipes, shopping lists and pricing.
func NewConverter() *Converter {
	infos := []Info{
		{Key: "g", Label: "г", Type: TypeMass, FactorToBase: 1},
		{Key: "ml", Label: "мл", Type: TypeVolume, FactorToBase: 1},
		{Key: "tbsp", Label: "ст. л.", Type: TypeVolume, FactorToBase: 15},
		{Key: "tsp", Label: "ч. л.", Type: TypeVolume, FactorToBase: 5},
		{Key: "pcs", Label: "штука", Type: TypeCount, FactorToBase: 1},
		{Key: "taste", Label: "по вкусу", Type: TypeOther, FactorToBase: 0},
	}
	m := make(map[string]Info, len(infos))
	for _, info := range infos {
		m[info.Key] = info
	}
	return &Converter{units: m, defaultUnit: "g"}
}

// NormalizeUnit returns a supported unit key, falling back to grams for
// unknown or empty tokens.
func (c *Converter) NormalizeUnit(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := c.units[value]; ok {
		return value
	}
	return c.defaultUnit
}

// Lookup returns unit metadata for a (possibly raw) unit token.
func (c *Converter) Lookup(value string) Info {
	return c.units[c.NormalizeUnit(value)]
}

// ToBase converts an amount to base units (grams, milliliters or pieces).
// ok is false for the "to taste" category: the ingredient is present but has
// no meaningful quantity, which is not the same as zero.
func (c *Converter) ToBase(amount float64, unit string) (base float64, unitType Type, ok bool) {
	info := c.Lookup(unit)
	if info.Type == TypeOther {
		return 0, info.Type, false
	}
	return amount * info.FactorToBase, info.Type, true
}

// FormatTotal rescales a base amount into display units: mass and volume
// switch to kilograms/liters at 1000, count keeps its label.
func (c *Converter) FormatTotal(baseAmount float64, unitType Type) (float64, string) {
	switch unitType {
	case TypeMass:
		if baseAmount >= 1000 {
			return baseAmount / 1000, "кг"
		}
		return baseAmount, "г"
	case TypeVolume:
		if baseAmount >= 1000 {
			return baseAmount / 1000, "л"
		}
		return baseAmount, "мл"
	case TypeCount:
		return baseAmount, "шт."
	}
	return baseAmount, ""
}

// FormatHuman renders an ingredient amount for recipe and shopping list
// display. "To taste" keeps its fixed label regardless of amount, missing or
// non-positive amounts render a dash, counts are pluralized in Russian.
// With keepInputUnit the original unit label is kept instead of rescaling.
func (c *Converter) FormatHuman(amount float64, unit string, keepInputUnit bool) string {
	info := c.Lookup(unit)
	if info.Type == TypeOther {
		return info.Label
	}
	if amount <= 0 {
		return "—"
	}
	if info.Type == TypeCount {
		return FormatValue(amount) + " " + pluralizeCount(amount)
	}
	if keepInputUnit {
		return FormatValue(amount) + " " + info.Label
	}
	base, unitType, ok := c.ToBase(amount, info.Key)
	if !ok {
		return info.Label
	}
	value, label := c.FormatTotal(base, unitType)
	return strings.TrimSpace(FormatValue(value) + " " + label)
}

// FormatValue trims a quantity to at most two decimal places, dropping a
// trailing zero fraction ("1.50" -> "1.5", "2.00" -> "2").
func FormatValue(value float64) string {
	text := strconv.FormatFloat(value, 'f', 2, 64)
	text = strings.TrimRight(text, "0")
	text = strings.TrimRight(text, ".")
	if text == "" || text == "-" {
		return "0"
	}
	return text
}

// pluralizeCount picks the Russian plural form of "штука" for a count value.
// Numbers ending 11-14 take the genitive plural, ending in 1 the singular,
// ending 2-4 the paucal form, everything else the genitive plural.
func pluralizeCount(value float64) string {
	if value != float64(int64(value)) {
		return "штуки"
	}
	number := int64(value)
	lastTwo := number % 100
	lastOne := number % 10
	if lastTwo >= 11 && lastTwo <= 14 {
		return "штук"
	}
	if lastOne == 1 {
		return "штука"
	}
	if lastOne >= 2 && lastOne <= 4 {
		return "штуки"
	}
	return "штук"
}
