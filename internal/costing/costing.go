// Package costing prices recipes and built menu plans against the curated
// ingredient catalog. Money is decimal RUB; rounding happens once per
// recipe/menu total, never per line item.
package costing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Tomich37/foodplanner/internal/ingredient"
	"github.com/Tomich37/foodplanner/internal/menu"
	"github.com/Tomich37/foodplanner/internal/recipe"
	"github.com/Tomich37/foodplanner/internal/units"
)

var thousand = decimal.NewFromInt(1000)

// PriceReference is one resolved price for a normalized ingredient name,
// rebuilt fresh from the catalog on every costing pass.
type PriceReference struct {
	PriceRub decimal.Decimal
	Unit     string
	UnitType units.Type
}

// RecipeCostSummary reports the priced total of one recipe together with
// coverage counters. TotalRub is nil when no ingredient could be priced.
type RecipeCostSummary struct {
	TotalRub           *decimal.Decimal
	PricedIngredients  int
	TotalIngredients   int
	MissingIngredients int
	IsComplete         bool
}

// MenuCostSummary aggregates recipe totals across every resolved meal slot
// of a built plan.
type MenuCostSummary struct {
	TotalRub       *decimal.Decimal
	TotalMeals     int
	MealsWithPrice int
	CompleteMeals  int
	IsComplete     bool
}

// PriceSource supplies the priced catalog rows the lookup is built from.
type PriceSource interface {
	ListAliasPrices(ctx context.Context) ([]ingredient.PriceRow, error)
	ListCanonicalPrices(ctx context.Context) ([]ingredient.PriceRow, error)
}

// Engine computes cost summaries using shared unit conversion.
type Engine struct {
	conv *units.Converter
}

func NewEngine(conv *units.Converter) *Engine {
	return &Engine{conv: conv}
}

func priceUnitType(unit string) (units.Type, bool) {
	switch unit {
	case ingredient.PriceUnitKilogram:
		return units.TypeMass, true
	case ingredient.PriceUnitLiter:
		return units.TypeVolume, true
	case ingredient.PriceUnitPiece:
		return units.TypeCount, true
	}
	return "", false
}

// BuildPriceLookup reads every priced alias and canonical row and indexes the
// price under each normalized surface form. Alias rows win over canonical-only
// rows for the same key: the alias pass overwrites, the canonical pass only
// fills keys not seen yet.
func (e *Engine) BuildPriceLookup(ctx context.Context, src PriceSource) (map[string]PriceReference, error) {
	lookup := make(map[string]PriceReference)

	aliasRows, err := src.ListAliasPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load alias prices: %w", err)
	}
	for _, row := range aliasRows {
		ref, ok := rowReference(row)
		if !ok {
			continue
		}
		for _, key := range rowKeys(row.NormalizedAlias, row.NormalizedName,
			ingredient.NormalizeName(row.AliasText), ingredient.NormalizeName(row.CanonicalName)) {
			lookup[key] = ref
		}
	}

	canonicalRows, err := src.ListCanonicalPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load canonical prices: %w", err)
	}
	for _, row := range canonicalRows {
		ref, ok := rowReference(row)
		if !ok {
			continue
		}
		for _, key := range rowKeys(row.NormalizedName, ingredient.NormalizeName(row.CanonicalName)) {
			if _, exists := lookup[key]; !exists {
				lookup[key] = ref
			}
		}
	}

	return lookup, nil
}

func rowReference(row ingredient.PriceRow) (PriceReference, bool) {
	unitType, ok := priceUnitType(row.PriceUnit)
	if !ok {
		return PriceReference{}, false
	}
	return PriceReference{
		PriceRub: decimal.NewFromFloat(row.PriceRub),
		Unit:     row.PriceUnit,
		UnitType: unitType,
	}, true
}

func rowKeys(candidates ...string) []string {
	seen := make(map[string]struct{}, len(candidates))
	keys := make([]string, 0, len(candidates))
	for _, key := range candidates {
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// CalculateRecipeCost prices one recipe against the lookup. Unmatched names,
// non-positive amounts and unit-category mismatches are skipped, not errors;
// they only lower the coverage counters.
func (e *Engine) CalculateRecipeCost(rec recipe.Recipe, lookup map[string]PriceReference) RecipeCostSummary {
	totalIngredients := len(rec.Ingredients)
	if totalIngredients == 0 {
		return RecipeCostSummary{}
	}

	total := decimal.Zero
	priced := 0

	for _, ing := range rec.Ingredients {
		normalized := ingredient.NormalizeName(ing.Name)
		if normalized == "" {
			continue
		}
		ref, ok := lookup[normalized]
		if !ok {
			continue
		}
		if ing.Amount <= 0 {
			continue
		}
		base, unitType, convertible := e.conv.ToBase(ing.Amount, ing.Unit)
		if !convertible || unitType != ref.UnitType {
			continue
		}

		baseAmount := decimal.NewFromFloat(base)
		var cost decimal.Decimal
		switch ref.Unit {
		case ingredient.PriceUnitKilogram, ingredient.PriceUnitLiter:
			cost = baseAmount.Div(thousand).Mul(ref.PriceRub)
		case ingredient.PriceUnitPiece:
			cost = baseAmount.Mul(ref.PriceRub)
		default:
			continue
		}

		total = total.Add(cost)
		priced++
	}

	summary := RecipeCostSummary{
		PricedIngredients:  priced,
		TotalIngredients:   totalIngredients,
		MissingIngredients: totalIngredients - priced,
		IsComplete:         priced == totalIngredients,
	}
	if priced > 0 {
		rounded := toMoney(total)
		summary.TotalRub = &rounded
	}
	return summary
}

// BuildRecipeCostMap prices every recipe in the pool, keyed by recipe id.
func (e *Engine) BuildRecipeCostMap(recipes []recipe.Recipe, lookup map[string]PriceReference) map[int64]RecipeCostSummary {
	result := make(map[int64]RecipeCostSummary, len(recipes))
	for _, rec := range recipes {
		result[rec.ID] = e.CalculateRecipeCost(rec, lookup)
	}
	return result
}

// CalculateMenuCost sums per-recipe totals across the plan's resolved slots.
// Slots whose recipe has no priced total count toward TotalMeals only.
func CalculateMenuCost(plan []menu.PlanDay, recipeCosts map[int64]RecipeCostSummary) MenuCostSummary {
	total := decimal.Zero
	summary := MenuCostSummary{}

	for _, day := range plan {
		for _, meal := range day.Meals {
			summary.TotalMeals++
			cost, ok := recipeCosts[meal.Recipe.ID]
			if !ok || cost.TotalRub == nil {
				continue
			}
			summary.MealsWithPrice++
			total = total.Add(*cost.TotalRub)
			if cost.IsComplete {
				summary.CompleteMeals++
			}
		}
	}

	if summary.MealsWithPrice > 0 {
		rounded := toMoney(total)
		summary.TotalRub = &rounded
	}
	summary.IsComplete = summary.TotalMeals > 0 && summary.CompleteMeals == summary.TotalMeals
	return summary
}

// toMoney rounds to kopecks, half away from zero.
func toMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// FormatRub renders a money value as "123,45 руб.", or "-" for a missing one.
func FormatRub(value *decimal.Decimal) string {
	if value == nil {
		return "-"
	}
	return strings.Replace(toMoney(*value).StringFixed(2), ".", ",", 1) + " руб."
}
