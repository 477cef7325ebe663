package recipe

import "time"

// Tag describes an available recipe tag for filters and forms.
type Tag struct {
	Value string
	Label string
}

// Tags is the built-in tag catalog. The first three double as meal slot
// keys in the menu planner.
var Tags = []Tag{
	{Value: "breakfast", Label: "Завтрак"},
	{Value: "lunch", Label: "Обед"},
	{Value: "dinner", Label: "Ужин"},
	{Value: "dessert", Label: "Десерт"},
	{Value: "snack", Label: "Перекус"},
	{Value: "pp", Label: "ПП"},
}

// Recipe is a published recipe with its ordered steps and ingredient lines.
type Recipe struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	ImagePath   string
	Tags        []string
	CreatedAt   time.Time
	Steps       []Step
	Ingredients []Ingredient
}

// Step is one ordered instruction of a recipe.
type Step struct {
	ID          int64
	Position    int
	Instruction string
	ImagePath   string
}

// Ingredient is a (name, amount, unit) line embedded in a recipe. The
// amount is meaningless when the unit is the "to taste" sentinel.
type Ingredient struct {
	ID     int64
	Name   string
	Amount float64
	Unit   string
}

// HasTag reports tag membership.
func (r Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags drops unknown and repeated tag values, preserving order.
func NormalizeTags(values []string) []string {
	known := make(map[string]struct{}, len(Tags))
	for _, tag := range Tags {
		known[tag.Value] = struct{}{}
	}
	seen := make(map[string]struct{})
	var normalized []string
	for _, value := range values {
		if _, ok := known[value]; !ok {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}

// TagLabels returns the value→label mapping for display.
func TagLabels() map[string]string {
	labels := make(map[string]string, len(Tags))
	for _, tag := range Tags {
		labels[tag.Value] = tag.Label
	}
	return labels
}
