package menu

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Tomich37/foodplanner/internal/recipe"
	"github.com/Tomich37/foodplanner/internal/units"
)

// MealType describes a meal slot with a machine key and a Russian label.
type MealType struct {
	Key   string
	Label string
}

// MealTypes is the fixed meal slot catalog, in slot resolution order.
var MealTypes = []MealType{
	{Key: "breakfast", Label: "Завтрак"},
	{Key: "lunch", Label: "Обед"},
	{Key: "dinner", Label: "Ужин"},
}

// SlotKey identifies one meal slot of a plan.
type SlotKey struct {
	Day  int
	Meal string
}

// Selection maps meal slots to chosen recipe ids.
type Selection map[SlotKey]int64

// PlanMeal is one resolved meal of a plan day.
type PlanMeal struct {
	MealKey   string
	MealLabel string
	Recipe    recipe.Recipe
}

// PlanDay is one day of a built plan.
type PlanDay struct {
	Day   int
	Meals []PlanMeal
}

// ShoppingItem is one aggregated shopping list entry.
type ShoppingItem struct {
	Name    string
	Display string
}

// PlanResult is the outcome of a plan-building pass. Selection is a fresh
// map recording every resolved slot, so re-renders and saves do not re-roll
// already-resolved meals.
type PlanResult struct {
	Plan         []PlanDay
	ShoppingList []ShoppingItem
	Selection    Selection
}

// Planner builds day-by-day meal plans from a recipe pool, a partial user
// selection and uniform-random fallback assignment.
type Planner struct {
	mealTypes []MealType
	mealKeys  map[string]struct{}
	conv      *units.Converter

	// rng is not goroutine-safe; mu serializes draws so Build can run
	// from concurrent requests.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlanner creates a Planner over the fixed meal type catalog.
func NewPlanner(conv *units.Converter) *Planner {
	keys := make(map[string]struct{}, len(MealTypes))
	for _, meal := range MealTypes {
		keys[meal.Key] = struct{}{}
	}
	return &Planner{
		mealTypes: MealTypes,
		mealKeys:  keys,
		conv:      conv,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Planner) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// IsMealKey reports whether the value names a known meal slot.
func (p *Planner) IsMealKey(value string) bool {
	_, ok := p.mealKeys[value]
	return ok
}

// ParseSelection decodes "{day}:{meal}:{recipe_id}" tokens from a request,
// silently dropping malformed entries, unknown meal keys and recipe ids not
// present in the pool.
func (p *Planner) ParseSelection(values []string, recipeIDs map[int64]struct{}) Selection {
	parsed := make(Selection)
	for _, value := range values {
		parts := strings.Split(value, ":")
		if len(parts) != 3 {
			continue
		}
		day, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		recipeID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		mealKey := parts[1]
		if !p.IsMealKey(mealKey) {
			continue
		}
		if _, ok := recipeIDs[recipeID]; !ok {
			continue
		}
		parsed[SlotKey{Day: day, Meal: mealKey}] = recipeID
	}
	return parsed
}

// EncodeSelection serializes a selection back to sorted tokens for
// round-tripping through a request or form.
func EncodeSelection(selection Selection) []string {
	keys := make([]SlotKey, 0, len(selection))
	for key := range selection {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Meal < keys[j].Meal
	})
	tokens := make([]string, 0, len(keys))
	for _, key := range keys {
		tokens = append(tokens, fmt.Sprintf("%d:%s:%d", key.Day, key.Meal, selection[key]))
	}
	return tokens
}

// SplitByMeal groups recipes by meal slot key using tag membership. A recipe
// can land in several groups, or none.
func (p *Planner) SplitByMeal(recipes []recipe.Recipe) map[string][]recipe.Recipe {
	grouped := make(map[string][]recipe.Recipe, len(p.mealTypes))
	for _, meal := range p.mealTypes {
		grouped[meal.Key] = nil
	}
	for _, rec := range recipes {
		for _, meal := range p.mealTypes {
			if rec.HasTag(meal.Key) {
				grouped[meal.Key] = append(grouped[meal.Key], rec)
			}
		}
	}
	return grouped
}

// Build resolves every (day, meal) slot for the requested day count. A
// pre-selected recipe wins while it is still in the pool; otherwise a
// uniform-random candidate is chosen from the meal's tag group, falling back
// to the whole pool. With an empty pool the slot is skipped. The caller's
// selection map is never mutated; the resolved selection comes back fresh in
// the result together with the aggregated shopping list.
func (p *Planner) Build(recipes []recipe.Recipe, grouped map[string][]recipe.Recipe, days int, selection Selection) PlanResult {
	recipeByID := make(map[int64]recipe.Recipe, len(recipes))
	for _, rec := range recipes {
		recipeByID[rec.ID] = rec
	}

	updated := make(Selection)
	var plan []PlanDay
	shopping := newShoppingAggregate(p.conv)

	for day := 1; day <= days; day++ {
		planDay := PlanDay{Day: day}
		for _, meal := range p.mealTypes {
			key := SlotKey{Day: day, Meal: meal.Key}

			var selected *recipe.Recipe
			if id, ok := selection[key]; ok {
				if rec, present := recipeByID[id]; present {
					selected = &rec
				}
			}

			candidates := grouped[meal.Key]
			if len(candidates) == 0 {
				candidates = recipes
			}
			if len(candidates) == 0 {
				continue
			}
			if selected == nil {
				pick := candidates[p.intn(len(candidates))]
				selected = &pick
			}

			updated[key] = selected.ID
			planDay.Meals = append(planDay.Meals, PlanMeal{
				MealKey:   meal.Key,
				MealLabel: meal.Label,
				Recipe:    *selected,
			})
			shopping.add(selected.Ingredients)
		}
		plan = append(plan, planDay)
	}

	return PlanResult{
		Plan:         plan,
		ShoppingList: shopping.items(),
		Selection:    updated,
	}
}

// SelectionFromMenu reconstructs a selection map from a saved menu's
// (day, meal) → recipe associations.
func SelectionFromMenu(m *Menu) Selection {
	selection := make(Selection)
	if m == nil {
		return selection
	}
	for _, day := range m.Days {
		for _, meal := range day.Meals {
			selection[SlotKey{Day: day.DayNumber, Meal: meal.MealType}] = meal.RecipeID
		}
	}
	return selection
}

// Merge overlays newer selections over a base map, returning a fresh map.
// Used to open a saved menu and tweak single meals without losing the rest.
func Merge(base, override Selection) Selection {
	merged := make(Selection, len(base)+len(override))
	for key, id := range base {
		merged[key] = id
	}
	for key, id := range override {
		merged[key] = id
	}
	return merged
}
