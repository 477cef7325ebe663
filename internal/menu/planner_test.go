package menu

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/Tomich37/foodplanner/internal/recipe"
	"github.com/Tomich37/foodplanner/internal/units"
)

func newTestPlanner() *Planner {
	p := NewPlanner(units.NewConverter())
	p.rng = rand.New(rand.NewSource(42))
	return p
}

func testRecipes() []recipe.Recipe {
	return []recipe.Recipe{
		{
			ID:    1,
			Title: "Овсянка",
			Tags:  []string{"breakfast"},
			Ingredients: []recipe.Ingredient{
				{Name: "молоко", Amount: 500, Unit: "g"},
			},
		},
		{
			ID:    2,
			Title: "Суп",
			Tags:  []string{"lunch"},
			Ingredients: []recipe.Ingredient{
				{Name: "картофель", Amount: 300, Unit: "g"},
				{Name: "соль", Amount: 0, Unit: "taste"},
			},
		},
	}
}

func TestParseSelection(t *testing.T) {
	p := newTestPlanner()
	recipeIDs := map[int64]struct{}{1: {}, 2: {}}

	selection := p.ParseSelection([]string{
		"1:breakfast:1",
		"2:lunch:2",
		"1:supper:1",  // unknown meal key
		"1:dinner:99", // unknown recipe
		"junk",        // malformed
		"x:lunch:1",   // non-numeric day
	}, recipeIDs)

	if len(selection) != 2 {
		t.Fatalf("Expected 2 parsed entries, got %d: %v", len(selection), selection)
	}
	if selection[SlotKey{Day: 1, Meal: "breakfast"}] != 1 {
		t.Error("Expected (1, breakfast) -> 1")
	}
	if selection[SlotKey{Day: 2, Meal: "lunch"}] != 2 {
		t.Error("Expected (2, lunch) -> 2")
	}
}

func TestEncodeSelection(t *testing.T) {
	selection := Selection{
		{Day: 2, Meal: "lunch"}:     4,
		{Day: 1, Meal: "lunch"}:     2,
		{Day: 1, Meal: "breakfast"}: 1,
	}
	tokens := EncodeSelection(selection)
	expected := []string{"1:breakfast:1", "1:lunch:2", "2:lunch:4"}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, token := range expected {
		if tokens[i] != token {
			t.Errorf("Token %d: expected %q, got %q", i, token, tokens[i])
		}
	}
}

func TestSplitByMeal(t *testing.T) {
	p := newTestPlanner()
	recipes := []recipe.Recipe{
		{ID: 1, Tags: []string{"breakfast", "lunch"}},
		{ID: 2, Tags: []string{"dessert"}},
	}
	grouped := p.SplitByMeal(recipes)
	if len(grouped["breakfast"]) != 1 || len(grouped["lunch"]) != 1 {
		t.Errorf("Expected recipe 1 under breakfast and lunch, got %v", grouped)
	}
	if len(grouped["dinner"]) != 0 {
		t.Errorf("Expected no dinner candidates, got %v", grouped["dinner"])
	}
}

func TestBuildResolvesAllSlots(t *testing.T) {
	p := newTestPlanner()
	recipes := testRecipes()
	grouped := p.SplitByMeal(recipes)

	result := p.Build(recipes, grouped, 1, Selection{})

	if len(result.Plan) != 1 {
		t.Fatalf("Expected 1 day, got %d", len(result.Plan))
	}
	meals := result.Plan[0].Meals
	if len(meals) != 3 {
		t.Fatalf("Expected 3 meals (dinner falls back to the whole pool), got %d", len(meals))
	}
	if meals[0].MealKey != "breakfast" || meals[0].Recipe.ID != 1 {
		t.Errorf("Expected breakfast -> recipe 1, got %+v", meals[0])
	}
	if meals[1].MealKey != "lunch" || meals[1].Recipe.ID != 2 {
		t.Errorf("Expected lunch -> recipe 2, got %+v", meals[1])
	}
	if meals[2].MealKey != "dinner" {
		t.Errorf("Expected a dinner slot, got %+v", meals[2])
	}
	if meals[2].Recipe.ID != 1 && meals[2].Recipe.ID != 2 {
		t.Errorf("Expected dinner resolved from the pool, got recipe %d", meals[2].Recipe.ID)
	}

	// Every resolved slot must be recorded in the fresh selection map.
	if len(result.Selection) != 3 {
		t.Errorf("Expected 3 recorded selections, got %d", len(result.Selection))
	}
}

func TestBuildRespectsPreSelection(t *testing.T) {
	p := newTestPlanner()
	recipes := testRecipes()
	grouped := p.SplitByMeal(recipes)
	preset := Selection{{Day: 1, Meal: "dinner"}: 2}

	result := p.Build(recipes, grouped, 1, preset)

	if result.Selection[SlotKey{Day: 1, Meal: "dinner"}] != 2 {
		t.Errorf("Expected pre-selected dinner recipe 2 to be kept, got %v", result.Selection)
	}
	// The caller's map must stay untouched.
	if len(preset) != 1 {
		t.Errorf("Expected caller's selection map to stay unchanged, got %v", preset)
	}
}

func TestBuildIgnoresStaleSelection(t *testing.T) {
	p := newTestPlanner()
	recipes := testRecipes()
	grouped := p.SplitByMeal(recipes)
	// Recipe 99 no longer exists in the pool, the slot re-rolls.
	preset := Selection{{Day: 1, Meal: "breakfast"}: 99}

	result := p.Build(recipes, grouped, 1, preset)
	if got := result.Selection[SlotKey{Day: 1, Meal: "breakfast"}]; got != 1 {
		t.Errorf("Expected stale selection replaced with the only candidate 1, got %d", got)
	}
}

func TestBuildEmptyPool(t *testing.T) {
	p := newTestPlanner()
	result := p.Build(nil, p.SplitByMeal(nil), 2, Selection{})
	if len(result.Plan) != 2 {
		t.Fatalf("Expected 2 (empty) days, got %d", len(result.Plan))
	}
	for _, day := range result.Plan {
		if len(day.Meals) != 0 {
			t.Errorf("Expected day %d to have no meals, got %d", day.Day, len(day.Meals))
		}
	}
	if len(result.Selection) != 0 {
		t.Errorf("Expected empty selection, got %v", result.Selection)
	}
	if len(result.ShoppingList) != 0 {
		t.Errorf("Expected empty shopping list, got %v", result.ShoppingList)
	}
}

func TestBuildRepetitionAcrossDays(t *testing.T) {
	p := newTestPlanner()
	recipes := testRecipes()[:1] // single breakfast recipe
	grouped := p.SplitByMeal(recipes)

	result := p.Build(recipes, grouped, 3, Selection{})
	for _, day := range result.Plan {
		for _, meal := range day.Meals {
			if meal.Recipe.ID != 1 {
				t.Errorf("Expected recipe 1 repeated, got %d", meal.Recipe.ID)
			}
		}
	}
	// молоко 500g x 3 days x 3 meals = 4.5 kg
	if len(result.ShoppingList) != 1 {
		t.Fatalf("Expected 1 shopping item, got %d", len(result.ShoppingList))
	}
	if result.ShoppingList[0].Display != "4.5 кг" {
		t.Errorf("Expected '4.5 кг', got %q", result.ShoppingList[0].Display)
	}
}

func TestShoppingListAggregation(t *testing.T) {
	p := newTestPlanner()
	recipes := testRecipes()
	grouped := p.SplitByMeal(recipes)
	// Pin all three slots so the aggregation is deterministic.
	selection := Selection{
		{Day: 1, Meal: "breakfast"}: 1,
		{Day: 1, Meal: "lunch"}:     2,
		{Day: 1, Meal: "dinner"}:    1,
	}

	result := p.Build(recipes, grouped, 1, selection)

	if len(result.ShoppingList) != 3 {
		t.Fatalf("Expected 3 shopping items, got %d: %v", len(result.ShoppingList), result.ShoppingList)
	}
	// Alphabetical: картофель, молоко, соль.
	if result.ShoppingList[0].Name != "картофель" || result.ShoppingList[0].Display != "300 г" {
		t.Errorf("Unexpected first item: %+v", result.ShoppingList[0])
	}
	if result.ShoppingList[1].Name != "молоко" || result.ShoppingList[1].Display != "1 кг" {
		t.Errorf("Unexpected second item: %+v", result.ShoppingList[1])
	}
	if result.ShoppingList[2].Name != "соль" || result.ShoppingList[2].Display != "по вкусу" {
		t.Errorf("Unexpected third item: %+v", result.ShoppingList[2])
	}
}

func TestBuildConcurrent(t *testing.T) {
	// The webhook handler builds plans from a goroutine per update over one
	// shared Planner; the race detector flags unsynchronized RNG draws.
	p := NewPlanner(units.NewConverter())
	recipes := testRecipes()
	grouped := p.SplitByMeal(recipes)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := p.Build(recipes, grouped, 3, Selection{})
			if len(result.Selection) != 9 {
				t.Errorf("Expected 9 resolved slots, got %d", len(result.Selection))
			}
		}()
	}
	wg.Wait()
}

func TestSelectionFromMenuAndMerge(t *testing.T) {
	saved := &Menu{
		Days: []Day{
			{DayNumber: 1, Meals: []Meal{
				{MealType: "lunch", RecipeID: 7},
				{MealType: "breakfast", RecipeID: 3},
			}},
		},
	}
	base := SelectionFromMenu(saved)
	if len(base) != 2 || base[SlotKey{Day: 1, Meal: "lunch"}] != 7 {
		t.Fatalf("Unexpected selection from menu: %v", base)
	}

	override := Selection{{Day: 1, Meal: "dinner"}: 9}
	merged := Merge(base, override)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 merged slots, got %d", len(merged))
	}
	if merged[SlotKey{Day: 1, Meal: "lunch"}] != 7 {
		t.Error("Expected saved lunch selection to survive the merge")
	}
	if merged[SlotKey{Day: 1, Meal: "dinner"}] != 9 {
		t.Error("Expected new dinner selection to win")
	}

	t.Run("OverrideWinsOnCollision", func(t *testing.T) {
		merged := Merge(base, Selection{{Day: 1, Meal: "lunch"}: 5})
		if merged[SlotKey{Day: 1, Meal: "lunch"}] != 5 {
			t.Errorf("Expected override to win, got %d", merged[SlotKey{Day: 1, Meal: "lunch"}])
		}
	})
}
