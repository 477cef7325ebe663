package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Tomich37/foodplanner/internal/config"
	"github.com/Tomich37/foodplanner/internal/database"
	"github.com/Tomich37/foodplanner/internal/ingredient"
	"github.com/Tomich37/foodplanner/internal/recipe"
)

// newTestApp spins up an App over a migrated throwaway database and returns
// it together with the id of a seeded user.
func newTestApp(t *testing.T) (*App, int64) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	res, err := db.SQL.Exec(
		`INSERT INTO users (email, full_name) VALUES (?, ?)`,
		"cook@test.local", "Test Cook")
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	userID, _ := res.LastInsertId()

	cfg := &config.Config{DatabasePath: "unused", PlanDays: 3}
	return NewApp(cfg, db), userID
}

func seedRecipes(t *testing.T, a *App, userID int64) (int64, int64) {
	t.Helper()
	ctx := context.Background()

	breakfast := &recipe.Recipe{
		UserID: userID,
		Title:  "Овсянка",
		Tags:   []string{"breakfast"},
		Ingredients: []recipe.Ingredient{
			{Name: "Молоко (2.5%)", Amount: 500, Unit: "ml"},
			{Name: "Овсяные хлопья", Amount: 100, Unit: "g"},
		},
		Steps: []recipe.Step{{Position: 1, Instruction: "Варить 10 минут."}},
	}
	lunch := &recipe.Recipe{
		UserID: userID,
		Title:  "Суп",
		Tags:   []string{"lunch", "dinner"},
		Ingredients: []recipe.Ingredient{
			{Name: "Картофель молодой", Amount: 300, Unit: "g"},
			{Name: "Соль", Amount: 0, Unit: "taste"},
		},
	}
	if err := a.Recipes().Save(ctx, breakfast); err != nil {
		t.Fatalf("Failed to save breakfast recipe: %v", err)
	}
	if err := a.Recipes().Save(ctx, lunch); err != nil {
		t.Fatalf("Failed to save lunch recipe: %v", err)
	}
	return breakfast.ID, lunch.ID
}

func TestSyncCatalog(t *testing.T) {
	a, userID := newTestApp(t)
	seedRecipes(t, a, userID)
	ctx := context.Background()

	stats, err := a.SyncCatalog(ctx)
	if err != nil {
		t.Fatalf("SyncCatalog failed: %v", err)
	}
	if stats.CreatedCanonicals == 0 || stats.CreatedAliases == 0 {
		t.Errorf("Expected catalog entries to be created, got %+v", stats)
	}

	// Re-running is a no-op.
	again, err := a.SyncCatalog(ctx)
	if err != nil {
		t.Fatalf("Second SyncCatalog failed: %v", err)
	}
	if again.CreatedCanonicals != 0 || again.CreatedAliases != 0 {
		t.Errorf("Expected idempotent resync, got %+v", again)
	}
}

func TestBuildAndSaveMenu(t *testing.T) {
	a, userID := newTestApp(t)
	breakfastID, lunchID := seedRecipes(t, a, userID)
	ctx := context.Background()

	if _, err := a.SyncCatalog(ctx); err != nil {
		t.Fatalf("SyncCatalog failed: %v", err)
	}
	err := a.SetIngredientPrice(ctx, "Молоко", ingredient.Price{
		AmountRub: 90, Unit: ingredient.PriceUnitLiter, Currency: "RUB",
	})
	if err != nil {
		t.Fatalf("SetIngredientPrice failed: %v", err)
	}

	result, err := a.BuildMenu(ctx, BuildMenuRequest{Days: 2})
	if err != nil {
		t.Fatalf("BuildMenu failed: %v", err)
	}
	if len(result.Plan) != 2 {
		t.Fatalf("Expected 2 plan days, got %d", len(result.Plan))
	}
	for _, day := range result.Plan {
		if len(day.Meals) != 3 {
			t.Errorf("Expected 3 meals on day %d, got %d", day.Day, len(day.Meals))
		}
	}
	if len(result.ShoppingList) == 0 {
		t.Error("Expected a non-empty shopping list")
	}
	if lunchCost := result.RecipeCosts[lunchID]; lunchCost.TotalRub != nil {
		t.Errorf("Expected unpriced lunch recipe, got total %s", lunchCost.TotalRub)
	}
	breakfastCost, ok := result.RecipeCosts[breakfastID]
	if !ok || breakfastCost.TotalRub == nil {
		t.Fatalf("Expected a priced breakfast recipe, got %+v", breakfastCost)
	}
	// 0.5 l of milk at 90 RUB/l; oat flakes are unpriced.
	if breakfastCost.TotalRub.String() != "45" {
		t.Errorf("Expected breakfast total 45, got %s", breakfastCost.TotalRub)
	}
	if breakfastCost.IsComplete {
		t.Error("Expected breakfast to be partially priced only")
	}

	saved, err := a.SaveMenu(ctx, 0, userID, "Неделя", 2, result.SelectionTokens)
	if err != nil {
		t.Fatalf("SaveMenu failed: %v", err)
	}
	if saved.ID == 0 || len(saved.Days) != 2 {
		t.Fatalf("Unexpected saved menu: %+v", saved)
	}

	// Reopening the saved menu keeps the selections and does not re-roll.
	reopened, err := a.BuildMenu(ctx, BuildMenuRequest{Days: 2, MenuID: saved.ID})
	if err != nil {
		t.Fatalf("BuildMenu over saved menu failed: %v", err)
	}
	if len(reopened.SelectionTokens) != len(result.SelectionTokens) {
		t.Fatalf("Expected %d selection tokens, got %d",
			len(result.SelectionTokens), len(reopened.SelectionTokens))
	}
	for i, token := range result.SelectionTokens {
		if reopened.SelectionTokens[i] != token {
			t.Errorf("Token %d changed after reopen: %q -> %q", i, token, reopened.SelectionTokens[i])
		}
	}

	t.Run("DeleteWrongOwner", func(t *testing.T) {
		if err := a.DeleteMenu(ctx, saved.ID, userID+1); err == nil {
			t.Error("Expected ownership error")
		}
	})
	t.Run("DeleteOwner", func(t *testing.T) {
		if err := a.DeleteMenu(ctx, saved.ID, userID); err != nil {
			t.Errorf("DeleteMenu failed: %v", err)
		}
		gone, err := a.Menus().Get(ctx, saved.ID)
		if err != nil {
			t.Fatalf("Get after delete failed: %v", err)
		}
		if gone != nil {
			t.Error("Expected menu to be gone")
		}
	})
}

func TestCostReport(t *testing.T) {
	a, userID := newTestApp(t)
	breakfastID, _ := seedRecipes(t, a, userID)
	ctx := context.Background()

	if _, err := a.SyncCatalog(ctx); err != nil {
		t.Fatalf("SyncCatalog failed: %v", err)
	}
	err := a.SetIngredientPrice(ctx, "Молоко", ingredient.Price{
		AmountRub: 90, Unit: ingredient.PriceUnitLiter, Currency: "RUB",
	})
	if err != nil {
		t.Fatalf("SetIngredientPrice failed: %v", err)
	}

	report, err := a.CostReport(ctx, breakfastID)
	if err != nil {
		t.Fatalf("CostReport failed: %v", err)
	}
	if report.Summary.TotalRub == nil {
		t.Fatal("Expected a partial total")
	}
	if report.Summary.PricedIngredients != 1 || report.Summary.TotalIngredients != 2 {
		t.Errorf("Unexpected coverage: %+v", report.Summary)
	}
	if len(report.UnpricedNames) != 1 {
		t.Fatalf("Expected 1 unpriced name, got %v", report.UnpricedNames)
	}

	t.Run("MissingRecipe", func(t *testing.T) {
		if _, err := a.CostReport(ctx, 99999); err == nil {
			t.Error("Expected an error for a missing recipe")
		}
	})
}
