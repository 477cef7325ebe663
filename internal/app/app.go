package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/Tomich37/foodplanner/internal/config"
	"github.com/Tomich37/foodplanner/internal/costing"
	"github.com/Tomich37/foodplanner/internal/database"
	"github.com/Tomich37/foodplanner/internal/importer"
	"github.com/Tomich37/foodplanner/internal/ingredient"
	"github.com/Tomich37/foodplanner/internal/menu"
	"github.com/Tomich37/foodplanner/internal/recipe"
	"github.com/Tomich37/foodplanner/internal/units"
)

// App holds the application's dependencies.
type App struct {
	cfg *config.Config
	db  *database.DB

	conv         *units.Converter
	recipeRepo   *recipe.Repository
	menuRepo     *menu.Repository
	catalogStore *ingredient.SQLStore
	catalog      *ingredient.Catalog
	planner      *menu.Planner
	costing      *costing.Engine
	importer     *importer.Importer
}

// NewApp creates and initializes a new App instance over an open database.
func NewApp(cfg *config.Config, db *database.DB) *App {
	conv := units.NewConverter()
	store := ingredient.NewSQLStore(db.SQL)
	return &App{
		cfg:          cfg,
		db:           db,
		conv:         conv,
		recipeRepo:   recipe.NewRepository(db.SQL),
		menuRepo:     menu.NewRepository(db.SQL),
		catalogStore: store,
		catalog:      ingredient.NewCatalog(store),
		planner:      menu.NewPlanner(conv),
		costing:      costing.NewEngine(conv),
		importer:     importer.New(conv),
	}
}

// Recipes exposes the recipe repository for callers that render lists.
func (a *App) Recipes() *recipe.Repository { return a.recipeRepo }

// Menus exposes the menu repository.
func (a *App) Menus() *menu.Repository { return a.menuRepo }

// EnsureUser finds-or-creates a user row by email and returns its id. Full
// auth lives outside this service; recipes and menus still need an owner.
func (a *App) EnsureUser(ctx context.Context, email, fullName string) (int64, error) {
	var id int64
	err := a.db.SQL.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up user %q: %w", email, err)
	}
	res, err := a.db.SQL.ExecContext(ctx,
		`INSERT INTO users (email, full_name) VALUES (?, ?)`, email, fullName)
	if err != nil {
		return 0, fmt.Errorf("failed to create user %q: %w", email, err)
	}
	return res.LastInsertId()
}

// SyncCatalog feeds every distinct ingredient name observed in recipes into
// the canonicalization catalog. Safe to run on every startup; concurrent
// syncs serialize on the store's uniqueness constraints.
func (a *App) SyncCatalog(ctx context.Context) (ingredient.SyncStats, error) {
	names, err := a.recipeRepo.DistinctIngredientNames(ctx)
	if err != nil {
		return ingredient.SyncStats{}, fmt.Errorf("failed to list ingredient names: %w", err)
	}
	stats, err := a.catalog.Sync(ctx, names)
	if err != nil {
		return stats, fmt.Errorf("failed to sync ingredient catalog: %w", err)
	}
	log.Printf("Catalog sync: %d canonicals, %d aliases created from %d names",
		stats.CreatedCanonicals, stats.CreatedAliases, len(names))
	return stats, nil
}

// BuildMenuRequest describes one plan-building pass.
type BuildMenuRequest struct {
	Days            int
	MenuID          int64 // reopen this saved menu when non-zero
	SelectionTokens []string
	Tags            []string
	Search          string
}

// BuildMenuResult is what the presentation layer renders.
type BuildMenuResult struct {
	Plan            []menu.PlanDay
	ShoppingList    []menu.ShoppingItem
	SelectionTokens []string
	RecipeCosts     map[int64]costing.RecipeCostSummary
	MenuCost        costing.MenuCostSummary
	Pool            []recipe.Recipe
}

// BuildMenu resolves a day-by-day plan with shopping list and cost
// summaries. Selections from a reopened saved menu are overlaid by the
// request's own selections, then every still-open slot is filled randomly.
func (a *App) BuildMenu(ctx context.Context, req BuildMenuRequest) (*BuildMenuResult, error) {
	pool, err := a.recipeRepo.List(ctx, recipe.ListFilter{Tags: req.Tags, Search: req.Search})
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe pool: %w", err)
	}

	recipeIDs := make(map[int64]struct{}, len(pool))
	for _, rec := range pool {
		recipeIDs[rec.ID] = struct{}{}
	}

	selection := a.planner.ParseSelection(req.SelectionTokens, recipeIDs)
	if req.MenuID != 0 {
		saved, err := a.menuRepo.Get(ctx, req.MenuID)
		if err != nil {
			return nil, fmt.Errorf("failed to load saved menu %d: %w", req.MenuID, err)
		}
		selection = menu.Merge(menu.SelectionFromMenu(saved), selection)
	}

	days := req.Days
	if days < 1 {
		days = a.cfg.PlanDays
	}

	built := a.planner.Build(pool, a.planner.SplitByMeal(pool), days, selection)

	lookup, err := a.costing.BuildPriceLookup(ctx, a.catalogStore)
	if err != nil {
		return nil, fmt.Errorf("failed to build price lookup: %w", err)
	}
	recipeCosts := a.costing.BuildRecipeCostMap(pool, lookup)

	return &BuildMenuResult{
		Plan:            built.Plan,
		ShoppingList:    built.ShoppingList,
		SelectionTokens: menu.EncodeSelection(built.Selection),
		RecipeCosts:     recipeCosts,
		MenuCost:        costing.CalculateMenuCost(built.Plan, recipeCosts),
		Pool:            pool,
	}, nil
}

// SaveMenu persists a fully resolved plan as a menu graph. When menuID is
// non-zero the existing menu is replaced in place (ownership checked).
func (a *App) SaveMenu(ctx context.Context, menuID, userID int64, title string, days int, selectionTokens []string) (*menu.Menu, error) {
	result, err := a.BuildMenu(ctx, BuildMenuRequest{Days: days, SelectionTokens: selectionTokens})
	if err != nil {
		return nil, err
	}

	m := &menu.Menu{
		ID:        menuID,
		UserID:    userID,
		Title:     title,
		DaysCount: days,
	}
	for _, planDay := range result.Plan {
		day := menu.Day{DayNumber: planDay.Day}
		for _, meal := range planDay.Meals {
			day.Meals = append(day.Meals, menu.Meal{
				MealType: meal.MealKey,
				RecipeID: meal.Recipe.ID,
			})
		}
		m.Days = append(m.Days, day)
	}

	if menuID != 0 {
		existing, err := a.menuRepo.Get(ctx, menuID)
		if err != nil {
			return nil, fmt.Errorf("failed to load menu %d: %w", menuID, err)
		}
		if existing == nil || existing.UserID != userID {
			return nil, fmt.Errorf("menu %d does not belong to user %d", menuID, userID)
		}
	}
	if err := a.menuRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save menu: %w", err)
	}
	return m, nil
}

// DeleteMenu removes a saved menu after an ownership check.
func (a *App) DeleteMenu(ctx context.Context, menuID, userID int64) error {
	existing, err := a.menuRepo.Get(ctx, menuID)
	if err != nil {
		return fmt.Errorf("failed to load menu %d: %w", menuID, err)
	}
	if existing == nil {
		return nil
	}
	if existing.UserID != userID {
		return fmt.Errorf("menu %d does not belong to user %d", menuID, userID)
	}
	return a.menuRepo.Delete(ctx, menuID)
}

// ImportRecipe pulls a recipe from an external page and saves it for the
// user with the given tags.
func (a *App) ImportRecipe(ctx context.Context, url string, userID int64, tags []string) (*recipe.Recipe, error) {
	rec, err := a.importer.ImportURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to import recipe: %w", err)
	}
	rec.UserID = userID
	rec.Tags = recipe.NormalizeTags(tags)
	if err := a.recipeRepo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save imported recipe: %w", err)
	}
	log.Printf("Imported '%s' (%d ingredients, %d steps) from %s",
		rec.Title, len(rec.Ingredients), len(rec.Steps), url)
	return rec, nil
}

// SetIngredientPrice finds-or-creates the canonical for a raw ingredient
// name and records a curated reference price on it.
func (a *App) SetIngredientPrice(ctx context.Context, rawName string, price ingredient.Price) error {
	canonical, err := a.catalog.GetOrCreateCanonical(ctx, rawName, rawName)
	if err != nil {
		return fmt.Errorf("failed to resolve canonical for %q: %w", rawName, err)
	}
	if canonical == nil {
		return fmt.Errorf("name %q normalizes to nothing", rawName)
	}
	if err := a.catalogStore.SetPrice(ctx, canonical.ID, price); err != nil {
		return err
	}
	log.Printf("Price for '%s' set to %.2f RUB per %s", canonical.Name, price.AmountRub, price.Unit)
	return nil
}

// RecipeCostReport prices a single recipe. UnpricedNames lists the
// catalog-facing display names of ingredients the lookup could not price.
type RecipeCostReport struct {
	Recipe        *recipe.Recipe
	Summary       costing.RecipeCostSummary
	UnpricedNames []string
}

// CostReport prices one recipe against the current catalog.
func (a *App) CostReport(ctx context.Context, recipeID int64) (*RecipeCostReport, error) {
	rec, err := a.recipeRepo.Get(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %d: %w", recipeID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("recipe %d not found", recipeID)
	}

	lookup, err := a.costing.BuildPriceLookup(ctx, a.catalogStore)
	if err != nil {
		return nil, fmt.Errorf("failed to build price lookup: %w", err)
	}
	summary := a.costing.CalculateRecipeCost(*rec, lookup)

	report := &RecipeCostReport{Recipe: rec, Summary: summary}
	if !summary.IsComplete {
		aliasMap, err := a.catalog.AliasNameMap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load alias map: %w", err)
		}
		seen := make(map[string]struct{})
		for _, ing := range rec.Ingredients {
			normalized := ingredient.NormalizeName(ing.Name)
			if normalized == "" {
				continue
			}
			if _, priced := lookup[normalized]; priced {
				continue
			}
			display := ingredient.CanonicalNameFor(ing.Name, aliasMap)
			if _, dup := seen[display]; dup {
				continue
			}
			seen[display] = struct{}{}
			report.UnpricedNames = append(report.UnpricedNames, display)
		}
	}
	return report, nil
}
