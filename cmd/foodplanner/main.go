package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Tomich37/foodplanner/internal/app"
	"github.com/Tomich37/foodplanner/internal/config"
	"github.com/Tomich37/foodplanner/internal/costing"
	"github.com/Tomich37/foodplanner/internal/database"
	"github.com/Tomich37/foodplanner/internal/ingredient"
	"github.com/Tomich37/foodplanner/internal/recipe"
)

const localUserEmail = "local@foodplanner"

func main() {
	ctx := context.Background()

	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	application := app.NewApp(cfg, db)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync-catalog":
		stats, err := application.SyncCatalog(ctx)
		if err != nil {
			log.Fatalf("Catalog sync failed: %v", err)
		}
		fmt.Printf("Created %d canonical ingredients and %d aliases.\n",
			stats.CreatedCanonicals, stats.CreatedAliases)

	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		days := planCmd.Int("days", cfg.PlanDays, "Number of days to plan")
		tags := planCmd.String("tags", "", "Comma-separated recipe tags to pick from")
		search := planCmd.String("search", "", "Only use recipes matching this text")
		planCmd.Parse(os.Args[2:])

		result, err := application.BuildMenu(ctx, app.BuildMenuRequest{
			Days:   *days,
			Tags:   splitList(*tags),
			Search: *search,
		})
		if err != nil {
			log.Fatalf("Failed to build menu: %v", err)
		}
		if len(result.Pool) == 0 {
			fmt.Println("No recipes available. Import some first.")
			os.Exit(1)
		}
		printPlan(result)

	case "import":
		importCmd := flag.NewFlagSet("import", flag.ExitOnError)
		tags := importCmd.String("tags", "", "Comma-separated tags for the imported recipe")
		importCmd.Parse(os.Args[2:])
		if importCmd.NArg() < 1 {
			log.Fatal("Usage: foodplanner import [-tags breakfast,lunch] <url>")
		}

		userID, err := application.EnsureUser(ctx, localUserEmail, "Local User")
		if err != nil {
			log.Fatalf("Failed to resolve local user: %v", err)
		}
		rec, err := application.ImportRecipe(ctx, importCmd.Arg(0), userID, splitList(*tags))
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		fmt.Printf("Imported '%s' (id %d): %d ingredients, %d steps.\n",
			rec.Title, rec.ID, len(rec.Ingredients), len(rec.Steps))
		if _, err := application.SyncCatalog(ctx); err != nil {
			log.Printf("Warning: catalog sync after import failed: %v", err)
		}

	case "set-price":
		if len(os.Args) < 5 {
			log.Fatal("Usage: foodplanner set-price <name> <amount_rub> <kg|l|pcs>")
		}
		amount, err := strconv.ParseFloat(os.Args[3], 64)
		if err != nil || amount <= 0 {
			log.Fatalf("Invalid price amount: %s", os.Args[3])
		}
		unit := os.Args[4]
		if unit != ingredient.PriceUnitKilogram && unit != ingredient.PriceUnitLiter && unit != ingredient.PriceUnitPiece {
			log.Fatalf("Price unit must be kg, l or pcs, got %q", unit)
		}
		err = application.SetIngredientPrice(ctx, os.Args[2], ingredient.Price{
			AmountRub: amount,
			Unit:      unit,
			Currency:  "RUB",
			Source:    "manual",
		})
		if err != nil {
			log.Fatalf("Failed to set price: %v", err)
		}

	case "cost":
		if len(os.Args) < 3 {
			log.Fatal("Usage: foodplanner cost <recipe-id>")
		}
		recipeID, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Invalid recipe id: %s", os.Args[2])
		}
		report, err := application.CostReport(ctx, recipeID)
		if err != nil {
			log.Fatalf("Failed to build cost report: %v", err)
		}
		printCostReport(report)

	case "recipes":
		list, err := application.Recipes().List(ctx, recipe.ListFilter{})
		if err != nil {
			log.Fatalf("Failed to list recipes: %v", err)
		}
		for _, rec := range list {
			fmt.Printf("%4d  %-40s %s\n", rec.ID, rec.Title, strings.Join(rec.Tags, ","))
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printPlan(result *app.BuildMenuResult) {
	fmt.Println("\n=== MENU ===")
	for _, day := range result.Plan {
		fmt.Printf("День %d\n", day.Day)
		for _, meal := range day.Meals {
			line := fmt.Sprintf("  %-8s %s", meal.MealLabel, meal.Recipe.Title)
			if cost, ok := result.RecipeCosts[meal.Recipe.ID]; ok && cost.TotalRub != nil {
				line += fmt.Sprintf("  (%s)", costing.FormatRub(cost.TotalRub))
			}
			fmt.Println(line)
		}
	}

	fmt.Println("\n=== SHOPPING LIST ===")
	for _, item := range result.ShoppingList {
		fmt.Printf("- %s: %s\n", item.Name, item.Display)
	}

	fmt.Printf("\nИтого: %s", costing.FormatRub(result.MenuCost.TotalRub))
	if !result.MenuCost.IsComplete {
		fmt.Printf(" (оценено %d из %d блюд)", result.MenuCost.MealsWithPrice, result.MenuCost.TotalMeals)
	}
	fmt.Println()
}

func printCostReport(report *app.RecipeCostReport) {
	fmt.Printf("%s: %s\n", report.Recipe.Title, costing.FormatRub(report.Summary.TotalRub))
	fmt.Printf("Priced %d of %d ingredients.\n",
		report.Summary.PricedIngredients, report.Summary.TotalIngredients)
	if len(report.UnpricedNames) > 0 {
		fmt.Println("No price for:")
		for _, name := range report.UnpricedNames {
			fmt.Printf("  - %s\n", name)
		}
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func printUsage() {
	fmt.Println("Usage: foodplanner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  sync-catalog       Canonicalize ingredient names observed in recipes")
	fmt.Println("  plan               Build a menu with shopping list and cost estimate")
	fmt.Println("  import <url>       Import a recipe from a web page")
	fmt.Println("  set-price          Set a reference price for an ingredient")
	fmt.Println("  cost <recipe-id>   Price a single recipe")
	fmt.Println("  recipes            List saved recipes")
}
