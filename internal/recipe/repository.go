package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// Repository is the SQLite-backed store for recipes with their steps and
// ingredients materialized.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List results. Tags requires membership of every listed
// tag; Search matches title or description case-insensitively.
type ListFilter struct {
	Tags   []string
	Search string
}

// Save inserts a new recipe or updates an existing one. Steps and
// ingredients are replaced wholesale inside one transaction, mirroring the
// cascade-delete ownership of the recipe.
func (r *Repository) Save(ctx context.Context, rec *Recipe) error {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if rec.ID == 0 {
		rec.CreatedAt = time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (user_id, title, description, image_path, tags, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.UserID, rec.Title, rec.Description, rec.ImagePath, string(tagsJSON), rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recipe: %w", err)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read recipe id: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx,
			`UPDATE recipes SET title = ?, description = ?, image_path = ?, tags = ? WHERE id = ?`,
			rec.Title, rec.Description, rec.ImagePath, string(tagsJSON), rec.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_steps WHERE recipe_id = ?`, rec.ID); err != nil {
			return fmt.Errorf("failed to clear steps: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, rec.ID); err != nil {
			return fmt.Errorf("failed to clear ingredients: %w", err)
		}
	}

	for i := range rec.Steps {
		step := &rec.Steps[i]
		if step.Position == 0 {
			step.Position = i + 1
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_steps (recipe_id, position, instruction, image_path) VALUES (?, ?, ?, ?)`,
			rec.ID, step.Position, step.Instruction, step.ImagePath,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.Position, err)
		}
		step.ID, _ = res.LastInsertId()
	}

	for i := range rec.Ingredients {
		ing := &rec.Ingredients[i]
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, name, amount, unit) VALUES (?, ?, ?, ?)`,
			rec.ID, ing.Name, ing.Amount, ing.Unit,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ingredient %q: %w", ing.Name, err)
		}
		ing.ID, _ = res.LastInsertId()
	}

	return tx.Commit()
}

// Get retrieves one recipe with steps and ingredients, or nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, image_path, tags, created_at FROM recipes WHERE id = ?`, id)
	rec, err := scanRecipe(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	recipes := []Recipe{*rec}
	if err := r.attachChildren(ctx, recipes); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

// List returns recipes newest first, filtered in Go by text search and tag
// membership. Search folding happens here rather than in SQL because
// SQLite's lower() only folds ASCII and titles are mostly Cyrillic.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, image_path, tags, created_at FROM recipes
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		if !matchesSearch(*rec, search) {
			continue
		}
		if !hasAllTags(*rec, filter.Tags) {
			continue
		}
		recipes = append(recipes, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachChildren(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Delete removes a recipe; steps and ingredients cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}

// DistinctIngredientNames returns every distinct ingredient name observed
// across all recipes, feeding the catalog sync.
func (r *Repository) DistinctIngredientNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT name FROM recipe_ingredients WHERE name != '' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredient names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanRecipe(row interface{ Scan(...any) error }) (*Recipe, error) {
	var rec Recipe
	var description, imagePath sql.NullString
	var tagsJSON string
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Title, &description, &imagePath, &tagsJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Description = description.String
	rec.ImagePath = imagePath.String
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			log.Printf("Warning: failed to unmarshal tags for recipe %d: %v", rec.ID, err)
		}
	}
	return &rec, nil
}

func matchesSearch(rec Recipe, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.Title), search) ||
		strings.Contains(strings.ToLower(rec.Description), search)
}

func hasAllTags(rec Recipe, tags []string) bool {
	for _, tag := range tags {
		if !rec.HasTag(tag) {
			return false
		}
	}
	return true
}

// attachChildren loads steps and ingredients for the given recipes in two
// queries and distributes them by recipe id.
func (r *Repository) attachChildren(ctx context.Context, recipes []Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	index := make(map[int64]*Recipe, len(recipes))
	ids := make([]any, 0, len(recipes))
	marks := make([]string, 0, len(recipes))
	for i := range recipes {
		index[recipes[i].ID] = &recipes[i]
		ids = append(ids, recipes[i].ID)
		marks = append(marks, "?")
	}
	in := strings.Join(marks, ", ")

	stepRows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, position, instruction, image_path FROM recipe_steps
		 WHERE recipe_id IN (`+in+`) ORDER BY recipe_id, position`, ids...)
	if err != nil {
		return fmt.Errorf("failed to query steps: %w", err)
	}
	defer stepRows.Close()
	for stepRows.Next() {
		var step Step
		var recipeID int64
		var imagePath sql.NullString
		if err := stepRows.Scan(&step.ID, &recipeID, &step.Position, &step.Instruction, &imagePath); err != nil {
			return fmt.Errorf("failed to scan step: %w", err)
		}
		step.ImagePath = imagePath.String
		if rec, ok := index[recipeID]; ok {
			rec.Steps = append(rec.Steps, step)
		}
	}
	if err := stepRows.Err(); err != nil {
		return err
	}

	ingRows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, name, amount, unit FROM recipe_ingredients
		 WHERE recipe_id IN (`+in+`) ORDER BY recipe_id, id`, ids...)
	if err != nil {
		return fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer ingRows.Close()
	for ingRows.Next() {
		var ing Ingredient
		var recipeID int64
		if err := ingRows.Scan(&ing.ID, &recipeID, &ing.Name, &ing.Amount, &ing.Unit); err != nil {
			return fmt.Errorf("failed to scan ingredient: %w", err)
		}
		if rec, ok := index[recipeID]; ok {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	return ingRows.Err()
}
