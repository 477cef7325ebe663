package menu

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository is the SQLite-backed store for saved menus and their day/meal
// graph.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save creates a menu or updates an existing one. On update the whole
// day/meal graph is replaced in one transaction so the stored menu always
// matches the plan it was saved from.
func (r *Repository) Save(ctx context.Context, m *Menu) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if m.ID == 0 {
		m.CreatedAt = time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO menus (user_id, title, days_count, created_at) VALUES (?, ?, ?, ?)`,
			m.UserID, m.Title, m.DaysCount, m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert menu: %w", err)
		}
		m.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read menu id: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx,
			`UPDATE menus SET title = ?, days_count = ? WHERE id = ?`,
			m.Title, m.DaysCount, m.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update menu: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM menu_meals WHERE day_id IN (SELECT id FROM menu_days WHERE menu_id = ?)`, m.ID); err != nil {
			return fmt.Errorf("failed to clear menu meals: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM menu_days WHERE menu_id = ?`, m.ID); err != nil {
			return fmt.Errorf("failed to clear menu days: %w", err)
		}
	}

	for i := range m.Days {
		day := &m.Days[i]
		res, err := tx.ExecContext(ctx,
			`INSERT INTO menu_days (menu_id, day_number) VALUES (?, ?)`,
			m.ID, day.DayNumber,
		)
		if err != nil {
			return fmt.Errorf("failed to insert menu day %d: %w", day.DayNumber, err)
		}
		day.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read menu day id: %w", err)
		}
		for j := range day.Meals {
			meal := &day.Meals[j]
			mealRes, err := tx.ExecContext(ctx,
				`INSERT INTO menu_meals (day_id, meal_type, recipe_id) VALUES (?, ?, ?)`,
				day.ID, meal.MealType, meal.RecipeID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert meal %s of day %d: %w", meal.MealType, day.DayNumber, err)
			}
			meal.ID, _ = mealRes.LastInsertId()
		}
	}

	return tx.Commit()
}

// Get retrieves a menu with its full day/meal graph, or nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Menu, error) {
	var m Menu
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, days_count, created_at FROM menus WHERE id = ?`, id,
	).Scan(&m.ID, &m.UserID, &m.Title, &m.DaysCount, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}

	dayRows, err := r.db.QueryContext(ctx,
		`SELECT id, day_number FROM menu_days WHERE menu_id = ? ORDER BY day_number`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu days: %w", err)
	}
	defer dayRows.Close()

	dayIndex := make(map[int64]int)
	for dayRows.Next() {
		var day Day
		if err := dayRows.Scan(&day.ID, &day.DayNumber); err != nil {
			return nil, fmt.Errorf("failed to scan menu day: %w", err)
		}
		dayIndex[day.ID] = len(m.Days)
		m.Days = append(m.Days, day)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}

	mealRows, err := r.db.QueryContext(ctx,
		`SELECT mm.id, mm.day_id, mm.meal_type, mm.recipe_id
		 FROM menu_meals mm
		 JOIN menu_days md ON md.id = mm.day_id
		 WHERE md.menu_id = ? ORDER BY mm.id`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu meals: %w", err)
	}
	defer mealRows.Close()

	for mealRows.Next() {
		var meal Meal
		var dayID int64
		if err := mealRows.Scan(&meal.ID, &dayID, &meal.MealType, &meal.RecipeID); err != nil {
			return nil, fmt.Errorf("failed to scan menu meal: %w", err)
		}
		if idx, ok := dayIndex[dayID]; ok {
			m.Days[idx].Meals = append(m.Days[idx].Meals, meal)
		}
	}
	if err := mealRows.Err(); err != nil {
		return nil, err
	}

	return &m, nil
}

// ListByUser returns a user's saved menus newest first, without the day
// graph.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Menu, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, days_count, created_at FROM menus
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		var m Menu
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.DaysCount, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu: %w", err)
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

// Delete removes a menu; days and meals cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM menus WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete menu: %w", err)
	}
	return nil
}
