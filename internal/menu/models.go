package menu

import "time"

// Menu is a saved menu owned by one user.
type Menu struct {
	ID        int64
	UserID    int64
	Title     string
	DaysCount int
	CreatedAt time.Time
	Days      []Day
}

// Day is one day of a saved menu.
type Day struct {
	ID        int64
	DayNumber int
	Meals     []Meal
}

// Meal associates a meal slot of a day with exactly one recipe.
// (day_number, meal_type) is unique within a menu.
type Meal struct {
	ID       int64
	MealType string
	RecipeID int64
}
