package models

// Ingredient is one recognized food item from a captured frame.
type Ingredient struct {
	Name string `json:"name"`
	Info string `json:"info"`

	// Nutrition is optional in the service schema and defaults to empty.
	Nutrition string `json:"nutrition,omitempty"`

	CaloriesPer100g int `json:"caloriesPer100g"`
}

// Recipe is one suggestion built from the recognized ingredients.
type Recipe struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Difficulty is a display label in the user locale (e.g. "简单"),
	// not a normalized enum.
	Difficulty string `json:"difficulty"`

	PrepTime       string   `json:"prepTime"`
	AllIngredients []string `json:"allIngredients"`
	Instructions   []string `json:"instructions"`
}

// AnalysisResult is the validated output of one analysis run. Ingredient and
// recipe order is exactly the order the service returned; nothing is
// deduplicated or re-sorted after validation.
type AnalysisResult struct {
	Ingredients []Ingredient `json:"ingredients"`
	Recipes     []Recipe     `json:"recipes"`
}
