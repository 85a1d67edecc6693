package meal

// Preferences holds structured dietary preferences parsed from natural language.
// Immutable once parsed; a flow recomputes them only when it restarts from scratch.
type Preferences struct {
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Cuisines            []string `json:"cuisines"`
	AvoidIngredients    []string `json:"avoid_ingredients"`
	ProteinPreferences  []string `json:"protein_preferences"`
	CookingStyles       []string `json:"cooking_styles"`
	MaxCookTimeMinutes  int      `json:"max_cook_time_minutes"`
	Serves              int      `json:"serves"`
	SpecialNotes        string   `json:"special_notes"`
}

// Ingredient is a single ingredient with quantity and shopping notes.
// Name is the case-insensitive identity used for dedup display.
type Ingredient struct {
	Name          string `json:"name"`
	Quantity      string `json:"quantity"`
	Unit          string `json:"unit"`
	ShoppingNotes string `json:"shopping_notes,omitempty"`
}

// InstructionStep is a single numbered cooking instruction.
type InstructionStep struct {
	Step int    `json:"step"`
	Text string `json:"text"`
}

// Meal is a single meal with ingredients and instructions.
// Never mutated after generation; regeneration produces a new Meal.
type Meal struct {
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	Serves              int               `json:"serves"`
	ActiveTimeMinutes   int               `json:"active_time_minutes"`
	InactiveTimeMinutes int               `json:"inactive_time_minutes"`
	Ingredients         []Ingredient      `json:"ingredients"`
	Instructions        []InstructionStep `json:"instructions"`
}

// Plan is a complete meal plan: exactly two meals plus the ingredients shared
// across them, computed at generation time and never re-derived afterwards.
// A regeneration supersedes the whole Plan; there is no merging.
type Plan struct {
	Meals             []Meal       `json:"meals"`
	SharedIngredients []Ingredient `json:"shared_ingredients"`
}

// PlanMeals is the number of meals every generated plan must contain.
const PlanMeals = 2
