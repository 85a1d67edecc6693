package meal

import "strings"

// CollectAllIngredients returns every ingredient occurrence in the plan,
// duplicates included, in a fixed order: each meal's ingredients in meal
// order, then the shared ingredients. Task creation relies on this order
// being deterministic, and on duplicates surviving (an ingredient used by
// two meals is shopped for twice).
func CollectAllIngredients(plan *Plan) []Ingredient {
	var all []Ingredient
	for _, m := range plan.Meals {
		all = append(all, m.Ingredients...)
	}
	all = append(all, plan.SharedIngredients...)
	return all
}

// UniqueIngredientNames returns the set of distinct ingredient names in the
// plan, compared case-insensitively. Used for summary display only.
func UniqueIngredientNames(plan *Plan) map[string]struct{} {
	names := make(map[string]struct{})
	for _, ing := range CollectAllIngredients(plan) {
		names[strings.ToLower(ing.Name)] = struct{}{}
	}
	return names
}

// CountTotalIngredients counts every ingredient occurrence, duplicates
// included. Always equals the sum of per-meal counts plus shared count.
func CountTotalIngredients(plan *Plan) int {
	return len(CollectAllIngredients(plan))
}
