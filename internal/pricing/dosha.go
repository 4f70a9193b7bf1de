package pricing

import "github.com/prakamrit/storefront/internal/catalog"

// SampleTier is the packaged size used for dosha sample bundles.
const SampleTier = "250g"

const defaultDoshaRecipe = "stress"

var doshaRecipes = map[catalog.Dosha]string{
	catalog.Vata:  "stress",    // calming
	catalog.Pitta: "digestion", // cooling
	catalog.Kapha: "immunity",  // stimulating
}

// RecipeForDosha maps a dosha classification to the recipe it is routed to.
func RecipeForDosha(d catalog.Dosha) string {
	if id, ok := doshaRecipes[d]; ok {
		return id
	}
	return defaultDoshaRecipe
}
