package ai

import (
	"fmt"
	"strings"
)

// Diet describes one supported dietary goal and the guidance the model
// gets for it.
type Diet struct {
	Name  string `json:"name"`
	Rules string `json:"rules"`
	Focus string `json:"focus"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var diets = map[string]Diet{
	"keto": {
		Name:  "Ketogenic",
		Rules: "KETO RULES: <20g net carbs daily, 70-80% calories from healthy fats, moderate protein",
		Focus: "Focus on avocados, nuts, olive oil, fatty fish, low-carb vegetables",
		Icon:  "🥑",
		Color: "#FF6B35",
	},
	"vegan": {
		Name:  "Vegan",
		Rules: "VEGAN RULES: No animal products (meat, dairy, eggs, honey)",
		Focus: "Focus on legumes, nuts, seeds, whole grains, fruits, vegetables",
		Icon:  "🌱",
		Color: "#4CAF50",
	},
	"paleo": {
		Name:  "Paleo",
		Rules: "PALEO RULES: No processed foods, grains, legumes, dairy, refined sugar",
		Focus: "Focus on grass-fed meats, wild fish, eggs, vegetables, fruits, nuts",
		Icon:  "🥩",
		Color: "#D84315",
	},
	"mediterranean": {
		Name:  "Mediterranean",
		Rules: "MEDITERRANEAN: High in olive oil, fish, vegetables, whole grains, moderate wine",
		Focus: "Focus on olive oil, fish, vegetables, legumes, whole grains, herbs",
		Icon:  "🫒",
		Color: "#1976D2",
	},
	"low-carb": {
		Name:  "Low Carb",
		Rules: "LOW-CARB: <100g carbs daily, emphasis on protein and healthy fats",
		Focus: "Focus on lean proteins, healthy fats, non-starchy vegetables",
		Icon:  "⚖️",
		Color: "#9C27B0",
	},
}

var defaultDiet = Diet{
	Name:  "Healthy",
	Rules: "HEALTHY EATING: Balanced nutrition, whole foods",
	Focus: "Focus on nutrient-dense whole foods",
	Icon:  "🍎",
	Color: "#607D8B",
}

// DietFor returns the preset for a dietary goal, falling back to a
// balanced default for goals we don't know.
func DietFor(goal string) Diet {
	if d, ok := diets[goal]; ok {
		return d
	}
	return defaultDiet
}

// KnownDiet reports whether goal maps to one of the named presets.
func KnownDiet(goal string) bool {
	_, ok := diets[goal]
	return ok
}

// AnalysisPrompt builds the vision prompt for a meal photo. The model is
// told to answer in plain text with fixed section headers so the
// nutrition extractor can pull numbers back out.
func AnalysisPrompt(goal, preferences string) string {
	diet := DietFor(goal)

	advice := "General recommendations for optimal nutrition"
	if preferences != "" {
		advice = "Based on your preferences: " + preferences
	}

	return fmt.Sprintf(`COMPREHENSIVE MEAL ANALYSIS FOR %s DIET %s

Please analyze this meal image and provide a detailed, well-structured analysis using clean text formatting (NO MARKDOWN SYMBOLS like ** or *):

MEAL IDENTIFICATION:
List all visible food items with estimated portions and cooking methods.

NUTRITIONAL ESTIMATION:
Provide estimates for:
• Total Calories: [number] kcal
• Carbohydrates: [number]g (including fiber)
• Protein: [number]g
• Fat: [number]g
• Key vitamins/minerals present
• Sodium level: [Low/Medium/High]

DIET COMPATIBILITY SCORE: [X]/10
%s

POSITIVE ASPECTS:
• What makes this meal good for %s diet
• Health benefits identified
• Nutritionally strong points

AREAS FOR IMPROVEMENT:
• What doesn't align with %s diet
• Specific concerns or issues
• Missing nutrients

PERSONALIZED RECOMMENDATIONS:
%s
1. Ingredient Modifications: Specific swaps to make
2. Portion Adjustments: What to increase/decrease
3. Preparation Changes: Better cooking methods
4. Additions: What to add to make it more %s-friendly

OVERALL HEALTH SCORE: [X]/10
Explanation of why this score was given.

PERSONALIZED ADVICE:
%s

SUMMARY:
One paragraph summary of the meal's suitability for %s diet and key takeaways.

Please be specific with numbers, practical with suggestions, and format the response clearly with the section headers shown above. Use NO markdown symbols like asterisks or underscores.`,
		strings.ToUpper(diet.Name), diet.Icon, diet.Rules, goal, goal, diet.Focus, goal, advice, goal)
}

// SearchPrompt builds the text-only prompt for a food lookup. The model
// must answer with bare JSON so the result can be decoded directly.
func SearchPrompt(query, goal string) string {
	ctx := ""
	if goal != "" {
		ctx = "\nDiet context: " + goal
	}

	return fmt.Sprintf(`You are a nutrition parser.
Return ONLY valid JSON with keys:
meal_name, calories_kcal, protein_g, carbs_g, fat_g, fiber_g, sodium_mg, notes.

Constraints:
- Numeric fields are numbers.
- notes is one short sentence.%s

Meal text: %s`, ctx, query)
}
