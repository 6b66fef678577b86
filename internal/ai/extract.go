package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mayurbijarniya/nutriai/internal/model"
)

var (
	reCalories      = regexp.MustCompile(`(?i)calories?:?\s*(\d+)`)
	reCarbs         = regexp.MustCompile(`(?i)carbohydrates?:?\s*(\d+)g`)
	reProtein       = regexp.MustCompile(`(?i)protein:?\s*(\d+)g`)
	reFat           = regexp.MustCompile(`(?i)fat:?\s*(\d+)g`)
	reCompatibility = regexp.MustCompile(`(?i)compatibility.*?(\d+)/10`)
	reHealthScore   = regexp.MustCompile(`(?i)health.*?score.*?(\d+)/10`)

	reJSONFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
)

// ExtractNutrition pulls the headline numbers out of a plain-text
// analysis. Sections the model skipped stay zero.
func ExtractNutrition(text string) model.Nutrition {
	var n model.Nutrition

	n.Calories = firstInt(reCalories, text)
	n.CarbsGrams = firstInt(reCarbs, text)
	n.ProteinGrams = firstInt(reProtein, text)
	n.FatGrams = firstInt(reFat, text)
	n.Compatibility = firstInt(reCompatibility, text)
	n.HealthScore = firstInt(reHealthScore, text)

	return n
}

func firstInt(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return v
}

// SearchResult is the structured answer for a text food lookup.
type SearchResult struct {
	MealName     string  `json:"meal_name"`
	CaloriesKcal float64 `json:"calories_kcal"`
	ProteinGrams float64 `json:"protein_g"`
	CarbsGrams   float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
	FiberGrams   float64 `json:"fiber_g"`
	SodiumMg     float64 `json:"sodium_mg"`
	Notes        string  `json:"notes"`
}

// ParseSearchResult decodes the model's JSON answer, tolerating a
// markdown code fence around it.
func ParseSearchResult(text string) (SearchResult, error) {
	var out SearchResult

	raw := strings.TrimSpace(text)
	if m := reJSONFence.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("failed to decode search result, %w", err)
	}

	if out.MealName == "" && out.CaloriesKcal == 0 && out.ProteinGrams == 0 && out.CarbsGrams == 0 && out.FatGrams == 0 {
		return out, fmt.Errorf("search result carries no nutrition data")
	}

	return out, nil
}
