package model

// Analysis holds one finished meal analysis. Rows are owned either by a
// signed-in user (UserID set) or by a guest session (GuestID set), never both.
type Analysis struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index" json:"-"`
	GuestID     string    `gorm:"index" json:"-"`
	DietGoal    string    `json:"diet_goal"`
	Preferences string    `json:"preferences,omitempty"`
	Analysis    string    `json:"analysis"` // Raw AI response text
	Nutrition   Nutrition `gorm:"embedded;embeddedPrefix:nutrition_" json:"nutrition"`
	ImageKey    string    `json:"-"` // Empty when image storage is disabled
	CreatedAt   int64     `gorm:"not null;index" json:"created_at"`
}

// Nutrition carries the numbers pulled out of the analysis text for
// display cards. Zero values mean the field wasn't found in the text.
type Nutrition struct {
	Calories      int `json:"calories"`
	CarbsGrams    int `json:"carbs_g"`
	ProteinGrams  int `json:"protein_g"`
	FatGrams      int `json:"fat_g"`
	Compatibility int `json:"compatibility_score"`
	HealthScore   int `json:"health_score"`
}
