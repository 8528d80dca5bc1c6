package domain

import (
	"fmt"
	"math"
	"time"
)

// ExperienceCapped is the ExperienceToNext sentinel used once leveling has
// stopped at the level ceiling or on an unrepresentable requirement.
const ExperienceCapped int64 = math.MaxInt64

// PlayerProfile is the derived, transient view of the player. It is never
// mutated in place; every recomputation publishes a new value.
type PlayerProfile struct {
	Level             int64     `json:"level"`
	CurrentExperience int64     `json:"current_experience"`
	ExperienceToNext  int64     `json:"experience_to_next"`
	Strength          int64     `json:"strength"`
	Intelligence      int64     `json:"intelligence"`
	Vitality          int64     `json:"vitality"`
	Wealth            int64     `json:"wealth"`
	ComputedAt        time.Time `json:"computed_at"`
}

// IsCapped reports whether the profile has reached the top of the level ladder.
func (p PlayerProfile) IsCapped() bool {
	return p.ExperienceToNext == ExperienceCapped
}

// LevelLabel formats the level as "Lv. N".
func (p PlayerProfile) LevelLabel() string {
	return fmt.Sprintf("Lv. %d", p.Level)
}

// ExperienceLabel formats progress within the level as "current/required XP".
func (p PlayerProfile) ExperienceLabel() string {
	if p.IsCapped() {
		return fmt.Sprintf("%d/MAX XP", p.CurrentExperience)
	}
	return fmt.Sprintf("%d/%d XP", p.CurrentExperience, p.ExperienceToNext)
}

// Progress returns CurrentExperience/ExperienceToNext clamped to [0, 1].
// A zero, NaN or infinite ratio yields 0.
func (p PlayerProfile) Progress() float64 {
	return ProgressRatio(float64(p.CurrentExperience), float64(p.ExperienceToNext))
}

// ProgressRatio divides current by required and sanitizes the result for display.
func ProgressRatio(current, required float64) float64 {
	if required == 0 || math.IsNaN(required) || math.IsInf(required, 0) {
		return 0
	}
	r := current / required
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Min(1, math.Max(0, r))
}
