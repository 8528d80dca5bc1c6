// Package attribute derives the four secondary player attributes from record
// source readings. Every function is pure and returns 0 for empty input.
package attribute

import "github.com/attaboy/lifestats/internal/domain"

const (
	minutesPerStrength = 10

	finishedBookPoints = 5
	readingBookPoints  = 2

	// DefaultMinorPerMajor is the minor-unit scale of most currencies (100 cents).
	DefaultMinorPerMajor = 100
	majorUnitsPerWealth  = 1000
)

// Strength is one point per ten minutes of exercise this week, floored.
func Strength(weeklyMinutes int64) int64 {
	if weeklyMinutes <= 0 {
		return 0
	}
	return weeklyMinutes / minutesPerStrength
}

// Intelligence scores finished books at 5 and books in progress at 2.
// Wishlist entries score nothing.
func Intelligence(books []domain.BookRecord) int64 {
	finished, reading := BookCounts(books)
	return finishedBookPoints*finished + readingBookPoints*reading
}

// Vitality is the quest completion percentage, rounded half up. No quests
// means 0.
func Vitality(quests []domain.QuestRecord) int64 {
	completed, total := CompletionCounts(quests)
	return Percent(completed, total)
}

// Percent returns round(100 * part / whole) in integer arithmetic, or 0 when
// whole is not positive.
func Percent(part, whole int64) int64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}

// Wealth is one point per 1000 major currency units of net worth for a
// currency with 100 minor units per major unit. It truncates toward zero and
// goes negative with negative net worth.
func Wealth(netWorthMinor int64) int64 {
	return WealthScaled(netWorthMinor, DefaultMinorPerMajor)
}

// WealthScaled is Wealth for currencies with a different minor-unit scale.
// A non-positive scale falls back to DefaultMinorPerMajor.
func WealthScaled(netWorthMinor, minorPerMajor int64) int64 {
	if minorPerMajor <= 0 {
		minorPerMajor = DefaultMinorPerMajor
	}
	return netWorthMinor / (minorPerMajor * majorUnitsPerWealth)
}
