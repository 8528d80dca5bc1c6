package attribute

import (
	"math"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
)

// TotalExperience sums the experience of completed quests. The sum saturates
// at math.MaxInt64 and negative values are ignored.
func TotalExperience(quests []domain.QuestRecord) int64 {
	var total int64
	for _, q := range quests {
		if !q.Completed || q.Experience <= 0 {
			continue
		}
		total = addSaturating(total, q.Experience)
	}
	return total
}

// CompletionCounts returns the number of completed quests and the total.
func CompletionCounts(quests []domain.QuestRecord) (completed, total int64) {
	for _, q := range quests {
		total++
		if q.Completed {
			completed++
		}
	}
	return completed, total
}

// BookCounts returns how many books are finished and how many are being read.
func BookCounts(books []domain.BookRecord) (finished, reading int64) {
	for _, b := range books {
		switch b.Status {
		case domain.BookFinished:
			finished++
		case domain.BookReading:
			reading++
		}
	}
	return finished, reading
}

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// WeeklyMinutes sums the duration of sessions dated within the week
// containing now.
func WeeklyMinutes(records []domain.ExerciseRecord, now time.Time) int64 {
	start := WeekStart(now)
	end := start.AddDate(0, 0, 7)
	var total int64
	for _, r := range records {
		if r.DurationMinutes <= 0 {
			continue
		}
		if r.Date.Before(start) || !r.Date.Before(end) {
			continue
		}
		total = addSaturating(total, r.DurationMinutes)
	}
	return total
}

// NetWorth sums all asset balances in minor units, saturating at the int64
// bounds.
func NetWorth(assets []domain.AssetRecord) int64 {
	var total int64
	for _, a := range assets {
		total = addSaturating(total, a.BalanceMinor)
	}
	return total
}

func addSaturating(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	default:
		return a + b
	}
}
