package service

import (
	"math"
	"time"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
)

// Late policy boundaries in hours.
const (
	flatPenaltyHours  = 24
	fullGradeCutHours = 72
)

// PenaltyFor maps hours past the deadline to a deduction.
// Early or on-time work costs nothing, each started hour of the first day costs one point,
// the next two days cost a flat 24, and anything later (or NaN) is a full grade cut.
func PenaltyFor(hoursLate float64) models.Penalty {
	switch {
	case hoursLate <= 0:
		return models.Penalty{Points: 0}
	case hoursLate < flatPenaltyHours:
		return models.Penalty{Points: int(math.Ceil(hoursLate))}
	case hoursLate < fullGradeCutHours:
		return models.Penalty{Points: flatPenaltyHours}
	default:
		return models.Penalty{FullGradeCut: true}
	}
}

// HoursLate returns pushed minus due in fractional hours.
func HoursLate(pushed, due time.Time) float64 {
	return pushed.Sub(due).Hours()
}
