package helper

import (
	"strings"
	"time"
)

// IsQueueOpen reports whether now falls inside the clinic's opening hours.
func IsQueueOpen(jamBuka, jamTutup string, loc *time.Location, now time.Time) bool {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	// Database TIME format bisa HH:MM:SS atau HH:MM
	layout := "15:04:05"

	if strings.Count(jamBuka, ":") == 1 {
		jamBuka += ":00"
	}
	if strings.Count(jamTutup, ":") == 1 {
		jamTutup += ":00"
	}

	openTime, err := time.ParseInLocation(layout, jamBuka, loc)
	if err != nil {
		return false
	}

	closeTime, err := time.ParseInLocation(layout, jamTutup, loc)
	if err != nil {
		return false
	}

	openTime = time.Date(
		now.Year(), now.Month(), now.Day(),
		openTime.Hour(), openTime.Minute(), openTime.Second(),
		0, loc,
	)

	closeTime = time.Date(
		now.Year(), now.Month(), now.Day(),
		closeTime.Hour(), closeTime.Minute(), closeTime.Second(),
		0, loc,
	)

	// Jam tutup melewati tengah malam, contoh: buka 22:00, tutup 02:00
	if closeTime.Before(openTime) {
		if now.Before(closeTime) {
			// masih periode kemarin
			openTime = openTime.Add(-24 * time.Hour)
		} else {
			closeTime = closeTime.Add(24 * time.Hour)
		}
	}

	return !now.Before(openTime) && now.Before(closeTime)
}
