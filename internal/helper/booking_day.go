package helper

import "time"

const DayLayout = "2006-01-02"

// BookingDay is the canonical "today" key in the clinic's timezone.
func BookingDay(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DayLayout)
}

// DayEnd returns local midnight at the end of day. An unparsable day yields
// the zero time, which callers treat as already expired.
func DayEnd(day string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}
	}
	return start.AddDate(0, 0, 1)
}

func ValidDay(day string) bool {
	_, err := time.Parse(DayLayout, day)
	return err == nil
}
