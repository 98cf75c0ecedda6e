package business

import (
	"strings"
	"time"
)

// DaySchedule is an open/close window in local wall-clock time ("15:04").
type DaySchedule struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WeeklySchedule maps lowercase three-letter weekday keys ("mon".."sun") to
// that day's window. A missing day means closed; an empty schedule means the
// business never configured hours and is treated as always open.
type WeeklySchedule map[string]DaySchedule

const clockLayout = "15:04"

// IsOpenAt evaluates the schedule at the given instant in the business's
// timezone. The evaluation instant is an explicit parameter so the logic is
// pure and testable. Every evaluation failure (bad timezone, bad clock
// string) fails open: a broken configuration selects the friendlier open
// template rather than blocking the acknowledgment.
func IsOpenAt(schedule WeeklySchedule, timezone string, at time.Time) bool {
	if len(schedule) == 0 {
		return true
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return true
	}
	local := at.In(loc)

	day, ok := schedule[strings.ToLower(local.Format("Mon"))]
	if !ok {
		return false
	}

	open, err := time.Parse(clockLayout, day.Open)
	if err != nil {
		return true
	}
	closeAt, err := time.Parse(clockLayout, day.Close)
	if err != nil {
		return true
	}

	minutes := local.Hour()*60 + local.Minute()
	openMinutes := open.Hour()*60 + open.Minute()
	closeMinutes := closeAt.Hour()*60 + closeAt.Minute()

	return minutes >= openMinutes && minutes < closeMinutes
}

// RenderTemplate substitutes the business name placeholder into a message template.
func RenderTemplate(template, businessName string) string {
	return strings.ReplaceAll(template, "{{business_name}}", businessName)
}

// PickTemplate selects the open or closed hours template for the instant.
func PickTemplate(b Business, at time.Time) string {
	if IsOpenAt(b.WeeklySchedule, b.Timezone, at) {
		return RenderTemplate(b.OpenHoursTemplate, b.Name)
	}
	return RenderTemplate(b.ClosedHoursTemplate, b.Name)
}
