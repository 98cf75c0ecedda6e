package business

import (
	"testing"
	"time"
)

var weekdaySchedule = WeeklySchedule{
	"mon": {Open: "09:00", Close: "17:00"},
	"tue": {Open: "09:00", Close: "17:00"},
	"wed": {Open: "09:00", Close: "17:00"},
	"thu": {Open: "09:00", Close: "17:00"},
	"fri": {Open: "09:00", Close: "15:00"},
}

// 2026-03-02 is a Monday.
func mondayAt(hour, minute int, loc *time.Location) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, loc)
}

func TestIsOpenAtDuringBusinessHours(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	if !IsOpenAt(weekdaySchedule, "America/New_York", mondayAt(10, 30, ny)) {
		t.Fatal("expected open Monday 10:30 local")
	}
}

func TestIsOpenAtBeforeOpening(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	if IsOpenAt(weekdaySchedule, "America/New_York", mondayAt(8, 59, ny)) {
		t.Fatal("expected closed Monday 08:59 local")
	}
}

func TestIsOpenAtClosingBoundaryIsClosed(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	if IsOpenAt(weekdaySchedule, "America/New_York", mondayAt(17, 0, ny)) {
		t.Fatal("expected closed exactly at the close boundary")
	}
}

func TestIsOpenAtEvaluatesInBusinessTimezone(t *testing.T) {
	// 14:00 UTC on a Monday is 09:00 in New York: open there, but 06:00 in
	// Los Angeles: closed there.
	at := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	if !IsOpenAt(weekdaySchedule, "America/New_York", at) {
		t.Fatal("expected open in New York")
	}
	if IsOpenAt(weekdaySchedule, "America/Los_Angeles", at) {
		t.Fatal("expected closed in Los Angeles")
	}
}

func TestIsOpenAtMissingDayIsClosed(t *testing.T) {
	// 2026-03-01 is a Sunday, absent from the schedule.
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if IsOpenAt(weekdaySchedule, "UTC", at) {
		t.Fatal("expected closed on a day absent from the schedule")
	}
}

func TestIsOpenAtEmptyScheduleFailsOpen(t *testing.T) {
	if !IsOpenAt(nil, "UTC", time.Now()) {
		t.Fatal("expected unconfigured schedule to be treated as open")
	}
}

func TestIsOpenAtBadTimezoneFailsOpen(t *testing.T) {
	if !IsOpenAt(weekdaySchedule, "Mars/Olympus_Mons", time.Now()) {
		t.Fatal("expected broken timezone to fail open")
	}
}

func TestIsOpenAtBadClockStringFailsOpen(t *testing.T) {
	broken := WeeklySchedule{"mon": {Open: "nine", Close: "17:00"}}
	ny, _ := time.LoadLocation("America/New_York")
	if !IsOpenAt(broken, "America/New_York", mondayAt(3, 0, ny)) {
		t.Fatal("expected unparseable open time to fail open")
	}
}

func TestRenderTemplate(t *testing.T) {
	got := RenderTemplate("Thanks for calling {{business_name}}!", "Apex Plumbing")
	if got != "Thanks for calling Apex Plumbing!" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestPickTemplateSelectsClosedOutsideHours(t *testing.T) {
	b := Business{
		Name:                "Apex Plumbing",
		OpenHoursTemplate:   "open {{business_name}}",
		ClosedHoursTemplate: "closed {{business_name}}",
		WeeklySchedule:      weekdaySchedule,
		Timezone:            "UTC",
	}
	// Sunday: closed.
	got := PickTemplate(b, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if got != "closed Apex Plumbing" {
		t.Fatalf("expected closed template, got %q", got)
	}
}
