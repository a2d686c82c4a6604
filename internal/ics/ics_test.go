package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

var exportNow = time.Date(2024, time.June, 12, 9, 0, 0, 0, time.UTC)

func exportString(t *testing.T, appts []models.Appointment, cd models.ClosedDaysConfig) string {
	t.Helper()
	var buf bytes.Buffer
	err := Export(&buf, appts, cd, ExportOptions{
		Location:     time.UTC,
		ProductID:    "-//glamcal//test//EN",
		CalendarName: "Salon",
		Now:          exportNow,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	return buf.String()
}

func TestSundayRule(t *testing.T) {
	if got := SundayRule(); got != "FREQ=WEEKLY;BYDAY=SU" {
		t.Errorf("SundayRule = %q", got)
	}
}

func TestExport(t *testing.T) {
	appts := []models.Appointment{{ID: "a1", Date: "2024-06-10", Time: "14:30", ClientName: "Maria", Service: "Gel Nails", Duration: 90}}
	cd := models.ClosedDaysConfig{
		CloseOnSundays: true,
		CustomRanges:   []models.ClosedDateRange{{Start: "2024-06-29", End: "2024-06-30"}},
	}
	out := exportString(t, appts, cd)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"UID:a1@glamcal",
		"DTSTART:20240610T143000Z",
		"DTEND:20240610T160000Z",
		"DTSTART;VALUE=DATE:20240629",
		"DTEND;VALUE=DATE:20240701",
		"RRULE:FREQ=WEEKLY;BYDAY=SU",
		"DTSTART;VALUE=DATE:20240609",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q\n%s", want, out)
		}
	}
}

func TestExport_NoSundayEventWhenOpen(t *testing.T) {
	out := exportString(t, nil, models.ClosedDaysConfig{})
	if strings.Contains(out, "RRULE") {
		t.Errorf("unexpected weekly rule:\n%s", out)
	}
}

func TestExport_RejectsBadTime(t *testing.T) {
	appts := []models.Appointment{{ID: "x", Date: "2024-06-10", Time: "noon", Duration: 30}}
	if err := Export(&bytes.Buffer{}, appts, models.ClosedDaysConfig{}, ExportOptions{}); err == nil {
		t.Fatal("expected error for malformed time")
	}
}

const holidayFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:summer@test\r\n" +
	"DTSTART;VALUE=DATE:20240722\r\n" +
	"DTEND;VALUE=DATE:20240727\r\n" +
	"SUMMARY:Summer break\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:training@test\r\n" +
	"DTSTART:20240805T090000Z\r\n" +
	"DTEND:20240805T170000Z\r\n" +
	"SUMMARY:Training\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:xmas@test\r\n" +
	"DTSTART;VALUE=DATE:20201225\r\n" +
	"DTEND;VALUE=DATE:20201226\r\n" +
	"RRULE:FREQ=YEARLY\r\n" +
	"SUMMARY:Christmas\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:old@test\r\n" +
	"DTSTART;VALUE=DATE:20190101\r\n" +
	"SUMMARY:Outside window\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportClosures(t *testing.T) {
	got, err := ImportClosures(strings.NewReader(holidayFeed), Window{From: "2024-01-01", To: "2024-12-31"})
	if err != nil {
		t.Fatalf("ImportClosures: %v", err)
	}
	want := []models.ClosedDateRange{
		{Start: "2024-07-22", End: "2024-07-26"},
		{Start: "2024-08-05", End: "2024-08-05"},
		{Start: "2024-12-25", End: "2024-12-25"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestImportClosures_ZeroWindowSkipsRecurring(t *testing.T) {
	got, err := ImportClosures(strings.NewReader(holidayFeed), Window{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %v, want three non-recurring ranges", got)
	}
	if got[2].Start != "2019-01-01" || got[2].End != "2019-01-01" {
		t.Errorf("missing DTEND should give a single day, got %v", got[2])
	}
}

func TestImportClosures_InvalidWindow(t *testing.T) {
	_, err := ImportClosures(strings.NewReader(holidayFeed), Window{From: "2024-12-31", To: "2024-01-01"})
	if err == nil {
		t.Fatal("expected error for reversed window")
	}
}

func recurringFeed(dtstart, rule string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:r@test\r\nDTSTART;VALUE=DATE:" + dtstart + "\r\n" +
		"RRULE:" + rule + "\r\nSUMMARY:Recurring\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
}

func TestImportClosures_SubDailyRuleStopsAtCap(t *testing.T) {
	start := time.Now()
	got, err := ImportClosures(strings.NewReader(recurringFeed("20240101", "FREQ=SECONDLY")),
		Window{From: "2024-01-01", To: "2025-01-01"})
	if err != nil {
		t.Fatalf("ImportClosures: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expansion took %v", elapsed)
	}
	if len(got) != MaxOccurrences {
		t.Fatalf("ranges = %d, want %d", len(got), MaxOccurrences)
	}
	if got[0].Start != "2024-01-01" || got[len(got)-1].Start != "2024-01-01" {
		t.Errorf("first/last = %v/%v", got[0], got[len(got)-1])
	}
}

func TestImportClosures_RuleStartingLongBeforeWindowIsBounded(t *testing.T) {
	start := time.Now()
	got, err := ImportClosures(strings.NewReader(recurringFeed("20200101", "FREQ=SECONDLY")),
		Window{From: "2024-01-01", To: "2024-12-31"})
	if err != nil {
		t.Fatalf("ImportClosures: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expansion took %v", elapsed)
	}
	if len(got) != 0 {
		t.Errorf("ranges = %d, want none within the step budget", len(got))
	}
}

func TestImportClosures_DailyRuleInsideWindow(t *testing.T) {
	got, err := ImportClosures(strings.NewReader(recurringFeed("20231230", "FREQ=DAILY")),
		Window{From: "2024-01-01", To: "2024-01-03"})
	if err != nil {
		t.Fatalf("ImportClosures: %v", err)
	}
	if len(got) != 3 || got[0].Start != "2024-01-01" || got[2].Start != "2024-01-03" {
		t.Errorf("ranges = %v, want 2024-01-01..2024-01-03", got)
	}
}

func TestImportClosures_WindowTooWide(t *testing.T) {
	_, err := ImportClosures(strings.NewReader(holidayFeed), Window{From: "0001-01-01", To: "9999-12-31"})
	if err == nil {
		t.Fatal("expected error for a window wider than MaxWindowDays")
	}
	if err := (Window{From: "2024-01-01", To: datekey.Key("2024-01-01").AddDays(MaxWindowDays)}).Validate(); err != nil {
		t.Errorf("window of exactly MaxWindowDays: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	cd := models.ClosedDaysConfig{
		CloseOnSundays: true,
		CustomRanges:   []models.ClosedDateRange{{Start: "2024-06-19", End: "2024-06-21"}},
	}
	out := exportString(t, nil, cd)

	got, err := ImportClosures(strings.NewReader(out), Window{From: "2024-06-17", To: "2024-06-30"})
	if err != nil {
		t.Fatalf("ImportClosures: %v", err)
	}
	seen := map[models.ClosedDateRange]bool{}
	for _, r := range got {
		seen[r] = true
	}
	for _, want := range []models.ClosedDateRange{
		{Start: "2024-06-19", End: "2024-06-21"},
		{Start: "2024-06-23", End: "2024-06-23"},
		{Start: "2024-06-30", End: "2024-06-30"},
	} {
		if !seen[want] {
			t.Errorf("round trip missing %v (got %v)", want, got)
		}
	}
	if seen[models.ClosedDateRange{Start: "2024-06-16", End: "2024-06-16"}] {
		t.Error("occurrence before the window was imported")
	}
}
