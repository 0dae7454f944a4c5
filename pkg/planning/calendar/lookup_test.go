package calendar

import (
	"testing"
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/infrastructure/repositories/memory"
)

func newTestLookup(t *testing.T, exceptions []entities.CalendarException) *Lookup {
	t.Helper()
	repo := memory.NewCalendarRepository()
	if err := repo.LoadExceptions(exceptions); err != nil {
		t.Fatalf("Failed to load calendar exceptions: %v", err)
	}
	return NewLookup(repo)
}

func mustCompanyScope(t *testing.T) entities.CalendarScope {
	t.Helper()
	scope, err := entities.NewCompanyScope("ACME")
	if err != nil {
		t.Fatalf("Failed to create scope: %v", err)
	}
	return scope
}

func TestIsWorkingDay_WeekendDefaults(t *testing.T) {
	lookup := newTestLookup(t, nil)
	scope := mustCompanyScope(t)

	testCases := []struct {
		name    string
		date    time.Time
		working bool
	}{
		{"Monday", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{"Friday", time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), true},
		{"Saturday", time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), false},
		{"Sunday", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			working, err := lookup.IsWorkingDay(scope, tc.date)
			if err != nil {
				t.Fatalf("IsWorkingDay failed: %v", err)
			}
			if working != tc.working {
				t.Errorf("Expected working=%t for %s, got %t", tc.working, tc.name, working)
			}
		})
	}
}

func TestIsWorkingDay_ExceptionsOverrideDefaults(t *testing.T) {
	scope := mustCompanyScope(t)
	holiday := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)      // Monday
	workSaturday := time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC) // Saturday

	lookup := newTestLookup(t, []entities.CalendarException{
		{Scope: scope, Date: holiday, IsWorking: false, Description: "Easter Monday"},
		{Scope: scope, Date: workSaturday, IsWorking: true, Description: "Inventory count"},
	})

	working, err := lookup.IsWorkingDay(scope, holiday)
	if err != nil {
		t.Fatalf("IsWorkingDay failed: %v", err)
	}
	if working {
		t.Error("Expected holiday Monday to be non-working")
	}

	working, err = lookup.IsWorkingDay(scope, workSaturday)
	if err != nil {
		t.Fatalf("IsWorkingDay failed: %v", err)
	}
	if !working {
		t.Error("Expected exceptional Saturday to be working")
	}
}

func TestIsWorkingDay_WorkCenterFallsBackToCompany(t *testing.T) {
	companyScope := mustCompanyScope(t)
	wcScope, err := entities.NewWorkCenterScope("ACME", "PAINT")
	if err != nil {
		t.Fatalf("Failed to create work center scope: %v", err)
	}

	holiday := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) // Friday
	maintenance := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

	lookup := newTestLookup(t, []entities.CalendarException{
		{Scope: companyScope, Date: holiday, IsWorking: false},
		{Scope: wcScope, Date: maintenance, IsWorking: false},
	})

	// Company-wide holiday applies to the work center too
	working, err := lookup.IsWorkingDay(wcScope, holiday)
	if err != nil {
		t.Fatalf("IsWorkingDay failed: %v", err)
	}
	if working {
		t.Error("Expected company holiday to apply to work center scope")
	}

	// Work-center maintenance does not apply company-wide
	working, err = lookup.IsWorkingDay(companyScope, maintenance)
	if err != nil {
		t.Fatalf("IsWorkingDay failed: %v", err)
	}
	if !working {
		t.Error("Expected work-center exception not to apply company-wide")
	}
}

func TestShiftToWorkingDay(t *testing.T) {
	lookup := newTestLookup(t, nil)
	scope := mustCompanyScope(t)

	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	forward, err := lookup.ShiftToWorkingDay(scope, saturday, ShiftForward)
	if err != nil {
		t.Fatalf("ShiftToWorkingDay failed: %v", err)
	}
	if forward != time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Expected shift forward to Monday 2026-03-09, got %s", forward.Format("2006-01-02"))
	}

	backward, err := lookup.ShiftToWorkingDay(scope, saturday, ShiftBackward)
	if err != nil {
		t.Fatalf("ShiftToWorkingDay failed: %v", err)
	}
	if backward != time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Expected shift backward to Friday 2026-03-06, got %s", backward.Format("2006-01-02"))
	}

	// A working day shifts to itself
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	same, err := lookup.ShiftToWorkingDay(scope, monday, ShiftForward)
	if err != nil {
		t.Fatalf("ShiftToWorkingDay failed: %v", err)
	}
	if same != monday {
		t.Errorf("Expected working day to map to itself, got %s", same.Format("2006-01-02"))
	}
}

func TestWorkingDaysBefore_SkipsWeekendsAndHolidays(t *testing.T) {
	scope := mustCompanyScope(t)
	// Friday 2026-04-10 is a holiday
	lookup := newTestLookup(t, []entities.CalendarException{
		{Scope: scope, Date: time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), IsWorking: false},
	})

	// 5 working days before Friday 2026-04-17: 16(Thu), 15(Wed), 14(Tue),
	// 13(Mon), 9(Thu, skipping holiday Friday and the weekend).
	result, err := lookup.WorkingDaysBefore(scope, time.Date(2026, 4, 17, 0, 0, 0, 0, time.UTC), 5)
	if err != nil {
		t.Fatalf("WorkingDaysBefore failed: %v", err)
	}
	expected := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	if result != expected {
		t.Errorf("Expected %s, got %s", expected.Format("2006-01-02"), result.Format("2006-01-02"))
	}
}

func TestWorkingDaysBefore_ZeroOffsetShiftsOnly(t *testing.T) {
	lookup := newTestLookup(t, nil)
	scope := mustCompanyScope(t)

	sunday := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	result, err := lookup.WorkingDaysBefore(scope, sunday, 0)
	if err != nil {
		t.Fatalf("WorkingDaysBefore failed: %v", err)
	}
	expected := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC) // preceding Friday
	if result != expected {
		t.Errorf("Expected %s, got %s", expected.Format("2006-01-02"), result.Format("2006-01-02"))
	}
}

func TestWorkingDaysBefore_NegativeOffsetRejected(t *testing.T) {
	lookup := newTestLookup(t, nil)
	scope := mustCompanyScope(t)

	_, err := lookup.WorkingDaysBefore(scope, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), -1)
	if err == nil {
		t.Error("Expected error for negative working day offset")
	}
}
