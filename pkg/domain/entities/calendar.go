package entities

import (
	"fmt"
	"time"
)

// CalendarScope identifies whose calendar a lookup is against: a whole
// company or a single work center within it.
type CalendarScope struct {
	CompanyID    CompanyID
	WorkCenterID string // empty = company-wide
}

// NewCompanyScope creates a company-wide calendar scope
func NewCompanyScope(companyID CompanyID) (CalendarScope, error) {
	if companyID == "" {
		return CalendarScope{}, fmt.Errorf("company id cannot be empty")
	}
	return CalendarScope{CompanyID: companyID}, nil
}

// NewWorkCenterScope creates a work-center calendar scope
func NewWorkCenterScope(companyID CompanyID, workCenterID string) (CalendarScope, error) {
	if companyID == "" {
		return CalendarScope{}, fmt.Errorf("company id cannot be empty")
	}
	if workCenterID == "" {
		return CalendarScope{}, fmt.Errorf("work center id cannot be empty")
	}
	return CalendarScope{CompanyID: companyID, WorkCenterID: workCenterID}, nil
}

// CalendarException overrides the default working/non-working state of a date
type CalendarException struct {
	Scope        CalendarScope
	Date         time.Time // date component only, UTC midnight
	IsWorking    bool
	WorkingHours float64 // optional override, 0 = default
	Description  string
}
