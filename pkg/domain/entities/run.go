package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of an MRP run
type RunStatus int

const (
	RunPending RunStatus = iota
	RunRunning
	RunCompleted
	RunFailed
	RunCancelled
)

// String method for RunStatus enum
func (s RunStatus) String() string {
	switch s {
	case RunPending:
		return "Pending"
	case RunRunning:
		return "Running"
	case RunCompleted:
		return "Completed"
	case RunFailed:
		return "Failed"
	case RunCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the status is a terminal state
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// CanTransitionTo reports whether a status transition is legal:
// pending -> running -> {completed, failed, cancelled}. A pending run may
// also be cancelled before dispatch.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunPending:
		return next == RunRunning || next == RunCancelled
	case RunRunning:
		return next == RunCompleted || next == RunFailed || next == RunCancelled
	default:
		return false
	}
}

// RunFlags holds the planning flags of an MRP run
type RunFlags struct {
	IncludeSafetyStock bool
	RespectLeadTimes   bool
	ConsiderWIP        bool
	NetChange          bool
}

// MrpRun represents one planning run. Mutated only by the orchestrator;
// terminal once completed, failed or cancelled.
type MrpRun struct {
	ID           uuid.UUID
	CompanyID    CompanyID
	RunNumber    string // unique per company
	HorizonStart time.Time
	HorizonEnd   time.Time
	Flags        RunFlags
	Filter       []ProductID // empty = all active products
	Status       RunStatus
	ErrorMessage string

	ProductsProcessed        int64
	RecommendationsGenerated int64
	WarningsCount            int64

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewMrpRun creates a validated pending MrpRun
func NewMrpRun(companyID CompanyID, horizonStart, horizonEnd time.Time, flags RunFlags) (*MrpRun, error) {
	if companyID == "" {
		return nil, fmt.Errorf("company id cannot be empty")
	}
	if horizonStart.IsZero() || horizonEnd.IsZero() {
		return nil, fmt.Errorf("planning horizon cannot be zero")
	}
	if !horizonEnd.After(horizonStart) {
		return nil, fmt.Errorf("horizon end %s must be after horizon start %s",
			horizonEnd.Format("2006-01-02"), horizonStart.Format("2006-01-02"))
	}

	id := uuid.New()
	return &MrpRun{
		ID:           id,
		CompanyID:    companyID,
		RunNumber:    fmt.Sprintf("MRP-%s", id.String()[:8]),
		HorizonStart: horizonStart,
		HorizonEnd:   horizonEnd,
		Flags:        flags,
		Status:       RunPending,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// WithinHorizon reports whether a date falls inside the run's planning horizon
func (r *MrpRun) WithinHorizon(date time.Time) bool {
	return !date.Before(r.HorizonStart) && !date.After(r.HorizonEnd)
}
