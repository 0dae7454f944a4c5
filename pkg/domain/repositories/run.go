package repositories

import (
	"github.com/google/uuid"

	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// RunRepository persists MRP runs. Chunk workers coordinate exclusively
// through this store; counter increments must be atomic (never
// read-modify-write) so concurrent chunk completions cannot lose updates.
type RunRepository interface {
	CreateRun(run *entities.MrpRun) error
	GetRun(id uuid.UUID) (*entities.MrpRun, error)

	// TransitionStatus atomically moves a run from one status to another.
	// Returns an error if the run is not currently in the expected status
	// or the transition is illegal.
	TransitionStatus(id uuid.UUID, from, to entities.RunStatus) error

	SetErrorMessage(id uuid.UUID, message string) error

	// AddCounters applies a chunk's counter deltas in a single atomic
	// increment. A chunk commits its deltas once, after it completed, so
	// a retried chunk never double-counts.
	AddCounters(id uuid.UUID, processed, recommendations, warnings int64) error
}

// RecommendationRepository persists recommendations. Upsert semantics keyed
// by (run, product) make chunk re-runs idempotent.
type RecommendationRepository interface {
	Upsert(rec *entities.MrpRecommendation) error
	GetByRun(runID uuid.UUID) ([]*entities.MrpRecommendation, error)
	GetByRunAndProduct(runID uuid.UUID, productID entities.ProductID) (*entities.MrpRecommendation, error)
}

// DependentDemandRepository stores dependent demand registered while a run
// is in flight. A parent's netting decision writes rows here; components at
// higher low-level codes read them back as part of their gross requirement.
// Registration has upsert semantics keyed by (run, parent, component) so
// chunk re-runs are idempotent: a retried parent replaces its rows instead
// of appending.
type DependentDemandRepository interface {
	Register(demand entities.DependentDemand) error
	GetForProduct(runID uuid.UUID, productID entities.ProductID) ([]entities.DependentDemand, error)
}
