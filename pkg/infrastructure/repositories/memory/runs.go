package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
)

// RunRepository is an in-memory run store. Counter increments happen under
// the store mutex, giving the atomic-increment guarantee concurrent chunk
// completions rely on.
type RunRepository struct {
	mutex sync.Mutex
	runs  map[uuid.UUID]*entities.MrpRun
}

// NewRunRepository creates an empty in-memory run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[uuid.UUID]*entities.MrpRun)}
}

// Verify interface compliance
var _ repositories.RunRepository = (*RunRepository)(nil)

// CreateRun stores a new run
func (r *RunRepository) CreateRun(run *entities.MrpRun) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("run already exists: %s", run.ID)
	}
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

// GetRun returns a snapshot of a run
func (r *RunRepository) GetRun(id uuid.UUID) (*entities.MrpRun, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	run, exists := r.runs[id]
	if !exists {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	copied := *run
	return &copied, nil
}

// TransitionStatus atomically moves a run between statuses, rejecting
// transitions the state machine does not allow.
func (r *RunRepository) TransitionStatus(id uuid.UUID, from, to entities.RunStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	run, exists := r.runs[id]
	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}
	if run.Status != from {
		return fmt.Errorf("run %s is %s, expected %s", id, run.Status, from)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("illegal run transition %s -> %s", from, to)
	}

	run.Status = to
	now := time.Now().UTC()
	switch to {
	case entities.RunRunning:
		run.StartedAt = &now
	case entities.RunCompleted, entities.RunFailed, entities.RunCancelled:
		run.CompletedAt = &now
	}
	return nil
}

// SetErrorMessage records a human-readable failure cause
func (r *RunRepository) SetErrorMessage(id uuid.UUID, message string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	run, exists := r.runs[id]
	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}
	run.ErrorMessage = message
	return nil
}

// AddCounters atomically applies a chunk's counter deltas
func (r *RunRepository) AddCounters(id uuid.UUID, processed, recommendations, warnings int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	run, exists := r.runs[id]
	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}
	run.ProductsProcessed += processed
	run.RecommendationsGenerated += recommendations
	run.WarningsCount += warnings
	return nil
}

// RecommendationRepository is an in-memory recommendation store with
// upsert-by-(run, product) semantics so chunk re-runs stay idempotent.
type RecommendationRepository struct {
	mutex sync.RWMutex
	byKey map[string]*entities.MrpRecommendation
}

// NewRecommendationRepository creates an empty recommendation repository
func NewRecommendationRepository() *RecommendationRepository {
	return &RecommendationRepository{byKey: make(map[string]*entities.MrpRecommendation)}
}

// Verify interface compliance
var _ repositories.RecommendationRepository = (*RecommendationRepository)(nil)

// Upsert inserts or replaces the recommendation for (run, product)
func (r *RecommendationRepository) Upsert(rec *entities.MrpRecommendation) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *rec
	r.byKey[recommendationKey(rec.RunID, rec.ProductID)] = &copied
	return nil
}

// GetByRun returns every recommendation of a run, ordered by product ID
func (r *RecommendationRepository) GetByRun(runID uuid.UUID) ([]*entities.MrpRecommendation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var recs []*entities.MrpRecommendation
	for _, rec := range r.byKey {
		if rec.RunID == runID {
			copied := *rec
			recs = append(recs, &copied)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ProductID < recs[j].ProductID })
	return recs, nil
}

// GetByRunAndProduct returns one recommendation, or nil when none exists
func (r *RecommendationRepository) GetByRunAndProduct(runID uuid.UUID, productID entities.ProductID) (*entities.MrpRecommendation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	rec, exists := r.byKey[recommendationKey(runID, productID)]
	if !exists {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func recommendationKey(runID uuid.UUID, productID entities.ProductID) string {
	return runID.String() + "|" + string(productID)
}

// DependentDemandRepository is an in-memory dependent demand ledger keyed
// by (run, parent, component) so a retried chunk replaces rather than
// appends its parents' rows.
type DependentDemandRepository struct {
	mutex sync.RWMutex
	byKey map[string]entities.DependentDemand
}

// NewDependentDemandRepository creates an empty dependent demand repository
func NewDependentDemandRepository() *DependentDemandRepository {
	return &DependentDemandRepository{byKey: make(map[string]entities.DependentDemand)}
}

// Verify interface compliance
var _ repositories.DependentDemandRepository = (*DependentDemandRepository)(nil)

// Register stores one dependent demand row, replacing an existing row for
// the same run, parent and component.
func (r *DependentDemandRepository) Register(demand entities.DependentDemand) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.byKey[dependentDemandKey(demand)] = demand
	return nil
}

// GetForProduct returns a run's dependent demand for one component
func (r *DependentDemandRepository) GetForProduct(runID uuid.UUID, productID entities.ProductID) ([]entities.DependentDemand, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []entities.DependentDemand
	for _, row := range r.byKey {
		if row.RunID == runID && row.ProductID == productID {
			result = append(result, row)
		}
	}
	return result, nil
}

func dependentDemandKey(demand entities.DependentDemand) string {
	return demand.RunID.String() + "|" + string(demand.ParentProductID) + "|" + string(demand.ProductID)
}
