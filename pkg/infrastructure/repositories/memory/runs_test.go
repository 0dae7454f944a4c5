package memory_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/infrastructure/repositories/memory"
)

func newStoredRun(t *testing.T, repo *memory.RunRepository) *entities.MrpRun {
	t.Helper()
	run, err := entities.NewMrpRun("ACME",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		entities.RunFlags{})
	if err != nil {
		t.Fatalf("NewMrpRun failed: %v", err)
	}
	if err := repo.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	return run
}

func TestRunRepository_TransitionSetsTimestamps(t *testing.T) {
	repo := memory.NewRunRepository()
	run := newStoredRun(t, repo)

	if err := repo.TransitionStatus(run.ID, entities.RunPending, entities.RunRunning); err != nil {
		t.Fatalf("TransitionStatus to running failed: %v", err)
	}
	stored, err := repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored.StartedAt == nil {
		t.Error("Expected StartedAt set on a running run")
	}
	if stored.CompletedAt != nil {
		t.Error("Expected CompletedAt unset on a running run")
	}

	if err := repo.TransitionStatus(run.ID, entities.RunRunning, entities.RunCompleted); err != nil {
		t.Fatalf("TransitionStatus to completed failed: %v", err)
	}
	stored, err = repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored.CompletedAt == nil {
		t.Error("Expected CompletedAt set on a completed run")
	}
}

func TestRunRepository_TransitionRequiresExpectedStatus(t *testing.T) {
	repo := memory.NewRunRepository()
	run := newStoredRun(t, repo)

	// The run is pending, so a running->completed transition must lose
	if err := repo.TransitionStatus(run.ID, entities.RunRunning, entities.RunCompleted); err == nil {
		t.Error("Expected transition from the wrong status to fail")
	}

	stored, err := repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored.Status != entities.RunPending {
		t.Errorf("Expected status unchanged, got %s", stored.Status)
	}
}

func TestRunRepository_IllegalTransitionRejected(t *testing.T) {
	repo := memory.NewRunRepository()
	run := newStoredRun(t, repo)

	if err := repo.TransitionStatus(run.ID, entities.RunPending, entities.RunCompleted); err == nil {
		t.Error("Expected pending->completed to be rejected")
	}
}

func TestRunRepository_ConcurrentCountersSumExactly(t *testing.T) {
	repo := memory.NewRunRepository()
	run := newStoredRun(t, repo)

	const workers = 16
	const perWorker = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := repo.AddCounters(run.ID, 1, 0, 0); err != nil {
					t.Errorf("AddCounters failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stored, err := repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored.ProductsProcessed != workers*perWorker {
		t.Errorf("Expected %d products processed, got %d", workers*perWorker, stored.ProductsProcessed)
	}
}

func TestRunRepository_GetRunReturnsSnapshot(t *testing.T) {
	repo := memory.NewRunRepository()
	run := newStoredRun(t, repo)

	first, err := repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	first.ErrorMessage = "scribbled"

	second, err := repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if second.ErrorMessage != "" {
		t.Errorf("Expected stored run unchanged, got error message %q", second.ErrorMessage)
	}
}

func TestRecommendationRepository_UpsertReplacesByRunAndProduct(t *testing.T) {
	repo := memory.NewRecommendationRepository()
	runRepo := memory.NewRunRepository()
	run := newStoredRun(t, runRepo)

	first, err := entities.NewMrpRecommendation(run.ID, "A", entities.RecommendPurchaseOrder)
	if err != nil {
		t.Fatalf("NewMrpRecommendation failed: %v", err)
	}
	first.SuggestedQuantity = decimal.NewFromInt(10)
	if err := repo.Upsert(first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	second, err := entities.NewMrpRecommendation(run.ID, "A", entities.RecommendWorkOrder)
	if err != nil {
		t.Fatalf("NewMrpRecommendation failed: %v", err)
	}
	second.SuggestedQuantity = decimal.NewFromInt(25)
	if err := repo.Upsert(second); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	all, err := repo.GetByRun(run.ID)
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected the upsert to replace, got %d rows", len(all))
	}
	if all[0].Type != entities.RecommendWorkOrder {
		t.Errorf("Expected the latest write to win, got %s", all[0].Type)
	}
	if !all[0].SuggestedQuantity.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected suggested quantity 25, got %s", all[0].SuggestedQuantity)
	}
}

func TestRecommendationRepository_GetByRunAndProductAbsent(t *testing.T) {
	repo := memory.NewRecommendationRepository()
	runRepo := memory.NewRunRepository()
	run := newStoredRun(t, runRepo)

	rec, err := repo.GetByRunAndProduct(run.ID, "NOPE")
	if err != nil {
		t.Fatalf("GetByRunAndProduct failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Expected nil for an absent recommendation, got %v", rec)
	}
}

func TestDependentDemandRepository_FiltersByRunAndProduct(t *testing.T) {
	repo := memory.NewDependentDemandRepository()
	runRepo := memory.NewRunRepository()
	run := newStoredRun(t, runRepo)
	other := newStoredRun(t, runRepo)

	due := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	rows := []entities.DependentDemand{
		{RunID: run.ID, ProductID: "A", ParentProductID: "P", Quantity: decimal.NewFromInt(5), RequiredDate: due},
		{RunID: run.ID, ProductID: "A", ParentProductID: "Q", Quantity: decimal.NewFromInt(7), RequiredDate: due},
		{RunID: run.ID, ProductID: "B", ParentProductID: "P", Quantity: decimal.NewFromInt(3), RequiredDate: due},
		{RunID: other.ID, ProductID: "A", ParentProductID: "P", Quantity: decimal.NewFromInt(99), RequiredDate: due},
	}
	for _, row := range rows {
		if err := repo.Register(row); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	got, err := repo.GetForProduct(run.ID, "A")
	if err != nil {
		t.Fatalf("GetForProduct failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows for product A, got %d", len(got))
	}
	total := decimal.Zero
	for _, row := range got {
		total = total.Add(row.Quantity)
	}
	if !total.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected total dependent demand 12, got %s", total)
	}
}

func TestDependentDemandRepository_RegisterReplacesByParentAndComponent(t *testing.T) {
	repo := memory.NewDependentDemandRepository()
	runRepo := memory.NewRunRepository()
	run := newStoredRun(t, runRepo)

	due := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	first := entities.DependentDemand{RunID: run.ID, ProductID: "A", ParentProductID: "P", Quantity: decimal.NewFromInt(5), RequiredDate: due}
	if err := repo.Register(first); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// The same parent registering again replaces its row instead of appending
	second := first
	second.Quantity = decimal.NewFromInt(8)
	if err := repo.Register(second); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := repo.GetForProduct(run.ID, "A")
	if err != nil {
		t.Fatalf("GetForProduct failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected a single row after re-registration, got %d", len(got))
	}
	if !got[0].Quantity.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Expected the latest quantity to win, got %s", got[0].Quantity)
	}
}
