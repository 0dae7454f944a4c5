package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
)

// RunStore persists MRP runs, recommendations and dependent demand into
// Postgres. Counter updates are single UPDATE statements so concurrent
// chunk workers never lose increments; recommendation writes upsert on
// (run_id, product_id) so a retried chunk overwrites its own rows.
type RunStore struct {
	db *sql.DB
}

// NewRunStore constructs a Postgres-backed run store
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Verify interface compliance
var _ repositories.RunRepository = (*RunStore)(nil)
var _ repositories.RecommendationRepository = (*RunStore)(nil)
var _ repositories.DependentDemandRepository = (*RunStore)(nil)

// Ping verifies connectivity to Postgres
func (s *RunStore) Ping() error {
	return s.db.Ping()
}

// CreateRun inserts a new run row
func (s *RunStore) CreateRun(run *entities.MrpRun) error {
	flagsJSON, err := json.Marshal(run.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	filter := make([]string, len(run.Filter))
	for i, p := range run.Filter {
		filter[i] = string(p)
	}

	q := `
		INSERT INTO mrp_runs
		  (id, company_id, run_number, horizon_start, horizon_end, flags, filter,
		   status, error_message, products_processed, recommendations_generated,
		   warnings_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`
	_, err = s.db.Exec(q,
		run.ID,
		string(run.CompanyID),
		run.RunNumber,
		run.HorizonStart,
		run.HorizonEnd,
		flagsJSON,
		pq.Array(filter),
		int(run.Status),
		run.ErrorMessage,
		run.ProductsProcessed,
		run.RecommendationsGenerated,
		run.WarningsCount,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun fetches a run by id
func (s *RunStore) GetRun(id uuid.UUID) (*entities.MrpRun, error) {
	q := `
		SELECT id, company_id, run_number, horizon_start, horizon_end, flags, filter,
		       status, error_message, products_processed, recommendations_generated,
		       warnings_count, created_at, started_at, completed_at
		FROM mrp_runs WHERE id = $1
	`
	row := s.db.QueryRow(q, id)

	var (
		run       entities.MrpRun
		companyID string
		flagsJSON []byte
		filter    pq.StringArray
		status    int
		startedAt sql.NullTime
		completed sql.NullTime
	)
	err := row.Scan(&run.ID, &companyID, &run.RunNumber, &run.HorizonStart, &run.HorizonEnd,
		&flagsJSON, &filter, &status, &run.ErrorMessage, &run.ProductsProcessed,
		&run.RecommendationsGenerated, &run.WarningsCount, &run.CreatedAt, &startedAt, &completed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, fmt.Errorf("query run: %w", err)
	}

	run.CompanyID = entities.CompanyID(companyID)
	run.Status = entities.RunStatus(status)
	if err := json.Unmarshal(flagsJSON, &run.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	for _, p := range filter {
		run.Filter = append(run.Filter, entities.ProductID(p))
	}
	if startedAt.Valid {
		t := startedAt.Time
		run.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

// TransitionStatus atomically moves a run between statuses. The WHERE clause
// carries the expected current status so a lost race updates zero rows.
func (s *RunStore) TransitionStatus(id uuid.UUID, from, to entities.RunStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("illegal run transition %s -> %s", from, to)
	}

	now := time.Now().UTC()
	q := `
		UPDATE mrp_runs
		SET status = $1,
		    started_at = CASE WHEN $1 = $4 THEN $3 ELSE started_at END,
		    completed_at = CASE WHEN $1 IN ($5, $6, $7) THEN $3 ELSE completed_at END
		WHERE id = $2 AND status = $8
	`
	res, err := s.db.Exec(q, int(to), id, now,
		int(entities.RunRunning), int(entities.RunCompleted), int(entities.RunFailed), int(entities.RunCancelled),
		int(from))
	if err != nil {
		return fmt.Errorf("transition run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s is not in status %s", id, from)
	}
	return nil
}

// SetErrorMessage records a failure message on a run
func (s *RunStore) SetErrorMessage(id uuid.UUID, message string) error {
	_, err := s.db.Exec(`UPDATE mrp_runs SET error_message = $1 WHERE id = $2`, message, id)
	if err != nil {
		return fmt.Errorf("set error message on run %s: %w", id, err)
	}
	return nil
}

// AddCounters applies a chunk's counter deltas as one relative UPDATE so
// concurrent chunk completions cannot lose increments.
func (s *RunStore) AddCounters(id uuid.UUID, processed, recommendations, warnings int64) error {
	q := `
		UPDATE mrp_runs SET
		  products_processed = products_processed + $1,
		  recommendations_generated = recommendations_generated + $2,
		  warnings_count = warnings_count + $3
		WHERE id = $4`
	res, err := s.db.Exec(q, processed, recommendations, warnings, id)
	if err != nil {
		return fmt.Errorf("increment counters on run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment counters on run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// Upsert inserts or replaces the recommendation for (run, product)
func (s *RunStore) Upsert(rec *entities.MrpRecommendation) error {
	detailsJSON, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("marshal calculation details: %w", err)
	}

	q := `
		INSERT INTO mrp_recommendations
		  (id, run_id, product_id, type, status, required_date, suggested_date, due_date,
		   gross_quantity, net_quantity, suggested_quantity, current_quantity, projected_stock,
		   priority, is_urgent, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (run_id, product_id) DO UPDATE SET
		  type = EXCLUDED.type,
		  status = EXCLUDED.status,
		  required_date = EXCLUDED.required_date,
		  suggested_date = EXCLUDED.suggested_date,
		  due_date = EXCLUDED.due_date,
		  gross_quantity = EXCLUDED.gross_quantity,
		  net_quantity = EXCLUDED.net_quantity,
		  suggested_quantity = EXCLUDED.suggested_quantity,
		  current_quantity = EXCLUDED.current_quantity,
		  projected_stock = EXCLUDED.projected_stock,
		  priority = EXCLUDED.priority,
		  is_urgent = EXCLUDED.is_urgent,
		  details = EXCLUDED.details
	`
	_, err = s.db.Exec(q,
		rec.ID,
		rec.RunID,
		string(rec.ProductID),
		int(rec.Type),
		int(rec.Status),
		rec.RequiredDate,
		rec.SuggestedDate,
		rec.DueDate,
		rec.GrossQuantity.String(),
		rec.NetQuantity.String(),
		rec.SuggestedQuantity.String(),
		rec.CurrentQuantity.String(),
		rec.ProjectedStock.String(),
		rec.Priority,
		rec.IsUrgent,
		detailsJSON,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert recommendation for product %s: %w", rec.ProductID, err)
	}
	return nil
}

// GetByRun fetches all recommendations of a run ordered by product
func (s *RunStore) GetByRun(runID uuid.UUID) ([]*entities.MrpRecommendation, error) {
	q := recommendationQuery + ` WHERE run_id = $1 ORDER BY product_id`
	rows, err := s.db.Query(q, runID)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*entities.MrpRecommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return recs, nil
}

// GetByRunAndProduct fetches the recommendation for one product in a run,
// or nil if the run produced none for it.
func (s *RunStore) GetByRunAndProduct(runID uuid.UUID, productID entities.ProductID) (*entities.MrpRecommendation, error) {
	q := recommendationQuery + ` WHERE run_id = $1 AND product_id = $2`
	rows, err := s.db.Query(q, runID, string(productID))
	if err != nil {
		return nil, fmt.Errorf("query recommendation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query recommendation: %w", err)
		}
		return nil, nil
	}
	return scanRecommendation(rows)
}

const recommendationQuery = `
	SELECT id, run_id, product_id, type, status, required_date, suggested_date, due_date,
	       gross_quantity, net_quantity, suggested_quantity, current_quantity, projected_stock,
	       priority, is_urgent, details, created_at
	FROM mrp_recommendations`

func scanRecommendation(rows *sql.Rows) (*entities.MrpRecommendation, error) {
	var (
		rec         entities.MrpRecommendation
		productID   string
		recType     int
		status      int
		gross       string
		net         string
		suggested   string
		current     string
		projected   string
		detailsJSON []byte
	)
	err := rows.Scan(&rec.ID, &rec.RunID, &productID, &recType, &status,
		&rec.RequiredDate, &rec.SuggestedDate, &rec.DueDate,
		&gross, &net, &suggested, &current, &projected,
		&rec.Priority, &rec.IsUrgent, &detailsJSON, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan recommendation: %w", err)
	}

	rec.ProductID = entities.ProductID(productID)
	rec.Type = entities.RecommendationType(recType)
	rec.Status = entities.RecommendationStatus(status)

	for _, f := range []struct {
		dst  *decimal.Decimal
		src  string
		name string
	}{
		{&rec.GrossQuantity, gross, "gross_quantity"},
		{&rec.NetQuantity, net, "net_quantity"},
		{&rec.SuggestedQuantity, suggested, "suggested_quantity"},
		{&rec.CurrentQuantity, current, "current_quantity"},
		{&rec.ProjectedStock, projected, "projected_stock"},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = d
	}

	if err := json.Unmarshal(detailsJSON, &rec.Details); err != nil {
		return nil, fmt.Errorf("unmarshal calculation details: %w", err)
	}
	return &rec, nil
}

// Register inserts or replaces the dependent demand row for
// (run, parent, component)
func (s *RunStore) Register(demand entities.DependentDemand) error {
	q := `
		INSERT INTO mrp_dependent_demand (run_id, product_id, parent_product_id, quantity, required_date)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (run_id, parent_product_id, product_id) DO UPDATE SET
		  quantity = EXCLUDED.quantity,
		  required_date = EXCLUDED.required_date
	`
	_, err := s.db.Exec(q,
		demand.RunID,
		string(demand.ProductID),
		string(demand.ParentProductID),
		demand.Quantity.String(),
		demand.RequiredDate,
	)
	if err != nil {
		return fmt.Errorf("upsert dependent demand for product %s: %w", demand.ProductID, err)
	}
	return nil
}

// GetForProduct fetches the dependent demand registered for a component in a run
func (s *RunStore) GetForProduct(runID uuid.UUID, productID entities.ProductID) ([]entities.DependentDemand, error) {
	q := `
		SELECT run_id, product_id, parent_product_id, quantity, required_date
		FROM mrp_dependent_demand
		WHERE run_id = $1 AND product_id = $2
		ORDER BY required_date
	`
	rows, err := s.db.Query(q, runID, string(productID))
	if err != nil {
		return nil, fmt.Errorf("query dependent demand: %w", err)
	}
	defer rows.Close()

	var demands []entities.DependentDemand
	for rows.Next() {
		var (
			d        entities.DependentDemand
			prodID   string
			parentID string
			quantity string
		)
		if err := rows.Scan(&d.RunID, &prodID, &parentID, &quantity, &d.RequiredDate); err != nil {
			return nil, fmt.Errorf("scan dependent demand: %w", err)
		}
		d.ProductID = entities.ProductID(prodID)
		d.ParentProductID = entities.ProductID(parentID)
		if d.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parse quantity: %w", err)
		}
		demands = append(demands, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependent demand: %w", err)
	}
	return demands, nil
}
