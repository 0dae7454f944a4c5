package explosion

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
	"github.com/quartzerp/mrp/pkg/planning/cache"
	"github.com/quartzerp/mrp/pkg/planning/shared"
)

// Requirement is one flattened component requirement from a BOM explosion
type Requirement struct {
	ComponentID entities.ProductID
	Quantity    decimal.Decimal
	IsOptional  bool
}

// Exploder flattens a BOM into component requirements, honoring scrap
// percentages and phantom pass-through. Phantom items never appear in the
// output; their own default BOM is exploded in their place. Unit explosions
// are memoized per BOM in the cache store.
type Exploder struct {
	bomRepo repositories.BomRepository
	store   cache.Store
}

// NewExploder creates a BOM exploder backed by the given cache store
func NewExploder(bomRepo repositories.BomRepository, store cache.Store) *Exploder {
	return &Exploder{bomRepo: bomRepo, store: store}
}

// Explode returns the component requirements for building the given
// quantity against the BOM. The output is merged by component (summing
// across branches), sorted by component ID, and therefore deterministic and
// idempotent for identical inputs.
func (e *Exploder) Explode(ctx context.Context, bomID entities.BomID, quantity decimal.Decimal) ([]Requirement, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("explosion quantity must be positive, got %s", quantity)
	}

	bom, err := e.bomRepo.GetBom(bomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bom %s: %w", bomID, err)
	}
	if !bom.IsExplodable() {
		return nil, fmt.Errorf("bom %s is not active (status %s)", bomID, bom.Status)
	}

	unit, err := e.unitExplosion(ctx, bom)
	if err != nil {
		return nil, err
	}

	scaled := make([]Requirement, len(unit))
	for i, req := range unit {
		scaled[i] = Requirement{
			ComponentID: req.ComponentID,
			Quantity:    req.Quantity.Mul(quantity),
			IsOptional:  req.IsOptional,
		}
	}
	return scaled, nil
}

// unitExplosion returns the memoized quantity-one explosion of a BOM
func (e *Exploder) unitExplosion(ctx context.Context, bom *entities.Bom) ([]Requirement, error) {
	key := cache.ExplosionKey(bom.CompanyID, bom.ID)
	if cached, exists := e.store.Get(key); exists {
		if reqs, ok := cached.([]Requirement); ok {
			return reqs, nil
		}
	}

	merged := make(map[mergeKey]decimal.Decimal)
	path := map[entities.BomID]bool{}
	if err := e.explodeInto(ctx, bom, decimal.NewFromInt(1), false, path, merged); err != nil {
		return nil, err
	}

	reqs := flatten(merged)
	e.store.Put(key, reqs)
	return reqs, nil
}

// mergeKey separates required and optional occurrences of the same component
type mergeKey struct {
	componentID entities.ProductID
	optional    bool
}

// explodeInto walks one BOM, accumulating requirements into merged. The
// path set holds every BOM currently on the recursion stack; re-entering
// one means the phantom chain loops.
func (e *Exploder) explodeInto(
	ctx context.Context,
	bom *entities.Bom,
	quantity decimal.Decimal,
	optional bool,
	path map[entities.BomID]bool,
	merged map[mergeKey]decimal.Decimal,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path[bom.ID] {
		boms := make([]entities.BomID, 0, len(path))
		for id := range path {
			boms = append(boms, id)
		}
		sort.Slice(boms, func(i, j int) bool { return boms[i] < boms[j] })
		return shared.NewCycleError(boms, nil)
	}
	path[bom.ID] = true
	defer delete(path, bom.ID)

	for _, item := range bom.Items {
		required := quantity.Mul(item.Quantity).Mul(item.ScrapFactor())
		itemOptional := optional || item.IsOptional

		if !item.IsPhantom {
			key := mergeKey{componentID: item.ComponentID, optional: itemOptional}
			merged[key] = merged[key].Add(required)
			continue
		}

		// Phantom pass-through: the phantom itself is never a requirement,
		// its own default BOM is exploded at the computed quantity.
		phantomBom, err := e.bomRepo.GetDefaultBom(item.ComponentID)
		if err != nil {
			return fmt.Errorf("failed to get default bom for phantom %s: %w", item.ComponentID, err)
		}
		if phantomBom == nil {
			// A phantom without a BOM contributes nothing; it exists only
			// as a grouping on the parent BOM.
			continue
		}
		if err := e.explodeInto(ctx, phantomBom, required, itemOptional, path, merged); err != nil {
			return err
		}
	}

	return nil
}

// flatten converts the merge map into a deterministically ordered slice
func flatten(merged map[mergeKey]decimal.Decimal) []Requirement {
	reqs := make([]Requirement, 0, len(merged))
	for key, qty := range merged {
		reqs = append(reqs, Requirement{
			ComponentID: key.componentID,
			Quantity:    qty,
			IsOptional:  key.optional,
		})
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].ComponentID != reqs[j].ComponentID {
			return reqs[i].ComponentID < reqs[j].ComponentID
		}
		return !reqs[i].IsOptional && reqs[j].IsOptional
	})
	return reqs
}
