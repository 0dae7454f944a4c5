package llc

import (
	"context"
	"fmt"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
	"github.com/quartzerp/mrp/pkg/planning/shared"
)

// Calculator computes low-level codes for every product of a company.
// The low-level code of a product is the deepest level at which it appears
// as a component anywhere in the active BOM graph; netting processes
// products in ascending code order so dependent demand flows top-down.
type Calculator struct {
	productRepo repositories.ProductRepository
	bomRepo     repositories.BomRepository
}

// NewCalculator creates a low-level-code calculator
func NewCalculator(productRepo repositories.ProductRepository, bomRepo repositories.BomRepository) *Calculator {
	return &Calculator{
		productRepo: productRepo,
		bomRepo:     bomRepo,
	}
}

// edge is one parent->component relationship from an active BOM
type edge struct {
	bomID     entities.BomID
	parent    entities.ProductID
	component entities.ProductID
}

// ComputeLowLevelCodes computes the code of every product in the company by
// relaxing every active BOM edge to a fixed point. The iteration count is
// bounded by |products|+1; failing to converge within the bound means the
// non-phantom edge set contains a cycle, reported as a CycleError naming
// the BOMs still being relaxed.
//
// Guarantee on success: code[component] >= code[parent]+1 for every edge.
func (c *Calculator) ComputeLowLevelCodes(ctx context.Context, companyID entities.CompanyID) (map[entities.ProductID]int, error) {
	products, err := c.productRepo.GetActiveProducts(companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active products for %s: %w", companyID, err)
	}

	boms, err := c.bomRepo.GetActiveBoms(companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active boms for %s: %w", companyID, err)
	}

	codes := make(map[entities.ProductID]int, len(products))
	for _, product := range products {
		codes[product.ID] = 0
	}

	edges := collectEdges(boms)

	// Relax every edge until no code changes. A DAG settles within
	// |products| passes; one extra pass proves convergence.
	maxPasses := len(products) + 1
	converged := false
	for pass := 0; pass < maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for _, e := range edges {
			if codes[e.component] < codes[e.parent]+1 {
				codes[e.component] = codes[e.parent] + 1
				changed = true
			}
		}
		if !changed {
			converged = true
			break
		}
	}

	if !converged {
		return nil, shared.NewCycleError(residualBoms(edges, codes), nil)
	}

	if err := c.productRepo.UpdateLowLevelCodes(companyID, codes); err != nil {
		return nil, fmt.Errorf("failed to persist low-level codes for %s: %w", companyID, err)
	}

	return codes, nil
}

// collectEdges flattens the active BOM headers into the global edge set.
// Phantom items still contribute edges: the phantom's own components sit one
// level deeper than the phantom's parent once the pass-through is applied,
// and the phantom itself must be ordered after its parents as well.
func collectEdges(boms []*entities.Bom) []edge {
	var edges []edge
	for _, bom := range boms {
		for _, item := range bom.Items {
			edges = append(edges, edge{
				bomID:     bom.ID,
				parent:    bom.ProductID,
				component: item.ComponentID,
			})
		}
	}
	return edges
}

// residualBoms names the BOMs whose edges would still relax, i.e. the ones
// participating in a cycle.
func residualBoms(edges []edge, codes map[entities.ProductID]int) []entities.BomID {
	seen := make(map[entities.BomID]bool)
	var boms []entities.BomID
	for _, e := range edges {
		if codes[e.component] < codes[e.parent]+1 && !seen[e.bomID] {
			seen[e.bomID] = true
			boms = append(boms, e.bomID)
		}
	}
	return boms
}
