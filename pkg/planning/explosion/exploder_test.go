package explosion

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	mrptesting "github.com/quartzerp/mrp/pkg/infrastructure/testing"
	"github.com/quartzerp/mrp/pkg/planning/cache"
	"github.com/quartzerp/mrp/pkg/planning/shared"
)

func newTestExploder(f *mrptesting.Fixture) *Exploder {
	return NewExploder(f.Boms, cache.NewMemoryStore())
}

func findRequirement(reqs []Requirement, id entities.ProductID) *Requirement {
	for i := range reqs {
		if reqs[i].ComponentID == id {
			return &reqs[i]
		}
	}
	return nil
}

func TestExplode_ScrapFactorApplied(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("PARENT", entities.Make, 1, nil)
	f.AddProduct("COMP", entities.Buy, 1, nil)
	f.AddBom("BOM-P", "PARENT", []mrptesting.BomLine{
		{ComponentID: "COMP", Quantity: 2, Scrap: 10},
	})

	exploder := newTestExploder(f)
	reqs, err := exploder.Explode(context.Background(), "BOM-P", decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	// 5 * 2 * 1.10 = 11 exactly
	req := findRequirement(reqs, "COMP")
	if req == nil {
		t.Fatal("Expected a requirement for COMP")
	}
	if !req.Quantity.Equal(decimal.NewFromInt(11)) {
		t.Errorf("Expected exact quantity 11, got %s", req.Quantity)
	}
}

func TestExplode_PhantomPassThrough(t *testing.T) {
	f := mrptesting.BuildBicycleTestData("ACME")
	exploder := newTestExploder(f)

	reqs, err := exploder.Explode(context.Background(), "BOM-BIKE", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	// The phantom FRAME-KIT never appears in the output
	if findRequirement(reqs, "FRAME-KIT") != nil {
		t.Error("Expected phantom FRAME-KIT to be absent from explosion output")
	}

	// Its components appear at the pass-through quantity: 10 bikes * 2 kits * 1 each
	for _, id := range []entities.ProductID{"FRAME", "FORK"} {
		req := findRequirement(reqs, id)
		if req == nil {
			t.Fatalf("Expected a requirement for %s", id)
		}
		if !req.Quantity.Equal(decimal.NewFromInt(20)) {
			t.Errorf("Expected quantity 20 for %s, got %s", id, req.Quantity)
		}
	}

	// Non-phantom WHEEL stays at its own level: 10 * 2 * 1.10 = 22
	wheel := findRequirement(reqs, "WHEEL")
	if wheel == nil {
		t.Fatal("Expected a requirement for WHEEL")
	}
	if !wheel.Quantity.Equal(decimal.NewFromInt(22)) {
		t.Errorf("Expected quantity 22 for WHEEL, got %s", wheel.Quantity)
	}
	// WHEEL is a make item with its own BOM but is not a phantom, so SPOKE
	// does not appear in BIKE's single-level explosion.
	if findRequirement(reqs, "SPOKE") != nil {
		t.Error("Expected non-phantom subassembly components to stay out of the output")
	}
}

func TestExplode_PhantomConservation(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("TOP", entities.Make, 1, nil)
	f.AddProduct("GROUP", entities.Make, 0, nil)
	f.AddProduct("LEAF", entities.Buy, 1, nil)

	f.AddBom("BOM-TOP", "TOP", []mrptesting.BomLine{
		{ComponentID: "GROUP", Quantity: 3, Phantom: true},
	})
	f.AddBom("BOM-GROUP", "GROUP", []mrptesting.BomLine{
		{ComponentID: "LEAF", Quantity: 4},
	})

	exploder := newTestExploder(f)
	reqs, err := exploder.Explode(context.Background(), "BOM-TOP", decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	// Total leaf quantity equals the phantom-free equivalent: 2 * 3 * 4 = 24
	leaf := findRequirement(reqs, "LEAF")
	if leaf == nil {
		t.Fatal("Expected a requirement for LEAF")
	}
	if !leaf.Quantity.Equal(decimal.NewFromInt(24)) {
		t.Errorf("Expected quantity 24 for LEAF, got %s", leaf.Quantity)
	}
}

func TestExplode_PhantomWithoutBomContributesNothing(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("TOP", entities.Make, 1, nil)
	f.AddProduct("EMPTY-GROUP", entities.Make, 0, nil)
	f.AddBom("BOM-TOP", "TOP", []mrptesting.BomLine{
		{ComponentID: "EMPTY-GROUP", Quantity: 1, Phantom: true},
	})

	exploder := newTestExploder(f)
	reqs, err := exploder.Explode(context.Background(), "BOM-TOP", decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	if len(reqs) != 0 {
		t.Errorf("Expected empty explosion, got %d requirements", len(reqs))
	}
}

func TestExplode_OptionalPropagatesThroughPhantoms(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("TOP", entities.Make, 1, nil)
	f.AddProduct("OPT-GROUP", entities.Make, 0, nil)
	f.AddProduct("LEAF", entities.Buy, 1, nil)

	f.AddBom("BOM-TOP", "TOP", []mrptesting.BomLine{
		{ComponentID: "OPT-GROUP", Quantity: 1, Phantom: true, Optional: true},
	})
	f.AddBom("BOM-OPT-GROUP", "OPT-GROUP", []mrptesting.BomLine{
		{ComponentID: "LEAF", Quantity: 2},
	})

	exploder := newTestExploder(f)
	reqs, err := exploder.Explode(context.Background(), "BOM-TOP", decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	leaf := findRequirement(reqs, "LEAF")
	if leaf == nil {
		t.Fatal("Expected a requirement for LEAF")
	}
	if !leaf.IsOptional {
		t.Error("Expected optionality to propagate through the phantom chain")
	}
}

func TestExplode_Idempotent(t *testing.T) {
	f := mrptesting.BuildBicycleTestData("ACME")
	exploder := newTestExploder(f)

	first, err := exploder.Explode(context.Background(), "BOM-BIKE", decimal.NewFromInt(7))
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	// Second call is served from the memoized unit explosion
	second, err := exploder.Explode(context.Background(), "BOM-BIKE", decimal.NewFromInt(7))
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Expected identical results, got %d vs %d requirements", len(first), len(second))
	}
	for i := range first {
		if first[i].ComponentID != second[i].ComponentID ||
			!first[i].Quantity.Equal(second[i].Quantity) ||
			first[i].IsOptional != second[i].IsOptional {
			t.Errorf("Requirement %d differs between identical explosions: %+v vs %+v",
				i, first[i], second[i])
		}
	}
}

func TestExplode_PhantomCycleDetected(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("A", entities.Make, 1, nil)
	f.AddProduct("B", entities.Make, 1, nil)

	f.AddBom("BOM-A", "A", []mrptesting.BomLine{{ComponentID: "B", Quantity: 1, Phantom: true}})
	f.AddBom("BOM-B", "B", []mrptesting.BomLine{{ComponentID: "A", Quantity: 1, Phantom: true}})

	exploder := newTestExploder(f)
	_, err := exploder.Explode(context.Background(), "BOM-A", decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("Expected cycle error for phantom loop A <-> B")
	}

	var cycleErr *shared.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Boms) != 2 {
		t.Errorf("Expected both BOMs named in the cycle error, got %v", cycleErr.Boms)
	}
}

func TestExplode_RejectsNonPositiveQuantity(t *testing.T) {
	f := mrptesting.BuildBicycleTestData("ACME")
	exploder := newTestExploder(f)

	for _, qty := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		if _, err := exploder.Explode(context.Background(), "BOM-BIKE", qty); err == nil {
			t.Errorf("Expected error for quantity %s", qty)
		}
	}
}

func TestExplode_RejectsInactiveBom(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("P", entities.Make, 1, nil)
	f.AddProduct("C", entities.Buy, 1, nil)
	bom := f.AddBom("BOM-P", "P", []mrptesting.BomLine{{ComponentID: "C", Quantity: 1}})
	bom.Status = entities.BomObsolete
	if err := f.Boms.LoadBoms([]*entities.Bom{bom}); err != nil {
		t.Fatalf("LoadBoms failed: %v", err)
	}

	exploder := newTestExploder(f)
	if _, err := exploder.Explode(context.Background(), "BOM-P", decimal.NewFromInt(1)); err == nil {
		t.Error("Expected error for obsolete BOM")
	}
}
