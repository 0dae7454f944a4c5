package llc

import (
	"context"
	"errors"
	"testing"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	mrptesting "github.com/quartzerp/mrp/pkg/infrastructure/testing"
	"github.com/quartzerp/mrp/pkg/planning/shared"
)

func TestComputeLowLevelCodes_MultiLevel(t *testing.T) {
	f := mrptesting.BuildBicycleTestData("ACME")
	calculator := NewCalculator(f.Products, f.Boms)

	codes, err := calculator.ComputeLowLevelCodes(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("ComputeLowLevelCodes failed: %v", err)
	}

	expected := map[entities.ProductID]int{
		"BIKE":      0,
		"FRAME-KIT": 1,
		"WHEEL":     1,
		"BELL":      1,
		"FRAME":     2,
		"FORK":      2,
		"SPOKE":     2,
	}
	for id, code := range expected {
		if codes[id] != code {
			t.Errorf("Expected LLC %d for %s, got %d", code, id, codes[id])
		}
	}
}

func TestComputeLowLevelCodes_SharedComponentTakesDeepestLevel(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("TOP", entities.Make, 1, nil)
	f.AddProduct("MID", entities.Make, 1, nil)
	f.AddProduct("SHARED", entities.Buy, 1, nil)

	// SHARED appears at level 1 (under TOP) and level 2 (under MID)
	f.AddBom("BOM-TOP", "TOP", []mrptesting.BomLine{
		{ComponentID: "MID", Quantity: 1},
		{ComponentID: "SHARED", Quantity: 1},
	})
	f.AddBom("BOM-MID", "MID", []mrptesting.BomLine{
		{ComponentID: "SHARED", Quantity: 1},
	})

	calculator := NewCalculator(f.Products, f.Boms)
	codes, err := calculator.ComputeLowLevelCodes(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("ComputeLowLevelCodes failed: %v", err)
	}

	if codes["SHARED"] != 2 {
		t.Errorf("Expected shared component at its deepest level 2, got %d", codes["SHARED"])
	}
}

func TestComputeLowLevelCodes_EdgeInvariantHolds(t *testing.T) {
	f := mrptesting.BuildBicycleTestData("ACME")
	calculator := NewCalculator(f.Products, f.Boms)

	codes, err := calculator.ComputeLowLevelCodes(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("ComputeLowLevelCodes failed: %v", err)
	}

	boms, err := f.Boms.GetActiveBoms("ACME")
	if err != nil {
		t.Fatalf("GetActiveBoms failed: %v", err)
	}
	for _, bom := range boms {
		for _, item := range bom.Items {
			if codes[item.ComponentID] < codes[bom.ProductID]+1 {
				t.Errorf("Edge invariant violated: %s (%d) -> %s (%d)",
					bom.ProductID, codes[bom.ProductID], item.ComponentID, codes[item.ComponentID])
			}
		}
	}
}

func TestComputeLowLevelCodes_PersistsCodes(t *testing.T) {
	f := mrptesting.BuildBicycleTestData("ACME")
	calculator := NewCalculator(f.Products, f.Boms)

	if _, err := calculator.ComputeLowLevelCodes(context.Background(), "ACME"); err != nil {
		t.Fatalf("ComputeLowLevelCodes failed: %v", err)
	}

	spoke, err := f.Products.GetProduct("SPOKE")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if spoke.LowLevelCode != 2 {
		t.Errorf("Expected persisted LLC 2 for SPOKE, got %d", spoke.LowLevelCode)
	}
}

func TestComputeLowLevelCodes_CycleReportsOffendingBoms(t *testing.T) {
	f := mrptesting.NewFixture("ACME")
	f.AddProduct("A", entities.Make, 1, nil)
	f.AddProduct("B", entities.Make, 1, nil)
	f.AddProduct("LEAF", entities.Buy, 1, nil)

	f.AddBom("BOM-A", "A", []mrptesting.BomLine{{ComponentID: "B", Quantity: 1}})
	f.AddBom("BOM-B", "B", []mrptesting.BomLine{
		{ComponentID: "A", Quantity: 1},
		{ComponentID: "LEAF", Quantity: 1},
	})

	calculator := NewCalculator(f.Products, f.Boms)
	_, err := calculator.ComputeLowLevelCodes(context.Background(), "ACME")
	if err == nil {
		t.Fatal("Expected cycle error for A <-> B")
	}

	var cycleErr *shared.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Boms) == 0 {
		t.Error("Expected cycle error to name the offending BOMs")
	}
}

func TestComputeLowLevelCodes_EmptyCompany(t *testing.T) {
	f := mrptesting.NewFixture("EMPTY")
	calculator := NewCalculator(f.Products, f.Boms)

	codes, err := calculator.ComputeLowLevelCodes(context.Background(), "EMPTY")
	if err != nil {
		t.Fatalf("ComputeLowLevelCodes failed: %v", err)
	}
	if len(codes) != 0 {
		t.Errorf("Expected no codes for empty company, got %d", len(codes))
	}
}
