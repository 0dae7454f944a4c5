package csv_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/infrastructure/repositories/csv"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("writing %s failed: %v", name, err)
	}
	return path
}

func newLoader(t *testing.T) *csv.Loader {
	t.Helper()
	loader, err := csv.NewLoader("ACME")
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	return loader
}

func TestNewLoader_RequiresCompany(t *testing.T) {
	if _, err := csv.NewLoader(""); err == nil {
		t.Error("Expected an error for an empty company ID")
	}
}

func TestLoadProducts(t *testing.T) {
	loader := newLoader(t)
	path := writeFile(t, t.TempDir(), "products.csv",
		"product_id,description,make_or_buy,lead_time_days,safety_stock,reorder_point,min_order_qty,order_multiple,maximum_stock",
		"BIKE,City bicycle,make,5,10,0,50,25,",
		"SPOKE,,buy,7,,,500,,2000",
	)

	products, err := loader.LoadProducts(path)
	if err != nil {
		t.Fatalf("LoadProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}

	bike := products[0]
	if bike.ID != "BIKE" || bike.CompanyID != "ACME" {
		t.Errorf("Expected BIKE for ACME, got %s for %s", bike.ID, bike.CompanyID)
	}
	if bike.MakeOrBuy != entities.Make || bike.LeadTimeDays != 5 {
		t.Errorf("Expected make with lead time 5, got %v, %d", bike.MakeOrBuy, bike.LeadTimeDays)
	}
	if !bike.MinimumOrderQty.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected min order qty 50, got %s", bike.MinimumOrderQty)
	}
	if bike.HasMaximumStock() {
		t.Error("Expected empty maximum stock to mean no ceiling")
	}

	spoke := products[1]
	if !spoke.SafetyStock.IsZero() {
		t.Errorf("Expected empty safety stock parsed as zero, got %s", spoke.SafetyStock)
	}
	if !spoke.MaximumStock.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Expected maximum stock 2000, got %s", spoke.MaximumStock)
	}
}

func TestLoadProducts_HeaderMismatch(t *testing.T) {
	loader := newLoader(t)
	path := writeFile(t, t.TempDir(), "products.csv",
		"product_id,make_or_buy",
		"BIKE,make",
	)

	if _, err := loader.LoadProducts(path); err == nil {
		t.Error("Expected a header mismatch error")
	}
}

func TestLoadBoms_GroupsRowsByBomID(t *testing.T) {
	loader := newLoader(t)
	path := writeFile(t, t.TempDir(), "boms.csv",
		"bom_id,product_id,version,status,is_default,component_id,quantity,scrap_percentage,is_phantom,is_optional",
		"BOM-BIKE,BIKE,1,active,true,FRAME-KIT,2,0,true,false",
		"BOM-BIKE,BIKE,1,active,true,WHEEL,2,10,false,false",
		"BOM-WHEEL,WHEEL,1,active,true,SPOKE,36,0,false,false",
	)

	boms, err := loader.LoadBoms(path)
	if err != nil {
		t.Fatalf("LoadBoms failed: %v", err)
	}
	if len(boms) != 2 {
		t.Fatalf("Expected 2 BOMs, got %d", len(boms))
	}

	bike := boms[0]
	if bike.ID != "BOM-BIKE" || len(bike.Items) != 2 {
		t.Fatalf("Expected BOM-BIKE with 2 items, got %s with %d", bike.ID, len(bike.Items))
	}
	if bike.Status != entities.BomActive || !bike.IsDefault {
		t.Errorf("Expected an active default BOM, got %v default=%v", bike.Status, bike.IsDefault)
	}
	if !bike.Items[0].IsPhantom || bike.Items[1].IsPhantom {
		t.Error("Expected only the first line phantom")
	}
	if bike.Items[0].Sequence != 1 || bike.Items[1].Sequence != 2 {
		t.Errorf("Expected sequence assigned in row order, got %d, %d",
			bike.Items[0].Sequence, bike.Items[1].Sequence)
	}
	if !bike.Items[1].ScrapPercentage.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected 10 percent scrap on the wheel line, got %s", bike.Items[1].ScrapPercentage)
	}
}

func TestLoadBoms_RejectsConflictingProduct(t *testing.T) {
	loader := newLoader(t)
	path := writeFile(t, t.TempDir(), "boms.csv",
		"bom_id,product_id,version,status,is_default,component_id,quantity,scrap_percentage,is_phantom,is_optional",
		"BOM-X,BIKE,1,active,true,WHEEL,2,0,false,false",
		"BOM-X,TRIKE,1,active,true,WHEEL,3,0,false,false",
	)

	if _, err := loader.LoadBoms(path); err == nil {
		t.Error("Expected an error when one BOM spans two products")
	}
}

func TestLoadDemands(t *testing.T) {
	loader := newLoader(t)
	path := writeFile(t, t.TempDir(), "demands.csv",
		"reference,product_id,source,quantity,due_date",
		"SO-1001,BIKE,sales_order,10,2026-04-10",
		"FC-2001,BIKE,forecast,40,2026-05-15",
	)

	demands, err := loader.LoadDemands(path)
	if err != nil {
		t.Fatalf("LoadDemands failed: %v", err)
	}
	if len(demands) != 2 {
		t.Fatalf("Expected 2 demand lines, got %d", len(demands))
	}
	if demands[0].Source != entities.SalesOrderDemand || demands[1].Source != entities.ForecastDemand {
		t.Errorf("Expected sales order then forecast, got %v, %v", demands[0].Source, demands[1].Source)
	}
	if demands[0].DueDate.Format("2006-01-02") != "2026-04-10" {
		t.Errorf("Expected due date 2026-04-10, got %s", demands[0].DueDate)
	}
}

func TestLoadCalendarExceptions_ScopeFromWorkCenterColumn(t *testing.T) {
	loader := newLoader(t)
	path := writeFile(t, t.TempDir(), "calendar.csv",
		"work_center_id,date,is_working,description",
		",2026-05-01,false,May Day",
		"WC1,2026-05-02,true,Weekend shift",
	)

	exceptions, err := loader.LoadCalendarExceptions(path)
	if err != nil {
		t.Fatalf("LoadCalendarExceptions failed: %v", err)
	}
	if len(exceptions) != 2 {
		t.Fatalf("Expected 2 exceptions, got %d", len(exceptions))
	}
	if exceptions[0].Scope.WorkCenterID != "" || exceptions[0].Scope.CompanyID != "ACME" {
		t.Errorf("Expected a company scope, got %+v", exceptions[0].Scope)
	}
	if exceptions[1].Scope.WorkCenterID != "WC1" || !exceptions[1].IsWorking {
		t.Errorf("Expected a working WC1 exception, got %+v", exceptions[1])
	}
}

func TestReadRecords_MissingDataRows(t *testing.T) {
	loader := newLoader(t)
	path := writeFile(t, t.TempDir(), "stock.csv",
		"product_id,warehouse_id,on_hand,reserved",
	)

	if _, err := loader.LoadStock(path); err == nil {
		t.Error("Expected an error for a header-only file")
	}
}
