package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// Loader handles loading MRP master data from CSV files. All rows belong
// to the company the loader was created for.
type Loader struct {
	companyID entities.CompanyID
}

// NewLoader creates a new CSV loader for a company
func NewLoader(companyID entities.CompanyID) (*Loader, error) {
	if companyID == "" {
		return nil, fmt.Errorf("company id cannot be empty")
	}
	return &Loader{companyID: companyID}, nil
}

// LoadProducts loads product master data from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readRecords(filename, "products")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_id", "description", "make_or_buy", "lead_time_days", "safety_stock", "reorder_point", "min_order_qty", "order_multiple", "maximum_stock"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("products CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var products []*entities.Product
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("products CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		product, err := l.parseProduct(record)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}

		products = append(products, product)
	}

	return products, nil
}

// LoadBoms loads BOM headers and their component lines from a CSV file.
// Rows sharing a bom_id are grouped into one header; header columns must
// agree across the group.
func (l *Loader) LoadBoms(filename string) ([]*entities.Bom, error) {
	records, err := readRecords(filename, "boms")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"bom_id", "product_id", "version", "status", "is_default", "component_id", "quantity", "scrap_percentage", "is_phantom", "is_optional"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("boms CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	byID := make(map[entities.BomID]*entities.Bom)
	var order []entities.BomID

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("boms CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		bomID := entities.BomID(record[0])
		bom, seen := byID[bomID]
		if !seen {
			bom, err = l.parseBomHeader(record)
			if err != nil {
				return nil, fmt.Errorf("boms CSV row %d: %w", i+2, err)
			}
			byID[bomID] = bom
			order = append(order, bomID)
		} else if bom.ProductID != entities.ProductID(record[1]) {
			return nil, fmt.Errorf("boms CSV row %d: bom %s already belongs to product %s", i+2, bomID, bom.ProductID)
		}

		item, err := parseBomItem(record)
		if err != nil {
			return nil, fmt.Errorf("boms CSV row %d: %w", i+2, err)
		}
		item.Sequence = len(bom.Items) + 1
		bom.Items = append(bom.Items, *item)
	}

	boms := make([]*entities.Bom, 0, len(order))
	for _, id := range order {
		boms = append(boms, byID[id])
	}
	return boms, nil
}

// LoadStock loads stock snapshots from a CSV file
func (l *Loader) LoadStock(filename string) ([]*entities.StockSnapshot, error) {
	records, err := readRecords(filename, "stock")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_id", "warehouse_id", "on_hand", "reserved"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("stock CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var snapshots []*entities.StockSnapshot
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("stock CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		onHand, err := parseDecimal(record[2], "on_hand")
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		reserved, err := parseDecimal(record[3], "reserved")
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}

		snapshots = append(snapshots, &entities.StockSnapshot{
			ProductID:   entities.ProductID(record[0]),
			WarehouseID: entities.WarehouseID(record[1]),
			OnHand:      onHand,
			Reserved:    reserved,
		})
	}

	return snapshots, nil
}

// LoadSupplies loads open supply orders from a CSV file
func (l *Loader) LoadSupplies(filename string) ([]*entities.OpenSupply, error) {
	records, err := readRecords(filename, "supplies")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"reference", "product_id", "type", "quantity", "due_date"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("supplies CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var supplies []*entities.OpenSupply
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("supplies CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		supplyType, err := parseSupplyType(record[2])
		if err != nil {
			return nil, fmt.Errorf("supplies CSV row %d: %w", i+2, err)
		}
		quantity, err := parseDecimal(record[3], "quantity")
		if err != nil {
			return nil, fmt.Errorf("supplies CSV row %d: %w", i+2, err)
		}
		dueDate, err := parseDate(record[4], "due_date")
		if err != nil {
			return nil, fmt.Errorf("supplies CSV row %d: %w", i+2, err)
		}

		supplies = append(supplies, &entities.OpenSupply{
			Reference: record[0],
			ProductID: entities.ProductID(record[1]),
			Type:      supplyType,
			Quantity:  quantity,
			DueDate:   dueDate,
		})
	}

	return supplies, nil
}

// LoadDemands loads independent demand from a CSV file
func (l *Loader) LoadDemands(filename string) ([]*entities.OpenDemand, error) {
	records, err := readRecords(filename, "demands")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"reference", "product_id", "source", "quantity", "due_date"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("demands CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var demands []*entities.OpenDemand
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("demands CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		source, err := parseDemandSource(record[2])
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: %w", i+2, err)
		}
		quantity, err := parseDecimal(record[3], "quantity")
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: %w", i+2, err)
		}
		dueDate, err := parseDate(record[4], "due_date")
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: %w", i+2, err)
		}

		demands = append(demands, &entities.OpenDemand{
			Reference: record[0],
			ProductID: entities.ProductID(record[1]),
			Source:    source,
			Quantity:  quantity,
			DueDate:   dueDate,
		})
	}

	return demands, nil
}

// LoadCalendarExceptions loads calendar exceptions from a CSV file.
// An empty work_center_id means a company-wide exception.
func (l *Loader) LoadCalendarExceptions(filename string) ([]*entities.CalendarException, error) {
	records, err := readRecords(filename, "calendar")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"work_center_id", "date", "is_working", "description"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("calendar CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var exceptions []*entities.CalendarException
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("calendar CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		var scope entities.CalendarScope
		if record[0] == "" {
			scope, err = entities.NewCompanyScope(l.companyID)
		} else {
			scope, err = entities.NewWorkCenterScope(l.companyID, record[0])
		}
		if err != nil {
			return nil, fmt.Errorf("calendar CSV row %d: %w", i+2, err)
		}

		date, err := parseDate(record[1], "date")
		if err != nil {
			return nil, fmt.Errorf("calendar CSV row %d: %w", i+2, err)
		}
		isWorking, err := parseBool(record[2], "is_working")
		if err != nil {
			return nil, fmt.Errorf("calendar CSV row %d: %w", i+2, err)
		}

		exceptions = append(exceptions, &entities.CalendarException{
			Scope:       scope,
			Date:        date,
			IsWorking:   isWorking,
			Description: record[3],
		})
	}

	return exceptions, nil
}

// Helper functions for parsing CSV records

func readRecords(filename, kind string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	return records, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func (l *Loader) parseProduct(record []string) (*entities.Product, error) {
	makeOrBuy, err := parseMakeOrBuy(record[2])
	if err != nil {
		return nil, err
	}

	leadTimeDays, err := strconv.Atoi(record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid lead_time_days: %s", record[3])
	}

	product, err := entities.NewProduct(entities.ProductID(record[0]), l.companyID, makeOrBuy, leadTimeDays)
	if err != nil {
		return nil, err
	}
	product.Description = record[1]

	if product.SafetyStock, err = parseDecimal(record[4], "safety_stock"); err != nil {
		return nil, err
	}
	if product.ReorderPoint, err = parseDecimal(record[5], "reorder_point"); err != nil {
		return nil, err
	}
	if product.MinimumOrderQty, err = parseDecimal(record[6], "min_order_qty"); err != nil {
		return nil, err
	}
	if product.OrderMultiple, err = parseDecimal(record[7], "order_multiple"); err != nil {
		return nil, err
	}
	if product.MaximumStock, err = parseDecimal(record[8], "maximum_stock"); err != nil {
		return nil, err
	}

	return product, nil
}

func (l *Loader) parseBomHeader(record []string) (*entities.Bom, error) {
	version, err := strconv.Atoi(record[2])
	if err != nil {
		return nil, fmt.Errorf("invalid version: %s", record[2])
	}

	bom, err := entities.NewBom(entities.BomID(record[0]), entities.ProductID(record[1]), l.companyID, version)
	if err != nil {
		return nil, err
	}

	if bom.Status, err = parseBomStatus(record[3]); err != nil {
		return nil, err
	}
	if bom.IsDefault, err = parseBool(record[4], "is_default"); err != nil {
		return nil, err
	}

	return bom, nil
}

func parseBomItem(record []string) (*entities.BomItem, error) {
	quantity, err := parseDecimal(record[6], "quantity")
	if err != nil {
		return nil, err
	}
	scrap, err := parseDecimal(record[7], "scrap_percentage")
	if err != nil {
		return nil, err
	}

	item, err := entities.NewBomItem(entities.BomID(record[0]), entities.ProductID(record[5]), quantity, scrap)
	if err != nil {
		return nil, err
	}

	if item.IsPhantom, err = parseBool(record[8], "is_phantom"); err != nil {
		return nil, err
	}
	if item.IsOptional, err = parseBool(record[9], "is_optional"); err != nil {
		return nil, err
	}

	return item, nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

func parseDate(s, field string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD)", field, s)
	}
	return t, nil
}

func parseBool(s, field string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", field, s)
	}
}

func parseMakeOrBuy(s string) (entities.MakeOrBuy, error) {
	switch strings.ToLower(s) {
	case "make":
		return entities.Make, nil
	case "buy":
		return entities.Buy, nil
	default:
		return entities.Buy, fmt.Errorf("invalid make_or_buy: %s (expected: Make or Buy)", s)
	}
}

func parseSupplyType(s string) (entities.SupplyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "purchase_order", "purchaseorder", "po":
		return entities.PurchaseSupply, nil
	case "work_order", "workorder", "wo":
		return entities.WorkOrderSupply, nil
	default:
		return entities.PurchaseSupply, fmt.Errorf("invalid type: %s (expected: purchase_order or work_order)", s)
	}
}

func parseDemandSource(s string) (entities.DemandSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sales_order", "salesorder", "so":
		return entities.SalesOrderDemand, nil
	case "forecast":
		return entities.ForecastDemand, nil
	default:
		return entities.SalesOrderDemand, fmt.Errorf("invalid source: %s (expected: sales_order or forecast)", s)
	}
}

func parseBomStatus(s string) (entities.BomStatus, error) {
	switch strings.ToLower(s) {
	case "draft":
		return entities.BomDraft, nil
	case "active":
		return entities.BomActive, nil
	case "obsolete":
		return entities.BomObsolete, nil
	default:
		return entities.BomDraft, fmt.Errorf("invalid status: %s (expected: Draft, Active, or Obsolete)", s)
	}
}
