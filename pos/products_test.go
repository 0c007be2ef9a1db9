package pos_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/pos"
	"github.com/shopspring/decimal"
)

func TestStaleEditSurfacesConflict(t *testing.T) {
	service, db := newTestService(t)
	seedProduct(t, db, "p-1", 90, 140, 9, 3)
	clearQueue(t, db)

	_, err := service.UpdateProduct(testCtx(), models.UpdateProductInput{
		ID:           "p-1",
		Name:         "Product p-1",
		CostPrice:    decimal.NewFromInt(100),
		SellingPrice: decimal.NewFromInt(150),
		Stock:        decimal.NewFromInt(5),
		Version:      2, // edit started before the stored copy moved to v3
	})
	if err == nil {
		t.Fatalf("stale edit must not be applied")
	}
	var conflict *pos.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
	if conflict.Remote.Version != 3 {
		t.Fatalf("conflict should carry the stored copy, got v%d", conflict.Remote.Version)
	}
	requireDecimal(t, conflict.Local.CostPrice, 100, "conflict local cost")

	// no silent write, no queue traffic
	stored, err := models.GetProduct(db, "p-1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if stored.Version != 3 {
		t.Fatalf("stored product changed under a rejected edit: v%d", stored.Version)
	}
	requireDecimal(t, stored.Stock, 9, "stored stock")
	if items := queueItems(t, db); len(items) != 0 {
		t.Fatalf("rejected edit enqueued %d sync items", len(items))
	}
}

func TestMatchingVersionEditApplies(t *testing.T) {
	service, db := newTestService(t)
	seedProduct(t, db, "p-1", 90, 140, 9, 3)
	clearQueue(t, db)

	updated, err := service.UpdateProduct(testCtx(), models.UpdateProductInput{
		ID:           "p-1",
		Name:         "Renamed",
		CostPrice:    decimal.NewFromInt(95),
		SellingPrice: decimal.NewFromInt(145),
		Stock:        decimal.NewFromInt(9),
		Version:      3,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.Version != 4 || updated.Name != "Renamed" {
		t.Fatalf("unexpected result: %+v", updated)
	}
	if updated.LastModifiedBy != "u-test" {
		t.Fatalf("modifier not stamped: %q", updated.LastModifiedBy)
	}

	items := queueItems(t, db)
	var productUpdates int
	for _, item := range items {
		if item.Type == models.SyncOpUpdateProduct && item.EntityId == "p-1" {
			productUpdates++
		}
	}
	if productUpdates != 1 {
		t.Fatalf("expected one queued product update, got %d (queue: %+v)", productUpdates, items)
	}
}

// The canonical merge shape: prices from the blocked local edit, stock from
// the stored copy, version past both sides.
func TestMergeResolutionKeepsLocalPricesRemoteStock(t *testing.T) {
	service, db := newTestService(t)
	stored := seedProduct(t, db, "p-1", 90, 140, 9, 3)
	clearQueue(t, db)

	local := stored
	local.CostPrice = decimal.NewFromInt(100)
	local.SellingPrice = decimal.NewFromInt(150)
	local.Stock = decimal.NewFromInt(5)
	local.Version = 2

	resolved, err := service.ResolveProductConflict(testCtx(), pos.ChoiceMerge, local, stored)
	if err != nil {
		t.Fatalf("ResolveProductConflict: %v", err)
	}
	requireDecimal(t, resolved.CostPrice, 100, "merged cost")
	requireDecimal(t, resolved.SellingPrice, 150, "merged selling price")
	requireDecimal(t, resolved.Stock, 9, "merged stock")
	if resolved.Version != 4 {
		t.Fatalf("merged version = %d, want 4", resolved.Version)
	}

	persisted, err := models.GetProduct(db, "p-1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if persisted.Version != 4 {
		t.Fatalf("merge not persisted: v%d", persisted.Version)
	}
	items := queueItems(t, db)
	found := false
	for _, item := range items {
		if item.Type == models.SyncOpUpdateProduct && item.EntityId == "p-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("resolution did not enqueue the winning record")
	}
}

func TestLocalResolutionWinsVersionRace(t *testing.T) {
	service, db := newTestService(t)
	stored := seedProduct(t, db, "p-1", 90, 140, 9, 3)

	local := stored
	local.SellingPrice = decimal.NewFromInt(150)
	local.Version = 2

	resolved, err := service.ResolveProductConflict(testCtx(), pos.ChoiceLocal, local, stored)
	if err != nil {
		t.Fatalf("ResolveProductConflict: %v", err)
	}
	requireDecimal(t, resolved.SellingPrice, 150, "resolved selling price")
	if resolved.Version != 4 {
		t.Fatalf("local choice must bump past both sides, got v%d", resolved.Version)
	}
}

func TestRemoteResolutionAdoptsStoredCopy(t *testing.T) {
	service, db := newTestService(t)
	stored := seedProduct(t, db, "p-1", 90, 140, 9, 3)

	local := stored
	local.SellingPrice = decimal.NewFromInt(150)
	local.Version = 2

	resolved, err := service.ResolveProductConflict(testCtx(), pos.ChoiceRemote, local, stored)
	if err != nil {
		t.Fatalf("ResolveProductConflict: %v", err)
	}
	requireDecimal(t, resolved.SellingPrice, 140, "resolved selling price")
	if resolved.Version != 3 {
		t.Fatalf("remote choice should keep the stored version, got v%d", resolved.Version)
	}
}

func TestResolveRejectsUnknownChoice(t *testing.T) {
	service, db := newTestService(t)
	stored := seedProduct(t, db, "p-1", 90, 140, 9, 3)

	if _, err := service.ResolveProductConflict(testCtx(), pos.ConflictChoice("newest"), stored, stored); err == nil {
		t.Fatalf("unknown choice must be rejected")
	}
}

func TestAdjustStockCannotGoNegative(t *testing.T) {
	service, db := newTestService(t)
	seedProduct(t, db, "p-1", 90, 140, 3, 1)
	clearQueue(t, db)

	_, err := service.AdjustStock(testCtx(), "p-1", decimal.NewFromInt(-5), "shrinkage")
	if err == nil {
		t.Fatalf("adjustment below zero must be rejected")
	}
	stored, _ := models.GetProduct(db, "p-1")
	requireDecimal(t, stored.Stock, 3, "stock after rejected adjustment")
	if items := queueItems(t, db); len(items) != 0 {
		t.Fatalf("rejected adjustment enqueued sync items")
	}
}

func TestReceiveStockAddsAndReprices(t *testing.T) {
	service, db := newTestService(t)
	seedProduct(t, db, "p-1", 90, 140, 3, 1)
	clearQueue(t, db)

	newCost := decimal.NewFromInt(95)
	updated, err := service.ReceiveStock(testCtx(), "p-1", decimal.NewFromInt(12), &newCost)
	if err != nil {
		t.Fatalf("ReceiveStock: %v", err)
	}
	requireDecimal(t, updated.Stock, 15, "stock after receive")
	requireDecimal(t, updated.CostPrice, 95, "cost after receive")
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}
}
