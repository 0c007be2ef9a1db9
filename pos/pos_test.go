package pos_test

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/pos"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// nullRemote satisfies the remote contract with an empty, always-healthy
// store. Action-layer tests never reach the network.
type nullRemote struct{}

func (nullRemote) Upsert(ctx context.Context, table, id string, record []byte) error { return nil }
func (nullRemote) Delete(ctx context.Context, table, id string) error                { return nil }
func (nullRemote) SelectAll(ctx context.Context, table string) ([]json.RawMessage, error) {
	return nil, nil
}
func (nullRemote) Ping(ctx context.Context) error { return nil }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pos_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := models.MigrateTables(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*pos.Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	service := pos.NewService(db, nullRemote{}, logger)
	if err := service.Bootstrap(context.Background(), false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return service, db
}

func testCtx() context.Context {
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, "u-test")
	ctx = utils.SetUserNameInContext(ctx, "Test Cashier")
	ctx = utils.SetUserRoleInContext(ctx, "admin")
	return ctx
}

func seedProduct(t *testing.T, db *gorm.DB, id string, cost, sell, stock int64, version int) models.Product {
	t.Helper()
	p := models.Product{
		ID:           id,
		Name:         "Product " + id,
		CostPrice:    decimal.NewFromInt(cost),
		SellingPrice: decimal.NewFromInt(sell),
		Stock:        decimal.NewFromInt(stock),
		Active:       utils.NewTrue(),
		Version:      version,
	}
	if err := models.Put(db, &p); err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
	return p
}

func clearQueue(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Where("1 = 1").Delete(&models.SyncQueueItem{}).Error; err != nil {
		t.Fatalf("clear queue: %v", err)
	}
}

func queueItems(t *testing.T, db *gorm.DB) []models.SyncQueueItem {
	t.Helper()
	items, err := models.PendingSyncItems(db)
	if err != nil {
		t.Fatalf("PendingSyncItems: %v", err)
	}
	return items
}

func requireDecimal(t *testing.T, got decimal.Decimal, want int64, label string) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s = %s, want %d", label, got.String(), want)
	}
}
