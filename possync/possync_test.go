package possync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

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

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type pushedCall struct {
	Table  string
	Id     string
	Delete bool
}

// fakeRemote records calls and fails on demand. failuresFor maps
// "table/id" to the number of times that record should error before
// succeeding; a negative count fails forever.
type fakeRemote struct {
	mu          sync.Mutex
	pushed      []pushedCall
	failuresFor map[string]int
	pingErr     error
	collections map[string][]json.RawMessage
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		failuresFor: make(map[string]int),
		collections: make(map[string][]json.RawMessage),
	}
}

func (f *fakeRemote) failThen(table, id string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failuresFor[table+"/"+id] = times
}

func (f *fakeRemote) Upsert(ctx context.Context, table string, id string, record []byte) error {
	return f.record(table, id, false)
}

func (f *fakeRemote) Delete(ctx context.Context, table string, id string) error {
	return f.record(table, id, true)
}

func (f *fakeRemote) record(table, id string, del bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := table + "/" + id
	if n, ok := f.failuresFor[key]; ok && n != 0 {
		if n > 0 {
			f.failuresFor[key] = n - 1
		}
		return fmt.Errorf("remote rejected %s", key)
	}
	f.pushed = append(f.pushed, pushedCall{Table: table, Id: id, Delete: del})
	return nil
}

func (f *fakeRemote) SelectAll(ctx context.Context, table string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collections[table], nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRemote) calls() []pushedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pushedCall, len(f.pushed))
	copy(out, f.pushed)
	return out
}

func (f *fakeRemote) setCollection(t *testing.T, table string, records ...any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	raws := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal fixture for %s: %v", table, err)
		}
		raws = append(raws, raw)
	}
	f.collections[table] = raws
}
