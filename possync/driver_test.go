package possync_test

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/possync"
	"gorm.io/gorm"
)

func newTestDriver(t *testing.T, remote *fakeRemote, online bool) (*possync.Driver, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	logger := testLogger()
	monitor := possync.NewMonitor(remote, logger, time.Minute)
	monitor.SetOnline(online)
	driver := possync.NewDriver(db, remote, monitor, logger)
	return driver, db
}

func TestDrainPushesInEnqueueOrder(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, true)

	for _, id := range []string{"p-1", "p-2", "p-3"} {
		if err := models.EnqueueSync(db, models.SyncOpUpdateProduct, id, map[string]string{"id": id}); err != nil {
			t.Fatalf("EnqueueSync %s: %v", id, err)
		}
	}

	stats := driver.DrainOnce(context.Background())
	if stats.Pushed != 3 || stats.Failed != 0 || stats.Dead != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	calls := remote.calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 remote calls, got %d", len(calls))
	}
	for i, want := range []string{"p-1", "p-2", "p-3"} {
		if calls[i].Table != "products" || calls[i].Id != want || calls[i].Delete {
			t.Fatalf("call %d out of order: %+v", i, calls[i])
		}
	}

	n, err := models.CountSyncQueue(db)
	if err != nil {
		t.Fatalf("CountSyncQueue: %v", err)
	}
	if n != 0 {
		t.Fatalf("queue should be empty after drain, has %d", n)
	}
}

func TestDrainIsNoOpWhileOffline(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, false)

	if err := models.EnqueueSync(db, models.SyncOpSale, "s-1", map[string]string{"id": "s-1"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}

	stats := driver.DrainOnce(context.Background())
	if stats.Pushed != 0 {
		t.Fatalf("offline drain pushed %d items", stats.Pushed)
	}
	if len(remote.calls()) != 0 {
		t.Fatalf("offline drain reached the remote store")
	}
	n, _ := models.CountSyncQueue(db)
	if n != 1 {
		t.Fatalf("offline drain should leave the queue intact, has %d", n)
	}
}

func TestFailedItemRetainedThenRetried(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, true)

	if err := models.EnqueueSync(db, models.SyncOpUpdateProduct, "p-1", map[string]string{"id": "p-1"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	remote.failThen("products", "p-1", 1)

	stats := driver.DrainOnce(context.Background())
	if stats.Failed != 1 || stats.Pushed != 0 {
		t.Fatalf("first drain: %+v", stats)
	}

	items, err := models.PendingSyncItems(db)
	if err != nil {
		t.Fatalf("PendingSyncItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("failed item must stay queued, queue has %d", len(items))
	}
	if items[0].Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", items[0].Attempts)
	}
	if items[0].LastError == "" {
		t.Fatalf("failure cause not recorded on the item")
	}

	// connectivity "restored": same item drains clean on the next cycle
	stats = driver.DrainOnce(context.Background())
	if stats.Pushed != 1 {
		t.Fatalf("second drain: %+v", stats)
	}
	n, _ := models.CountSyncQueue(db)
	if n != 0 {
		t.Fatalf("queue not empty after retry, has %d", n)
	}
}

func TestItemDeadLettersOnFifthFailure(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, true)

	if err := models.EnqueueSync(db, models.SyncOpSale, "s-poison", map[string]string{"id": "s-poison"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	remote.failThen("sales", "s-poison", -1)

	for i := 0; i < possync.DefaultMaxRetries-1; i++ {
		stats := driver.DrainOnce(context.Background())
		if stats.Failed != 1 || stats.Dead != 0 {
			t.Fatalf("drain %d: %+v", i+1, stats)
		}
	}

	stats := driver.DrainOnce(context.Background())
	if stats.Dead != 1 {
		t.Fatalf("final drain should quarantine: %+v", stats)
	}

	n, _ := models.CountSyncQueue(db)
	if n != 0 {
		t.Fatalf("poison item still on the queue")
	}
	dead, err := models.ListDeadLetters(db)
	if err != nil {
		t.Fatalf("ListDeadLetters: %v", err)
	}
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dead))
	}
	if dead[0].EntityId != "s-poison" || dead[0].Attempts != possync.DefaultMaxRetries {
		t.Fatalf("dead letter mismatch: %+v", dead[0])
	}

	// operator replay: requeued item gets a fresh budget and drains
	if err := models.RequeueDeadLetter(db, dead[0].ID); err != nil {
		t.Fatalf("RequeueDeadLetter: %v", err)
	}
	remote.failThen("sales", "s-poison", 0)
	stats = driver.DrainOnce(context.Background())
	if stats.Pushed != 1 {
		t.Fatalf("requeued item did not drain: %+v", stats)
	}
}

func TestOneBadItemDoesNotBlockTheQueue(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, true)

	if err := models.EnqueueSync(db, models.SyncOpUpdateProduct, "p-bad", map[string]string{"id": "p-bad"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	if err := models.EnqueueSync(db, models.SyncOpUpdateProduct, "p-good", map[string]string{"id": "p-good"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	remote.failThen("products", "p-bad", -1)

	stats := driver.DrainOnce(context.Background())
	if stats.Pushed != 1 || stats.Failed != 1 {
		t.Fatalf("drain: %+v", stats)
	}
	calls := remote.calls()
	if len(calls) != 1 || calls[0].Id != "p-good" {
		t.Fatalf("good item not pushed past the bad one: %+v", calls)
	}
}

func TestUnrecognizedTypeDroppedAsSuccess(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, true)

	if err := models.EnqueueSync(db, models.SyncOpType("SOMETHING_NEW"), "x-1", map[string]string{"id": "x-1"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}

	stats := driver.DrainOnce(context.Background())
	if stats.Pushed != 1 {
		t.Fatalf("unknown type should drain as success: %+v", stats)
	}
	if len(remote.calls()) != 0 {
		t.Fatalf("unknown type must not reach the remote store")
	}
	n, _ := models.CountSyncQueue(db)
	if n != 0 {
		t.Fatalf("unknown type left on the queue")
	}
}

func TestDeleteOpsMapToDeletes(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, true)

	if err := models.EnqueueSync(db, models.SyncOpDeleteUser, "u-1", map[string]string{"id": "u-1"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	if stats := driver.DrainOnce(context.Background()); stats.Pushed != 1 {
		t.Fatalf("drain: %+v", stats)
	}
	calls := remote.calls()
	if len(calls) != 1 || !calls[0].Delete || calls[0].Table != "users" {
		t.Fatalf("DELETE_USER should issue a users delete: %+v", calls)
	}
}

// busyLocker simulates another drain cycle holding the single-flight lock.
type busyLocker struct{}

func (busyLocker) TryAcquire(ctx context.Context) (func(), bool) { return nil, false }

func TestDrainSkipsWhenLockHeld(t *testing.T) {
	remote := newFakeRemote()
	driver, db := newTestDriver(t, remote, true)
	driver.UseLocker(busyLocker{})

	if err := models.EnqueueSync(db, models.SyncOpSale, "s-1", map[string]string{"id": "s-1"}); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	if stats := driver.DrainOnce(context.Background()); stats.Pushed != 0 {
		t.Fatalf("drain ran despite held lock: %+v", stats)
	}
	n, _ := models.CountSyncQueue(db)
	if n != 1 {
		t.Fatalf("queue disturbed while lock held")
	}
}
