package possync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// DefaultMaxRetries is the per-item failure ceiling; the 5th failure
	// moves the item to the dead-letter table.
	DefaultMaxRetries = 5

	defaultDrainInterval = 5 * time.Second
	defaultCallTimeout   = 30 * time.Second
)

// DrainStats summarizes one drain cycle.
type DrainStats struct {
	Pushed int `json:"pushed"`
	Failed int `json:"failed"`
	Dead   int `json:"dead"`
}

// Driver drains the sync queue against the remote store: fixed interval,
// oldest first, one remote call per item, no early exit on failure.
type Driver struct {
	db      *gorm.DB
	remote  RemoteStore
	monitor *Monitor
	logger  *logrus.Logger
	locker  Locker

	interval    time.Duration
	callTimeout time.Duration
	maxRetries  int

	wake chan struct{}

	mu        sync.Mutex
	lastDrain time.Time
	lastStats DrainStats
}

func NewDriver(db *gorm.DB, remote RemoteStore, monitor *Monitor, logger *logrus.Logger) *Driver {
	return &Driver{
		db:          db,
		remote:      remote,
		monitor:     monitor,
		logger:      logger,
		locker:      NewProcessLocker(),
		interval:    utils.DurationFromEnvSeconds("POS_SYNC_INTERVAL_SECONDS", defaultDrainInterval),
		callTimeout: utils.DurationFromEnvSeconds("POS_REMOTE_TIMEOUT_SECONDS", defaultCallTimeout),
		maxRetries:  DefaultMaxRetries,
		wake:        make(chan struct{}, 1),
	}
}

// UseLocker swaps the single-flight guard; hosted store servers install a
// redislock-backed one so concurrent instances never double-drain.
func (d *Driver) UseLocker(l Locker) {
	if l != nil {
		d.locker = l
	}
}

// Wake requests an immediate drain cycle. Non-blocking; coalesces with any
// already-pending wake.
func (d *Driver) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled: one cycle per interval tick plus an
// immediate cycle whenever connectivity returns.
func (d *Driver) Run(ctx context.Context) {
	if d.monitor != nil {
		d.monitor.NotifyOnline(d.Wake)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DrainOnce(ctx)
		case <-d.wake:
			d.DrainOnce(ctx)
		}
	}
}

// DrainOnce runs a single drain cycle. A no-op while offline or while
// another cycle holds the single-flight lock.
func (d *Driver) DrainOnce(ctx context.Context) DrainStats {
	var stats DrainStats

	if d.monitor != nil && !d.monitor.Online() {
		return stats
	}

	release, ok := d.locker.TryAcquire(ctx)
	if !ok {
		return stats
	}
	defer release()

	items, err := models.PendingSyncItems(d.db)
	if err != nil {
		d.logger.WithFields(logrus.Fields{
			"module":   "possync",
			"funcName": "DrainOnce",
		}).Error("read sync queue: " + err.Error())
		return stats
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return stats
		default:
		}

		if item.Attempts >= d.maxRetries {
			d.quarantine(item, errors.New(item.LastError), &stats)
			continue
		}

		if err := d.pushItem(ctx, item); err != nil {
			attempts, aerr := models.RecordSyncFailure(d.db, item.Key, err)
			if aerr != nil {
				d.logger.WithFields(logrus.Fields{
					"module": "possync",
					"key":    item.Key,
				}).Error("record sync failure: " + aerr.Error())
				continue
			}
			d.logPushFailure(item, err, attempts)

			if attempts >= d.maxRetries {
				item.Attempts = attempts
				d.quarantine(item, err, &stats)
			} else {
				stats.Failed++
			}
			// One bad item must not block the rest of the queue.
			continue
		}

		if err := models.RemoveSyncItem(d.db, item.Key); err != nil {
			d.logger.WithFields(logrus.Fields{
				"module": "possync",
				"key":    item.Key,
			}).Error("remove pushed item: " + err.Error())
			continue
		}
		stats.Pushed++
	}

	d.mu.Lock()
	d.lastDrain = time.Now()
	d.lastStats = stats
	d.mu.Unlock()

	if stats.Pushed > 0 || stats.Failed > 0 || stats.Dead > 0 {
		d.logger.WithFields(logrus.Fields{
			"module": "possync",
			"pushed": stats.Pushed,
			"failed": stats.Failed,
			"dead":   stats.Dead,
		}).Info("drain cycle complete")
	}
	return stats
}

// LastDrain reports when the previous cycle finished and what it did.
func (d *Driver) LastDrain() (time.Time, DrainStats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastDrain, d.lastStats
}

func (d *Driver) pushItem(ctx context.Context, item models.SyncQueueItem) error {
	table, action, ok := TargetFor(item.Type)
	if !ok {
		d.logger.WithFields(logrus.Fields{
			"module": "possync",
			"type":   string(item.Type),
			"key":    item.Key,
		}).Warn("unrecognized sync type; dropping item")
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	if action == RemoteActionDelete {
		return d.remote.Delete(cctx, table, item.EntityId)
	}
	return d.remote.Upsert(cctx, table, item.EntityId, item.Payload)
}

func (d *Driver) quarantine(item models.SyncQueueItem, cause error, stats *DrainStats) {
	if err := models.MoveToDeadLetter(d.db, item, cause); err != nil {
		d.logger.WithFields(logrus.Fields{
			"module": "possync",
			"key":    item.Key,
		}).Error("move to dead letter: " + err.Error())
		return
	}
	stats.Dead++
	d.logger.WithFields(logrus.Fields{
		"module":   "possync",
		"key":      item.Key,
		"type":     string(item.Type),
		"entityId": item.EntityId,
		"attempts": item.Attempts,
	}).Error("sync item exceeded retry budget; moved to dead letter")
}

func (d *Driver) logPushFailure(item models.SyncQueueItem, err error, attempts int) {
	fields := logrus.Fields{
		"module":   "possync",
		"key":      item.Key,
		"type":     string(item.Type),
		"entityId": item.EntityId,
		"attempts": attempts,
	}
	var rerr *RemoteError
	if errors.As(err, &rerr) && rerr.SchemaMismatch() {
		fields["status"] = rerr.StatusCode
		fields["body"] = rerr.Body
		d.logger.WithFields(fields).Error("remote schema mismatch (column drift?); will retry")
		return
	}
	d.logger.WithFields(fields).Warn("push failed; will retry: " + err.Error())
}
