package possync

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Snapshot is the merged state the reconciler hands to the action layer at
// boot. Sales and audit logs are sorted newest first for display.
type Snapshot struct {
	Users     []models.User
	Products  []models.Product
	Sales     []models.Sale
	Shifts    []models.Shift
	AuditLogs []models.AuditLog
	Settings  *models.BusinessSettings
	Seeded    bool
}

// Reconciler pulls authoritative snapshots per collection at startup (and on
// demand after a reconnect) and merges them with local state.
//
// Merge rules, per collection in fixed order:
//   - users, products: a non-empty remote set becomes the new truth outright.
//   - sales, shifts: remote records win for shared ids; local-only records
//     are kept (they are still queued for the driver to push, never
//     re-pushed here).
//
// Any network failure is logged and that collection falls back to
// local-only data; reconciliation never blocks startup.
type Reconciler struct {
	db     *gorm.DB
	remote RemoteStore
	logger *logrus.Logger
}

func NewReconciler(db *gorm.DB, remote RemoteStore, logger *logrus.Logger) *Reconciler {
	return &Reconciler{db: db, remote: remote, logger: logger}
}

func (r *Reconciler) Pull(ctx context.Context, online bool) (*Snapshot, error) {
	snap := &Snapshot{}

	localUsers, err := models.GetAllUsers(r.db)
	if err != nil {
		return nil, err
	}

	// First-ever run: seed from the built-in defaults so the till works
	// before it has ever reached the network.
	if len(localUsers) == 0 {
		if err := models.SeedDefaults(r.db); err != nil {
			return nil, err
		}
		snap.Seeded = true
		if localUsers, err = models.GetAllUsers(r.db); err != nil {
			return nil, err
		}
	}

	snap.Users = replaceCollection(r, ctx, online, "users", localUsers)

	localProducts, err := models.GetAllProducts(r.db)
	if err != nil {
		return nil, err
	}
	snap.Products = replaceCollection(r, ctx, online, "products", localProducts)

	localSales, err := models.GetAllSales(r.db)
	if err != nil {
		return nil, err
	}
	snap.Sales = mergeCollection(r, ctx, online, "sales", localSales, func(s models.Sale) string { return s.ID })

	localShifts, err := models.GetAllShifts(r.db)
	if err != nil {
		return nil, err
	}
	snap.Shifts = mergeCollection(r, ctx, online, "shifts", localShifts, func(s models.Shift) string { return s.ID })

	snap.AuditLogs, err = models.GetAllAuditLogs(r.db)
	if err != nil {
		return nil, err
	}

	snap.Settings, err = models.GetBusinessSettings(r.db)
	if err != nil {
		return nil, err
	}

	sort.Slice(snap.Sales, func(i, j int) bool {
		return snap.Sales[i].Timestamp.After(snap.Sales[j].Timestamp)
	})
	sort.Slice(snap.AuditLogs, func(i, j int) bool {
		return snap.AuditLogs[i].Timestamp.After(snap.AuditLogs[j].Timestamp)
	})

	return snap, nil
}

// replaceCollection applies the "remote fully replaces local" rule used for
// users and products: a non-empty remote set is the new truth, full stop.
func replaceCollection[T any](r *Reconciler, ctx context.Context, online bool, table string, local []T) []T {
	if !online {
		return local
	}
	remote, err := fetchAll[T](ctx, r, table)
	if err != nil {
		r.logPullFailure(table, err)
		return local
	}
	if len(remote) == 0 {
		return local
	}
	for i := range remote {
		if err := models.Put(r.db, &remote[i]); err != nil {
			r.logPullFailure(table, err)
			return local
		}
	}
	return remote
}

func mergeCollection[T any](r *Reconciler, ctx context.Context, online bool, table string, local []T, id func(T) string) []T {
	if !online {
		return local
	}
	remote, err := fetchAll[T](ctx, r, table)
	if err != nil {
		r.logPullFailure(table, err)
		return local
	}
	if len(remote) == 0 {
		return local
	}

	seen := make(map[string]bool, len(remote))
	for i := range remote {
		seen[id(remote[i])] = true
		if err := models.Put(r.db, &remote[i]); err != nil {
			r.logPullFailure(table, err)
			return local
		}
	}

	merged := remote
	for _, rec := range local {
		if !seen[id(rec)] {
			merged = append(merged, rec)
		}
	}
	return merged
}

func fetchAll[T any](ctx context.Context, r *Reconciler, table string) ([]T, error) {
	raws, err := r.remote.SelectAll(ctx, table)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raws))
	for _, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			r.logger.WithFields(logrus.Fields{
				"module": "possync",
				"table":  table,
			}).Warn("skipping malformed remote record: " + err.Error())
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *Reconciler) logPullFailure(table string, err error) {
	r.logger.WithFields(logrus.Fields{
		"module":   "possync",
		"funcName": "Pull",
		"table":    table,
	}).Warn("remote pull failed; using local data: " + err.Error())
}
