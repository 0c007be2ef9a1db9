package possync

import "github.com/mmdatafocus/pitix_pos/models"

type RemoteAction string

const (
	RemoteActionUpsert RemoteAction = "upsert"
	RemoteActionDelete RemoteAction = "delete"
)

// TargetFor maps a queued operation type to its remote collection and
// action. Unrecognized types report ok=false; the driver drains those as
// successes so a stale queue from an older build cannot wedge the terminal.
func TargetFor(op models.SyncOpType) (table string, action RemoteAction, ok bool) {
	switch op {
	case models.SyncOpSale:
		return "sales", RemoteActionUpsert, true
	case models.SyncOpAddProduct, models.SyncOpUpdateProduct, models.SyncOpAdjustStock, models.SyncOpReceiveStock:
		return "products", RemoteActionUpsert, true
	case models.SyncOpAddUser, models.SyncOpUpdateUser:
		return "users", RemoteActionUpsert, true
	case models.SyncOpDeleteUser:
		return "users", RemoteActionDelete, true
	case models.SyncOpOpenShift, models.SyncOpCloseShift:
		return "shifts", RemoteActionUpsert, true
	case models.SyncOpLog:
		return "audit_logs", RemoteActionUpsert, true
	case models.SyncOpUpdateSettings:
		return "business_settings", RemoteActionUpsert, true
	default:
		return "", "", false
	}
}
