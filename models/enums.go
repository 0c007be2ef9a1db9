package models

// SyncOpType tags a queued mutation with the logical operation that produced
// it. The sync driver maps each type to a remote collection and action; the
// mapping lives in possync.TargetFor and must stay in step with this list.
type SyncOpType string

const (
	SyncOpSale           SyncOpType = "SALE"
	SyncOpAddProduct     SyncOpType = "ADD_PRODUCT"
	SyncOpUpdateProduct  SyncOpType = "UPDATE_PRODUCT"
	SyncOpAdjustStock    SyncOpType = "ADJUST_STOCK"
	SyncOpReceiveStock   SyncOpType = "RECEIVE_STOCK"
	SyncOpAddUser        SyncOpType = "ADD_USER"
	SyncOpUpdateUser     SyncOpType = "UPDATE_USER"
	SyncOpDeleteUser     SyncOpType = "DELETE_USER"
	SyncOpOpenShift      SyncOpType = "OPEN_SHIFT"
	SyncOpCloseShift     SyncOpType = "CLOSE_SHIFT"
	SyncOpLog            SyncOpType = "LOG"
	SyncOpUpdateSettings SyncOpType = "UPDATE_SETTINGS"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodMobile PaymentMethod = "MOBILE"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMobile, PaymentMethodCard, PaymentMethodCredit:
		return true
	}
	return false
}

// ShiftStatus is a two-state enum; OPEN -> CLOSED is one-way.
type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "OPEN"
	ShiftStatusClosed ShiftStatus = "CLOSED"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleCashier UserRole = "cashier"
)
