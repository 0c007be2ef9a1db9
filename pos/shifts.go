package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/shopspring/decimal"
)

// OpenShift starts a drawer session for the signed-in cashier. A cashier
// holds at most one OPEN shift at a time.
func (s *Service) OpenShift(ctx context.Context, openingCash decimal.Decimal) (*models.Shift, error) {
	if openingCash.IsNegative() {
		return nil, utils.NewValidationError("opening_cash", "cannot be negative")
	}
	who := actorFromContext(ctx)
	if who.id == "" {
		return nil, utils.NewValidationError("cashier", "no signed-in user")
	}

	existing, err := models.OpenShiftFor(s.db, who.id)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, utils.NewValidationError("shift", "a shift is already open for this cashier")
	}

	shift := models.Shift{
		ID:                 utils.NewRecordId(),
		CashierId:          who.id,
		CashierName:        who.name,
		OpeningCash:        openingCash,
		Status:             models.ShiftStatusOpen,
		OpenedAt:           time.Now(),
		Version:            1,
		LastModifiedBy:     who.id,
		LastModifiedByName: who.name,
	}
	if err := commitRecord(s, models.SyncOpOpenShift, shift.ID, &shift); err != nil {
		return nil, err
	}

	s.audit(ctx, "OPEN_SHIFT", fmt.Sprintf("opened shift with %s in drawer", openingCash.String()))
	s.setShift(shift)
	return &shift, nil
}

// CloseShift ends the cashier's open session. Expected cash is the opening
// float plus every CASH sale rung since the shift opened; the counted
// closing figure sits next to it so variance is visible in reports.
func (s *Service) CloseShift(ctx context.Context, closingCash decimal.Decimal) (*models.Shift, error) {
	if closingCash.IsNegative() {
		return nil, utils.NewValidationError("closing_cash", "cannot be negative")
	}
	who := actorFromContext(ctx)

	shift, err := models.OpenShiftFor(s.db, who.id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewValidationError("shift", "no open shift for this cashier")
		}
		return nil, err
	}

	cashSales, err := models.CashSalesTotal(s.db, who.id, shift.OpenedAt)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	closed := *shift
	closed.ClosingCash = closingCash
	closed.ExpectedCash = shift.OpeningCash.Add(cashSales)
	closed.Status = models.ShiftStatusClosed
	closed.ClosedAt = &now
	closed.Version = shift.Version + 1
	closed.LastModifiedBy = who.id
	closed.LastModifiedByName = who.name

	if err := commitRecord(s, models.SyncOpCloseShift, closed.ID, &closed); err != nil {
		return nil, err
	}

	variance := closingCash.Sub(closed.ExpectedCash)
	s.audit(ctx, "CLOSE_SHIFT", fmt.Sprintf("closed shift: expected %s, counted %s, variance %s",
		closed.ExpectedCash.String(), closingCash.String(), variance.String()))
	s.setShift(closed)
	return &closed, nil
}

func (s *Service) setShift(sh models.Shift) {
	s.mu.Lock()
	s.shifts[sh.ID] = sh
	s.mu.Unlock()
	s.publish(Event{Kind: "shift", Record: sh})
}
