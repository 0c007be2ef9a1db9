package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ConflictError is returned when a product edit was based on a stale
// version of the record. It carries both copies so the caller can put the
// choice in front of a human; nothing here is resolved automatically.
type ConflictError struct {
	Local  models.Product // the edit the caller tried to commit
	Remote models.Product // the copy currently stored
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on product %s: edit based on v%d but stored copy is v%d",
		e.Remote.ID, e.Local.Version, e.Remote.Version)
}

func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ConflictChoice names the three resolutions a user can pick.
type ConflictChoice string

const (
	ChoiceLocal  ConflictChoice = "local"
	ChoiceRemote ConflictChoice = "remote"
	ChoiceMerge  ConflictChoice = "merge"
)

func (c ConflictChoice) Valid() bool {
	switch c {
	case ChoiceLocal, ChoiceRemote, ChoiceMerge:
		return true
	}
	return false
}

func (s *Service) AddProduct(ctx context.Context, input models.NewProduct) (*models.Product, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	who := actorFromContext(ctx)

	product := models.Product{
		ID:                 utils.NewRecordId(),
		Name:               input.Name,
		Sku:                input.Sku,
		Barcode:            input.Barcode,
		CostPrice:          input.CostPrice,
		SellingPrice:       input.SellingPrice,
		Stock:              input.Stock,
		LowStockThreshold:  input.LowStockThreshold,
		Active:             utils.NewTrue(),
		Version:            1,
		LastModifiedBy:     who.id,
		LastModifiedByName: who.name,
	}
	if err := commitRecord(s, models.SyncOpAddProduct, product.ID, &product); err != nil {
		return nil, err
	}

	s.audit(ctx, "ADD_PRODUCT", fmt.Sprintf("added product %q", product.Name))
	s.setProduct(product)
	return &product, nil
}

// UpdateProduct applies a full-record edit with optimistic concurrency:
// the edit carries the version it was based on, and a stored copy that has
// moved past that version surfaces a ConflictError instead of being
// overwritten.
func (s *Service) UpdateProduct(ctx context.Context, input models.UpdateProductInput) (*models.Product, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	who := actorFromContext(ctx)

	stored, err := models.GetProduct(s.db, input.ID)
	if err != nil {
		return nil, err
	}

	if stored.Version > input.Version {
		attempted := *stored
		applyProductInput(&attempted, input, who)
		attempted.Version = input.Version
		return nil, &ConflictError{Local: attempted, Remote: *stored}
	}

	updated := *stored
	applyProductInput(&updated, input, who)
	updated.Version = stored.Version + 1

	if err := commitRecord(s, models.SyncOpUpdateProduct, updated.ID, &updated); err != nil {
		return nil, err
	}

	s.audit(ctx, "UPDATE_PRODUCT", fmt.Sprintf("updated product %q", updated.Name))
	s.setProduct(updated)
	return &updated, nil
}

// ResolveProductConflict commits the record a user picked out of a
// surfaced conflict. "local" keeps the blocked edit, "remote" adopts the
// stored copy verbatim, "merge" keeps local prices and remote stock. Local
// and merge bump the version past both inputs so the result wins upstream.
func (s *Service) ResolveProductConflict(ctx context.Context, choice ConflictChoice, local models.Product, remote models.Product) (*models.Product, error) {
	if !choice.Valid() {
		return nil, utils.NewValidationError("choice", "must be one of local, remote, merge")
	}
	if local.ID != remote.ID {
		return nil, utils.NewValidationError("id", "conflict sides describe different products")
	}
	who := actorFromContext(ctx)

	next := local.Version
	if remote.Version > next {
		next = remote.Version
	}
	next++

	var resolved models.Product
	switch choice {
	case ChoiceLocal:
		resolved = local
		resolved.Version = next
	case ChoiceRemote:
		resolved = remote
	case ChoiceMerge:
		resolved = local
		resolved.Stock = remote.Stock
		resolved.Version = next
	}
	resolved.LastModifiedBy = who.id
	resolved.LastModifiedByName = who.name

	if err := commitRecord(s, models.SyncOpUpdateProduct, resolved.ID, &resolved); err != nil {
		return nil, err
	}

	s.audit(ctx, "RESOLVE_CONFLICT", fmt.Sprintf("resolved conflict on product %q with %s", resolved.Name, choice))
	s.setProduct(resolved)
	return &resolved, nil
}

// AdjustStock applies a signed correction to on-hand stock, with a reason
// that lands in the audit trail.
func (s *Service) AdjustStock(ctx context.Context, productId string, delta decimal.Decimal, reason string) (*models.Product, error) {
	if reason == "" {
		return nil, utils.NewValidationError("reason", "is required")
	}
	who := actorFromContext(ctx)

	stored, err := models.GetProduct(s.db, productId)
	if err != nil {
		return nil, err
	}

	newStock := stored.Stock.Add(delta)
	if newStock.IsNegative() {
		return nil, utils.NewValidationError("delta", fmt.Sprintf("would take %q below zero stock", stored.Name))
	}

	updated := *stored
	updated.Stock = newStock
	updated.Version = stored.Version + 1
	updated.LastModifiedBy = who.id
	updated.LastModifiedByName = who.name

	if err := commitRecord(s, models.SyncOpAdjustStock, updated.ID, &updated); err != nil {
		return nil, err
	}

	s.audit(ctx, "ADJUST_STOCK", fmt.Sprintf("adjusted %q by %s: %s", updated.Name, delta.String(), reason))
	s.setProduct(updated)
	return &updated, nil
}

// ReceiveStock books an inbound delivery: quantity added to stock, with an
// optional replacement cost price.
func (s *Service) ReceiveStock(ctx context.Context, productId string, quantity decimal.Decimal, newCost *decimal.Decimal) (*models.Product, error) {
	if !quantity.IsPositive() {
		return nil, utils.NewValidationError("quantity", "must be positive")
	}
	who := actorFromContext(ctx)

	stored, err := models.GetProduct(s.db, productId)
	if err != nil {
		return nil, err
	}

	updated := *stored
	updated.Stock = stored.Stock.Add(quantity)
	if newCost != nil {
		updated.CostPrice = *newCost
	}
	updated.Version = stored.Version + 1
	updated.LastModifiedBy = who.id
	updated.LastModifiedByName = who.name

	if err := commitRecord(s, models.SyncOpReceiveStock, updated.ID, &updated); err != nil {
		return nil, err
	}

	s.audit(ctx, "RECEIVE_STOCK", fmt.Sprintf("received %s of %q", quantity.String(), updated.Name))
	s.setProduct(updated)
	return &updated, nil
}

func applyProductInput(p *models.Product, input models.UpdateProductInput, who actor) {
	p.Name = input.Name
	p.Sku = input.Sku
	p.Barcode = input.Barcode
	p.CostPrice = input.CostPrice
	p.SellingPrice = input.SellingPrice
	p.Stock = input.Stock
	p.LowStockThreshold = input.LowStockThreshold
	p.LastModifiedBy = who.id
	p.LastModifiedByName = who.name
	p.UpdatedAt = time.Now()
}

func (s *Service) setProduct(p models.Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()

	if p.LowOnStock() {
		s.logger.WithFields(logrus.Fields{
			"module":    "pos",
			"productId": p.ID,
			"stock":     p.Stock.String(),
		}).Warn("product low on stock: " + p.Name)
	}
	s.publish(Event{Kind: "product", Record: p})
}
