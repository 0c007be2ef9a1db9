package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProcessSale commits a checkout. Stock decrements, the sale row, and the
// sync queue items for both land in one transaction: either the drawer
// rang and sync will carry it upstream, or nothing happened at all.
func (s *Service) ProcessSale(ctx context.Context, input models.NewSale) (*models.Sale, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.PaymentMethod.Valid() {
		return nil, utils.NewValidationError("payment_method", "unknown payment method")
	}
	who := actorFromContext(ctx)

	var (
		sale    models.Sale
		touched []models.Product
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		items := make([]models.SaleItem, 0, len(input.Items))
		totalAmount := decimal.Zero
		totalCost := decimal.Zero
		touched = touched[:0]

		for _, line := range input.Items {
			if !line.Quantity.IsPositive() {
				return utils.NewValidationError("quantity", "must be positive")
			}
			product, err := models.GetProduct(tx, line.ProductId)
			if err != nil {
				return err
			}
			if product.Stock.LessThan(line.Quantity) {
				return utils.NewValidationError("items",
					fmt.Sprintf("insufficient stock for %q: have %s, need %s",
						product.Name, product.Stock.String(), line.Quantity.String()))
			}

			updated := *product
			updated.Stock = product.Stock.Sub(line.Quantity)
			updated.Version = product.Version + 1
			updated.LastModifiedBy = who.id
			updated.LastModifiedByName = who.name
			if err := models.Put(tx, &updated); err != nil {
				return err
			}
			if err := models.EnqueueSync(tx, models.SyncOpUpdateProduct, updated.ID, updated); err != nil {
				return err
			}
			touched = append(touched, updated)

			lineAmount := product.SellingPrice.Mul(line.Quantity)
			lineCost := product.CostPrice.Mul(line.Quantity)
			totalAmount = totalAmount.Add(lineAmount)
			totalCost = totalCost.Add(lineCost)
			items = append(items, models.SaleItem{
				ProductId: product.ID,
				Name:      product.Name,
				Quantity:  line.Quantity,
				UnitPrice: product.SellingPrice,
				UnitCost:  product.CostPrice,
			})
		}

		shiftId := ""
		if shift, err := models.OpenShiftFor(tx, who.id); err == nil && shift != nil {
			shiftId = shift.ID
		}

		sale = models.Sale{
			ID:                 utils.NewRecordId(),
			Items:              items,
			TotalAmount:        totalAmount,
			TotalCost:          totalCost,
			PaymentMethod:      input.PaymentMethod,
			CashierId:          who.id,
			CashierName:        who.name,
			ShiftId:            shiftId,
			Timestamp:          time.Now(),
			Version:            1,
			LastModifiedBy:     who.id,
			LastModifiedByName: who.name,
		}
		if err := models.Put(tx, &sale); err != nil {
			return err
		}
		return models.EnqueueSync(tx, models.SyncOpSale, sale.ID, sale)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "SALE", fmt.Sprintf("sale %s: %d line(s), total %s %s",
		sale.ID, len(sale.Items), sale.TotalAmount.String(), s.Settings().Currency))

	s.mu.Lock()
	s.sales = append([]models.Sale{sale}, s.sales...)
	s.mu.Unlock()

	for _, p := range touched {
		s.setProduct(p)
	}
	s.publish(Event{Kind: "sale", Record: sale})
	return &sale, nil
}
