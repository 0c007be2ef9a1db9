package reports

import (
	"fmt"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// SalesWorkbook builds an xlsx export of the sales list: one row per sale
// with a summary block on top. Caller owns the returned file and must
// Close it.
func SalesWorkbook(sales []models.Sale, settings models.BusinessSettings) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(sheetName); err != nil {
		f.Close()
		return nil, err
	}

	totalAmount := decimal.Zero
	totalCost := decimal.Zero
	for _, s := range sales {
		totalAmount = totalAmount.Add(s.TotalAmount)
		totalCost = totalCost.Add(s.TotalCost)
	}

	f.SetCellValue(sheetName, "A1", settings.StoreName)
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("%d sales, total %s %s, profit %s %s",
		len(sales),
		totalAmount.StringFixed(2), settings.Currency,
		totalAmount.Sub(totalCost).StringFixed(2), settings.Currency))

	headings := []string{"Date", "SaleId", "Cashier", "Items", "Payment", "Total", "Cost", "Profit"}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 4)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	for i, s := range sales {
		row := i + 5
		itemCount := decimal.Zero
		for _, it := range s.Items {
			itemCount = itemCount.Add(it.Quantity)
		}
		values := []interface{}{
			s.Timestamp.Format("2006-01-02 15:04"),
			s.ID,
			s.CashierName,
			itemCount.String(),
			string(s.PaymentMethod),
			s.TotalAmount.StringFixed(2),
			s.TotalCost.StringFixed(2),
			s.TotalAmount.Sub(s.TotalCost).StringFixed(2),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, err
			}
			f.SetCellValue(sheetName, cell, v)
		}
	}

	return f, nil
}
