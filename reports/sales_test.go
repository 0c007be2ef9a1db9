package reports_test

import (
	"testing"
	"time"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/reports"
	"github.com/shopspring/decimal"
)

func TestSalesWorkbookLayout(t *testing.T) {
	settings := models.BusinessSettings{StoreName: "Corner Mart", Currency: "MMK"}
	sales := []models.Sale{
		{
			ID:            "s-1",
			CashierName:   "Aye Aye",
			PaymentMethod: models.PaymentMethodCash,
			TotalAmount:   decimal.NewFromInt(2800),
			TotalCost:     decimal.NewFromInt(1800),
			Timestamp:     time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
			Items: []models.SaleItem{
				{ProductId: "p-1", Name: "Water", Quantity: decimal.NewFromInt(2)},
			},
		},
	}

	book, err := reports.SalesWorkbook(sales, settings)
	if err != nil {
		t.Fatalf("SalesWorkbook: %v", err)
	}
	defer book.Close()

	title, err := book.GetCellValue("Sheet1", "A1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if title != "Corner Mart" {
		t.Fatalf("title = %q", title)
	}

	header, _ := book.GetCellValue("Sheet1", "A4")
	if header != "Date" {
		t.Fatalf("header row misplaced, A4 = %q", header)
	}

	id, _ := book.GetCellValue("Sheet1", "B5")
	if id != "s-1" {
		t.Fatalf("first data row B5 = %q", id)
	}
	total, _ := book.GetCellValue("Sheet1", "F5")
	if total != "2800.00" {
		t.Fatalf("total cell = %q", total)
	}
	profit, _ := book.GetCellValue("Sheet1", "H5")
	if profit != "1000.00" {
		t.Fatalf("profit cell = %q", profit)
	}
}
