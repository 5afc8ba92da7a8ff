// Package export renders admin ledgers as Excel workbooks.
package export

import (
	"context"
	"fmt"
	"strings"

	"keramika/internal/database"
	"keramika/internal/models"

	"github.com/xuri/excelize/v2"
)

type Exporter struct {
	db *database.DB
}

func NewExporter(db *database.DB) *Exporter {
	return &Exporter{db: db}
}

// BookingsWorkbook builds an in-memory workbook of bookings within the
// inclusive date range, one row per booking with its occupied slots.
func (e *Exporter) BookingsWorkbook(ctx context.Context, startDate, endDate string) (*excelize.File, error) {
	bookings, err := e.db.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("error getting bookings: %w", err)
	}

	f := excelize.NewFile()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s", startDate, endDate))
	_ = f.MergeCell(sheetName, "A1", "H1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	headers := []string{"ID", "Customer", "Email", "Technique", "Participants", "Paid", "Status", "Slots"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, booking := range bookings {
		row := rowIdx + 3
		values := []interface{}{
			booking.ID,
			booking.CustomerName,
			booking.CustomerEmail,
			booking.Technique,
			booking.Participants,
			booking.IsPaid,
			booking.Status,
			formatSlots(booking.Slots),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "H", 20)
	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

// AuditWorkbook builds the giftcard audit trail workbook for one giftcard.
func (e *Exporter) AuditWorkbook(ctx context.Context, giftcardID int64) (*excelize.File, error) {
	entries, err := e.db.GetAuditEntries(ctx, giftcardID)
	if err != nil {
		return nil, fmt.Errorf("error getting audit entries: %w", err)
	}

	f := excelize.NewFile()

	sheetName := "Audit"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Action", "Amount", "Booking", "Metadata", "At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, entry := range entries {
		row := rowIdx + 2
		values := []interface{}{
			entry.ID,
			entry.Action,
			float64(entry.AmountCents) / 100,
			entry.BookingID,
			entry.Metadata,
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "F", 18)
	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

func formatSlots(slots []models.TimeSlot) string {
	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		parts = append(parts, slot.Date+" "+slot.Time)
	}
	return strings.Join(parts, ", ")
}
