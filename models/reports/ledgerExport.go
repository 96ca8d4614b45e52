package reports

import (
	"io"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	LotsSheet         = "Acquisitions"
	ConsumptionsSheet = "Consumptions"

	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

var lotHeadings = []string{
	"ID", "ItemType", "QuantityAcquired", "QuantityRemaining", "AcquisitionRate", "Status", "AcquiredAt", "Remarks",
}

var consumptionHeadings = []string{
	"ID", "LotId", "QuantityConsumed", "ConsumptionRate", "ConsumedAt", "BatchCode", "Remarks",
}

type lotRow struct {
	lot *models.AcquisitionLot
}

func (r lotRow) GetCellValues() []interface{} {
	return []interface{}{
		r.lot.ID,
		string(r.lot.ItemType),
		r.lot.QuantityAcquired.InexactFloat64(),
		r.lot.QuantityRemaining.InexactFloat64(),
		r.lot.AcquisitionRate.InexactFloat64(),
		string(models.LotStatusOf(r.lot.QuantityRemaining)),
		r.lot.AcquiredAt.UTC().Format(time.RFC3339),
		r.lot.Remarks,
	}
}

type consumptionRow struct {
	record *models.ConsumptionRecord
}

func (r consumptionRow) GetCellValues() []interface{} {
	batchCode := ""
	if r.record.Batch != nil {
		batchCode = r.record.Batch.BatchCode
	}
	return []interface{}{
		r.record.ID,
		r.record.LotId,
		r.record.QuantityConsumed.InexactFloat64(),
		r.record.ConsumptionRate.InexactFloat64(),
		r.record.ConsumedAt.UTC().Format(time.RFC3339),
		batchCode,
		r.record.Remarks,
	}
}

// WriteLots writes one sheet with every lot and streams the workbook to w.
func WriteLots(w io.Writer, lots []*models.AcquisitionLot) error {
	rows := make([]ExcelExporter, 0, len(lots))
	for _, lot := range lots {
		rows = append(rows, lotRow{lot: lot})
	}
	return writeSheet(w, LotsSheet, lotHeadings, rows)
}

func WriteConsumptions(w io.Writer, records []*models.ConsumptionRecord) error {
	rows := make([]ExcelExporter, 0, len(records))
	for _, record := range records {
		rows = append(rows, consumptionRow{record: record})
	}
	return writeSheet(w, ConsumptionsSheet, consumptionHeadings, rows)
}

func writeSheet(w io.Writer, sheetName string, headings []string, data []ExcelExporter) error {
	f := excelize.NewFile()
	defer f.Close()

	// reuse the default sheet
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	rowNo := 2
	for _, d := range data {
		for i, value := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
		rowNo++
	}

	return f.Write(w)
}
