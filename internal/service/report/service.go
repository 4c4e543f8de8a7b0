// Package report renders refueling exports.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
	"github.com/seu-repo/fuel-control/internal/service/dashboard"
)

const sheetName = "Refuelings"

var headers = []string{
	"Sequence", "Date", "Vehicle", "Plate", "Reading", "Kind",
	"Liters", "Unit price", "Total", "Distance", "Distance/L", "Cost/distance", "State",
}

type Service struct {
	refuelings ports.RefuelingRepository
	vehicles   ports.VehicleRepository
	location   *time.Location
	log        *zap.Logger
	now        func() time.Time
}

func NewService(refuelings ports.RefuelingRepository, vehicles ports.VehicleRepository, location *time.Location, log *zap.Logger) *Service {
	if location == nil {
		location = time.Local
	}
	return &Service{
		refuelings: refuelings,
		vehicles:   vehicles,
		location:   location,
		log:        log,
		now:        time.Now,
	}
}

// RefuelingWorkbook lists the filtered refuelings, one per row, followed by
// a summary of the confirmed ones.
func (s *Service) RefuelingWorkbook(ctx context.Context, filter domain.RefuelingFilter) ([]byte, error) {
	records, err := s.refuelings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list refuelings: %w", err)
	}
	names, err := s.vehicleNames(ctx, records)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	f.SetCellValue(sheetName, "A1", "Fuel refuelings")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Generated: %s", s.now().In(s.location).Format("2006-01-02 15:04:05")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	for col, label := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 4)
		f.SetCellValue(sheetName, cell, label)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	f.SetColWidth(sheetName, "A", "M", 16)

	for i, r := range records {
		row := i + 5
		values := []interface{}{
			r.SequenceNumber,
			r.Timestamp.In(s.location).Format("2006-01-02 15:04"),
			names[r.VehicleID],
			r.LicensePlate,
			r.GaugeReading,
			string(r.ReadingKind),
			r.Quantity,
			r.UnitPrice,
			r.TotalAmount,
			r.DistanceCovered,
			r.DistancePerLiter,
			r.CostPerDistance,
			string(r.State),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	confirmed := make([]domain.Refueling, 0, len(records))
	for _, r := range records {
		if r.State == domain.StateConfirmed {
			confirmed = append(confirmed, r)
		}
	}
	totals := dashboard.Totals(confirmed)

	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
	})
	summaryRow := len(records) + 7
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheetName, cell, "Summary (confirmed)")
	f.SetCellStyle(sheetName, cell, cell, summaryStyle)

	summary := []struct {
		label string
		value interface{}
	}{
		{"Refuelings", totals.Count},
		{"Liters", totals.Liters},
		{"Amount", totals.Amount},
		{"Distance", totals.Distance},
		{"Average distance/L", totals.AverageDistancePerLit},
		{"Average cost/distance", totals.AverageCostPerDist},
	}
	for i, item := range summary {
		keyCell, _ := excelize.CoordinatesToCellName(1, summaryRow+1+i)
		valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow+1+i)
		f.SetCellValue(sheetName, keyCell, item.label)
		f.SetCellValue(sheetName, valueCell, item.value)
	}

	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.log.Info("Refueling workbook generated",
		zap.Int("rows", len(records)),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func (s *Service) vehicleNames(ctx context.Context, records []domain.Refueling) (map[uint]string, error) {
	seen := make(map[uint]bool)
	ids := make([]uint, 0)
	for _, r := range records {
		if !seen[r.VehicleID] {
			seen[r.VehicleID] = true
			ids = append(ids, r.VehicleID)
		}
	}

	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	vehicles, err := s.vehicles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	for _, v := range vehicles {
		names[v.ID] = v.Name
	}
	return names, nil
}
