package dashboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/seu-repo/fuel-control/internal/domain"
)

// MonthRange returns the first and last instant of the month containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return first, last
}

// PeriodLabel renders "October/2026".
func PeriodLabel(t time.Time) string {
	return fmt.Sprintf("%s/%d", t.Month().String(), t.Year())
}

// Totals sums the confirmed records of the period.
func Totals(records []domain.Refueling) domain.ConsumptionTotals {
	var out domain.ConsumptionTotals
	for _, r := range records {
		out.Liters += r.Quantity
		out.Amount += r.TotalAmount
		out.Distance += r.DistanceCovered
		out.Count++
	}
	if out.Liters > 0 {
		out.AverageDistancePerLit = out.Distance / out.Liters
	}
	if out.Distance > 0 {
		out.AverageCostPerDist = out.Amount / out.Distance
	}
	return out
}

// DaysElapsed counts calendar days from from to min(now, to), inclusive,
// and never returns less than one.
func DaysElapsed(from, to, now time.Time) int {
	end := to
	if now.Before(end) {
		end = now
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, from.Location())

	days := int(math.Round(end.Sub(start).Hours()/24)) + 1
	if days < 1 {
		return 1
	}
	return days
}

func Project(liters, stock float64, daysElapsed int) domain.Projection {
	if daysElapsed < 1 {
		daysElapsed = 1
	}
	p := domain.Projection{
		DaysElapsed:  daysElapsed,
		DailyAverage: liters / float64(daysElapsed),
	}
	if p.DailyAverage > 0 && stock > 0 {
		p.DaysRemaining = int(math.Floor(stock / p.DailyAverage))
	}
	return p
}

// DetectAnomalies flags, per vehicle with at least two records, the record
// whose distance-per-liter is furthest below ratio times the vehicle mean.
// The mean covers every record of the vehicle, zero-distance ones included.
// Results are ordered by ratio, lowest first, and capped at topN.
func DetectAnomalies(records []domain.Refueling, vehicles map[uint]domain.Vehicle, ratio float64, topN int) []domain.Anomaly {
	byVehicle := make(map[uint][]domain.Refueling)
	for _, r := range records {
		byVehicle[r.VehicleID] = append(byVehicle[r.VehicleID], r)
	}

	anomalies := make([]domain.Anomaly, 0)
	for vehicleID, list := range byVehicle {
		if len(list) < 2 {
			continue
		}

		var sum float64
		for _, r := range list {
			sum += r.DistancePerLiter
		}
		mean := sum / float64(len(list))
		if mean <= 0 {
			continue
		}

		var worst *domain.Anomaly
		for _, r := range list {
			dpl := r.DistancePerLiter
			if dpl <= 0 || dpl >= ratio*mean {
				continue
			}
			a := domain.Anomaly{
				VehicleID:        vehicleID,
				LicensePlate:     r.LicensePlate,
				RefuelingID:      r.ID,
				SequenceNumber:   r.SequenceNumber,
				DistancePerLiter: dpl,
				VehicleAverage:   mean,
				Ratio:            dpl / mean,
			}
			if worst == nil || a.Ratio < worst.Ratio {
				worst = &a
			}
		}
		if worst == nil {
			continue
		}
		if v, ok := vehicles[vehicleID]; ok {
			worst.VehicleName = v.Name
			if v.LicensePlate != "" {
				worst.LicensePlate = v.LicensePlate
			}
		}
		anomalies = append(anomalies, *worst)
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].Ratio != anomalies[j].Ratio {
			return anomalies[i].Ratio < anomalies[j].Ratio
		}
		return anomalies[i].VehicleID < anomalies[j].VehicleID
	})
	if topN > 0 && len(anomalies) > topN {
		anomalies = anomalies[:topN]
	}
	return anomalies
}

// DailySeries buckets records into the seven days ending on today. Bar
// height is relative to three times the average liters per refueling of
// the period, with a floor of 10 L.
func DailySeries(records []domain.Refueling, today time.Time, periodTotals domain.ConsumptionTotals) []domain.DailyPoint {
	loc := today.Location()
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

	points := make([]domain.DailyPoint, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		d := day.AddDate(0, 0, i-6)
		points[i] = domain.DailyPoint{Date: d, Label: d.Format("02/01")}
		index[d.Format("2006-01-02")] = i
	}

	for _, r := range records {
		if i, ok := index[r.Timestamp.In(loc).Format("2006-01-02")]; ok {
			points[i].Liters += r.Quantity
		}
	}

	if periodTotals.Count == 0 {
		return points
	}
	scale := math.Max(10, periodTotals.Liters/float64(periodTotals.Count)*3)
	for i := range points {
		points[i].Height = math.Min(100, points[i].Liters/scale*100)
	}
	return points
}

func Gauge(t *domain.Tank) domain.TankGauge {
	if t == nil {
		return domain.TankGauge{}
	}
	return domain.TankGauge{
		Name:       t.Name,
		Capacity:   t.Capacity,
		Stock:      t.CurrentStock,
		Percentage: t.FillPercentage,
		Status:     t.Status,
		ColorClass: t.Status.ColorClass(),
	}
}
