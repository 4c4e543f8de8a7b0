package domain

import "time"

// DashboardQuery filters the managerial summary. Zero From/To default to
// the current month.
type DashboardQuery struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	VehicleID *uint     `json:"vehicle_id,omitempty"`
	DriverID  *uint     `json:"driver_id,omitempty"`
}

type TankGauge struct {
	Name       string     `json:"name"`
	Capacity   float64    `json:"capacity"`
	Stock      float64    `json:"stock"`
	Percentage float64    `json:"percentage"`
	Status     TankStatus `json:"status"`
	ColorClass string     `json:"color_class"`
}

type ConsumptionTotals struct {
	Liters                float64 `json:"liters"`
	Amount                float64 `json:"amount"`
	Count                 int     `json:"count"`
	Distance              float64 `json:"distance"`
	AverageDistancePerLit float64 `json:"average_distance_per_liter"`
	AverageCostPerDist    float64 `json:"average_cost_per_distance"`
}

type LastRefueling struct {
	ID             uint      `json:"id"`
	SequenceNumber string    `json:"sequence_number"`
	Timestamp      time.Time `json:"timestamp"`
	VehicleID      uint      `json:"vehicle_id"`
	VehicleName    string    `json:"vehicle_name"`
	LicensePlate   string    `json:"license_plate"`
	Quantity       float64   `json:"quantity"`
	RecorderID     uint      `json:"recorder_id"`
	RecorderName   string    `json:"recorder_name"`
}

type Projection struct {
	DaysElapsed   int     `json:"days_elapsed"`
	DailyAverage  float64 `json:"daily_average"`
	DaysRemaining int     `json:"days_remaining"`
}

// Anomaly flags a refueling whose distance-per-liter fell well below the
// vehicle's own average.
type Anomaly struct {
	VehicleID        uint    `json:"vehicle_id"`
	VehicleName      string  `json:"vehicle_name"`
	LicensePlate     string  `json:"license_plate"`
	RefuelingID      uint    `json:"refueling_id"`
	SequenceNumber   string  `json:"sequence_number"`
	DistancePerLiter float64 `json:"distance_per_liter"`
	VehicleAverage   float64 `json:"vehicle_average"`
	Ratio            float64 `json:"ratio"`
}

type DailyPoint struct {
	Date   time.Time `json:"date"`
	Label  string    `json:"label"`
	Liters float64   `json:"liters"`
	Height float64   `json:"height"`
}

type DashboardSummary struct {
	Tank          TankGauge         `json:"tank"`
	Totals        ConsumptionTotals `json:"totals"`
	LastRefueling *LastRefueling    `json:"last_refueling,omitempty"`
	Projection    Projection        `json:"projection"`
	Anomalies     []Anomaly         `json:"anomalies"`
	Daily         []DailyPoint      `json:"daily"`
	PeriodLabel   string            `json:"period_label"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Filter        DashboardQuery    `json:"filter"`
}
