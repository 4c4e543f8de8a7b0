package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	TankStockLiters = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fuel_tank_stock_liters",
		Help: "Current stock of the tank in liters",
	}, []string{"tank"})

	TankFillPercentage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fuel_tank_fill_percentage",
		Help: "Fill percentage of the tank",
	}, []string{"tank"})

	LitersDispensedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fuel_liters_dispensed_total",
		Help: "Liters dispensed by confirmed refuelings",
	})

	LitersReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fuel_liters_received_total",
		Help: "Liters received by confirmed intakes",
	})

	WorkflowTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuel_workflow_transitions_total",
		Help: "State transitions applied to refuelings and intakes",
	}, []string{"entity", "action"})

	WorkflowRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuel_workflow_rejections_total",
		Help: "Workflow actions rejected by a business rule",
	}, []string{"entity", "reason"})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fuel_low_stock_alerts_total",
		Help: "Critical level alerts sent",
	})

	// Infrastructure metrics
	DashboardLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fuel_dashboard_latency_seconds",
		Help:    "Time spent building a dashboard summary",
		Buckets: prometheus.DefBuckets,
	})

	DashboardCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuel_dashboard_cache_total",
		Help: "Dashboard cache lookups",
	}, []string{"result"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuel_events_published_total",
		Help: "Domain events handed to the message queue",
	}, []string{"subject", "status"})
)

// RecordTank updates the stock gauges.
func RecordTank(name string, stock, percentage float64) {
	TankStockLiters.WithLabelValues(name).Set(stock)
	TankFillPercentage.WithLabelValues(name).Set(percentage)
}
