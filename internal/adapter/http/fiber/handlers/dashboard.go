package handlers

import (
	"bytes"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

type DashboardHandler struct {
	service  ports.DashboardService
	location *time.Location
	page     *template.Template
	log      *zap.Logger
}

func NewDashboardHandler(service ports.DashboardService, location *time.Location, log *zap.Logger) *DashboardHandler {
	if location == nil {
		location = time.Local
	}
	return &DashboardHandler{
		service:  service,
		location: location,
		page:     template.Must(template.New("dashboard").Funcs(templateFuncs).Parse(dashboardTemplate)),
		log:      log,
	}
}

// Data serves the summary as JSON.
func (h *DashboardHandler) Data(c *fiber.Ctx) error {
	query, err := h.query(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// Page renders the summary as a standalone HTML page.
func (h *DashboardHandler) Page(c *fiber.Ctx) error {
	query, err := h.query(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), query)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, summary); err != nil {
		h.log.Error("Failed to render dashboard", zap.Error(err))
		return err
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *DashboardHandler) query(c *fiber.Ctx) (domain.DashboardQuery, error) {
	var q domain.DashboardQuery

	from, err := queryDate(c, "from", h.location, false)
	if err != nil {
		return q, err
	}
	to, err := queryDate(c, "to", h.location, true)
	if err != nil {
		return q, err
	}
	if from != nil {
		q.From = *from
	}
	if to != nil {
		q.To = *to
	}
	if q.VehicleID, err = queryUint(c, "vehicle_id"); err != nil {
		return q, err
	}
	if q.DriverID, err = queryUint(c, "driver_id"); err != nil {
		return q, err
	}
	return q, nil
}

var templateFuncs = template.FuncMap{
	"liters": func(v float64) string { return formatFloat(v, 1) },
	"money":  func(v float64) string { return formatFloat(v, 2) },
	"ratio":  func(v float64) string { return formatFloat(v*100, 0) + "%" },
	"date": func(t time.Time) string {
		return t.Format("02/01/2006 15:04")
	},
}

const dashboardTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Fuel dashboard {{.PeriodLabel}}</title>
  <style>
    body { font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; margin: 32px; color: #1a1f36; background: #f7f9fc; }
    .card { background: #fff; padding: 24px; margin-bottom: 24px; border-radius: 4px; box-shadow: 0 2px 5px rgba(0,0,0,0.04); }
    .gauge { height: 24px; background: #e6e9ef; border-radius: 4px; overflow: hidden; }
    .gauge > div { height: 100%; }
    .bg-success { background: #28a745; }
    .bg-warning { background: #ffc107; }
    .bg-danger { background: #dc3545; }
    .bars { display: flex; align-items: flex-end; height: 120px; gap: 8px; }
    .bars div { flex: 1; background: #4472c4; }
    .labels { display: flex; gap: 8px; font-size: 12px; color: #8792a2; }
    .labels span { flex: 1; text-align: center; }
    table { width: 100%; border-collapse: collapse; }
    td, th { text-align: left; padding: 6px 8px; border-bottom: 1px solid #e6e9ef; }
  </style>
</head>
<body>
  <h1>Fuel dashboard <small>{{.PeriodLabel}}</small></h1>

  <div class="card">
    <h2>{{.Tank.Name}}</h2>
    <div class="gauge"><div class="bg-{{.Tank.ColorClass}}" style="width: {{.Tank.Percentage}}%"></div></div>
    <p>{{liters .Tank.Stock}} L of {{liters .Tank.Capacity}} L ({{liters .Tank.Percentage}}%, {{.Tank.Status}})</p>
  </div>

  <div class="card">
    <h2>Consumption</h2>
    <table>
      <tr><th>Refuelings</th><td>{{.Totals.Count}}</td></tr>
      <tr><th>Liters</th><td>{{liters .Totals.Liters}}</td></tr>
      <tr><th>Amount</th><td>{{money .Totals.Amount}}</td></tr>
      <tr><th>Distance</th><td>{{liters .Totals.Distance}}</td></tr>
      <tr><th>Average distance per liter</th><td>{{money .Totals.AverageDistancePerLit}}</td></tr>
      <tr><th>Average cost per distance</th><td>{{money .Totals.AverageCostPerDist}}</td></tr>
      <tr><th>Daily average</th><td>{{liters .Projection.DailyAverage}} L over {{.Projection.DaysElapsed}} days</td></tr>
      <tr><th>Days of stock left</th><td>{{.Projection.DaysRemaining}}</td></tr>
    </table>
  </div>

  <div class="card">
    <h2>Last 7 days</h2>
    <div class="bars">{{range .Daily}}<div style="height: {{.Height}}%" title="{{liters .Liters}} L"></div>{{end}}</div>
    <div class="labels">{{range .Daily}}<span>{{.Label}}</span>{{end}}</div>
  </div>

  {{with .LastRefueling}}
  <div class="card">
    <h2>Last refueling</h2>
    <p>{{.SequenceNumber}} on {{date .Timestamp}}: {{.VehicleName}} ({{.LicensePlate}}), {{liters .Quantity}} L, recorded by {{.RecorderName}}</p>
  </div>
  {{end}}

  <div class="card">
    <h2>Efficiency anomalies</h2>
    {{if .Anomalies}}
    <table>
      <tr><th>Vehicle</th><th>Refueling</th><th>Distance/L</th><th>Vehicle average</th><th>Ratio</th></tr>
      {{range .Anomalies}}
      <tr><td>{{.VehicleName}} {{.LicensePlate}}</td><td>{{.SequenceNumber}}</td><td>{{money .DistancePerLiter}}</td><td>{{money .VehicleAverage}}</td><td>{{ratio .Ratio}}</td></tr>
      {{end}}
    </table>
    {{else}}
    <p>No anomalies in this period.</p>
    {{end}}
  </div>

  <p><small>Generated {{date .GeneratedAt}}</small></p>
</body>
</html>`
