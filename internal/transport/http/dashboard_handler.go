package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "collectdash/internal/errors"
	"collectdash/internal/exporter"
	"collectdash/internal/middleware"
	"collectdash/internal/services"
	"collectdash/pkg/contracts/domain"
)

// DashboardHandler serves the aggregated tables and their exports.
type DashboardHandler struct {
	service      DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes. Callers mount them behind the session
// middleware; exports additionally require an admin role.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", h.GetDashboard)
		r.Get("/states", h.GetStates)
		r.Get("/agents", h.GetAgents)
		r.Get("/agents/rank", h.RankAgents)
		r.Get("/partials", h.GetPartials)
		r.Get("/feedback", h.GetFeedback)
		r.Get("/analytics", h.GetAnalytics)
		r.Get("/metrics", h.GetMetricNames)
		r.Post("/refresh", h.Refresh)
	})

	r.Route("/export", func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Get("/states.csv", h.ExportStates)
		r.Get("/agents.csv", h.ExportAgents)
		r.Get("/partials.csv", h.ExportPartials)
		r.Get("/feedback.csv", h.ExportFeedback)
		r.Get("/report.xlsx", h.ExportWorkbook)
	})
	return r
}

// Headline is the dashboard's top-line figure with its display strings.
type Headline struct {
	TotalCollected        float64 `json:"total_collected"`
	TotalCollectedDisplay string  `json:"total_collected_display"`
	RecordCount           int     `json:"record_count"`
	ConversionRate        float64 `json:"conversion_rate"`
	ConversionRateDisplay string  `json:"conversion_rate_display"`
}

// DashboardResponse is the full dashboard payload.
type DashboardResponse struct {
	Epoch      int64                    `json:"epoch"`
	ComputedAt time.Time                `json:"computed_at"`
	Headline   Headline                 `json:"headline"`
	Report     domain.CollectionsReport `json:"report"`
	Warnings   []domain.BatchWarning    `json:"warnings"`
	Agents     []string                 `json:"agents"`
}

func newHeadline(report domain.CollectionsReport) Headline {
	rate := report.States.Total.ConversionRate
	return Headline{
		TotalCollected:        report.TotalCollected,
		TotalCollectedDisplay: exporter.Currency(report.TotalCollected),
		RecordCount:           report.RecordCount,
		ConversionRate:        rate,
		ConversionRateDisplay: exporter.Percent(rate),
	}
}

// FeedbackRowView is a feedback row with its display amount.
type FeedbackRowView struct {
	domain.FeedbackRow
	AmountDisplay string `json:"amount_display"`
}

// FeedbackResponse is the feedback summary payload.
type FeedbackResponse struct {
	Rows []FeedbackRowView `json:"rows"`
}

func newFeedbackResponse(summary domain.FeedbackSummary) FeedbackResponse {
	rows := make([]FeedbackRowView, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		rows = append(rows, FeedbackRowView{
			FeedbackRow:   row,
			AmountDisplay: exporter.WholeCurrency(row.Amount),
		})
	}
	return FeedbackResponse{Rows: rows}
}

func newDashboardResponse(snap *domain.DashboardSnapshot) DashboardResponse {
	warnings := snap.Warnings
	if warnings == nil {
		warnings = []domain.BatchWarning{}
	}
	return DashboardResponse{
		Epoch:      snap.Epoch,
		ComputedAt: snap.ComputedAt,
		Headline:   newHeadline(snap.Report),
		Report:     snap.Report,
		Warnings:   warnings,
		Agents:     snap.Agents,
	}
}

// snapshot loads the current snapshot, writing the problem response on error.
func (h *DashboardHandler) snapshot(w http.ResponseWriter, r *http.Request) (*domain.DashboardSnapshot, bool) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "snapshot unavailable",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return snap, true
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, newDashboardResponse(snap))
}

// GetStates handles GET /api/dashboard/states
func (h *DashboardHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, snap.Report.States)
}

// GetAgents handles GET /api/dashboard/agents. The agent query parameter
// may be repeated or comma separated; without it every agent is returned.
func (h *DashboardHandler) GetAgents(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	table, err := services.FilterAgents(snap.Report.Agents, agentParams(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, table)
}

// RankAgents handles GET /api/dashboard/agents/rank
func (h *DashboardHandler) RankAgents(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	table, err := services.FilterAgents(snap.Report.Agents, agentParams(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	ranking, err := services.RankAgents(table, r.URL.Query().Get("metric"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, ranking)
}

// GetPartials handles GET /api/dashboard/partials
func (h *DashboardHandler) GetPartials(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, snap.Report.Partials)
}

// GetFeedback handles GET /api/dashboard/feedback
func (h *DashboardHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, newFeedbackResponse(snap.Report.Feedback))
}

// GetAnalytics handles GET /api/dashboard/analytics
func (h *DashboardHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	series, err := services.Analytics(snap.Report, r.URL.Query().Get("metric"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, series)
}

// GetMetricNames handles GET /api/dashboard/metrics
func (h *DashboardHandler) GetMetricNames(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string][]string{
		"rank":      services.RankMetrics(),
		"analytics": services.AnalyticsMetrics,
	})
}

// Refresh handles POST /api/dashboard/refresh
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Refresh(r.Context(), services.TriggerManual)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "dashboard refreshed on request",
		slog.Int64("epoch", snap.Epoch),
		slog.Int("warnings", len(snap.Warnings)))
	render.JSON(w, r, newDashboardResponse(snap))
}

// ExportStates handles GET /api/dashboard/export/states.csv
func (h *DashboardHandler) ExportStates(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, exporter.StatesFile, func(rep domain.CollectionsReport) exporter.Table {
		return exporter.StateMetricsTable(rep.States)
	})
}

// ExportAgents handles GET /api/dashboard/export/agents.csv
func (h *DashboardHandler) ExportAgents(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, exporter.AgentsFile, func(rep domain.CollectionsReport) exporter.Table {
		return exporter.AgentTotalsTable(rep.Agents)
	})
}

// ExportPartials handles GET /api/dashboard/export/partials.csv
func (h *DashboardHandler) ExportPartials(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, exporter.PartialsFile, func(rep domain.CollectionsReport) exporter.Table {
		return exporter.PartialsTable(rep.Partials)
	})
}

// ExportFeedback handles GET /api/dashboard/export/feedback.csv
func (h *DashboardHandler) ExportFeedback(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, exporter.FeedbackFile, func(rep domain.CollectionsReport) exporter.Table {
		return exporter.FeedbackTable(rep.Feedback)
	})
}

func (h *DashboardHandler) exportCSV(w http.ResponseWriter, r *http.Request, filename string, table func(domain.CollectionsReport) exporter.Table) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(filename))
	if err := exporter.EncodeCSV(w, table(snap.Report), exporter.WriteOptions{BOMPrefix: true}); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}
}

// ExportWorkbook handles GET /api/dashboard/export/report.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment("collections_report.xlsx"))
	if err := exporter.WriteWorkbook(w, snap.Report); err != nil {
		h.logger.ErrorContext(r.Context(), "workbook export failed",
			slog.String("error", err.Error()))
	}
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

// agentParams collects agent names from repeated or comma separated query
// values.
func agentParams(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["agent"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
