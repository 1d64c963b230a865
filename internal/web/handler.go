package web

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"workagent/internal/activity"
	"workagent/internal/config"
	"workagent/internal/models"
	"workagent/internal/reporter"
	"workagent/internal/tracker"
	"workagent/pkg/utils"
)

// Store is the read side of the delivery journal.
type Store interface {
	reporter.SummarySource
	GetRecentDeliveries(limit int) ([]*models.Delivery, error)
	GetLatestDelivery(kind string) (*models.Delivery, error)
}

type Handler struct {
	config    *config.Config
	state     *tracker.State
	watermark *activity.Watermark
	store     Store
	history   *reporter.History
	runID     string
	startedAt time.Time
}

// NewHandler wires the API. store may be nil when the journal is disabled;
// journal endpoints then answer 503.
func NewHandler(cfg *config.Config, state *tracker.State, wm *activity.Watermark, store Store, runID string) *Handler {
	h := &Handler{
		config:    cfg,
		state:     state,
		watermark: wm,
		store:     store,
		runID:     runID,
		startedAt: time.Now(),
	}
	if store != nil {
		h.history = reporter.NewHistory(store)
	}
	return h
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/pause", h.handlePause)
	mux.HandleFunc("/api/resume", h.handleResume)
	mux.HandleFunc("/api/deliveries", h.handleDeliveries)
	mux.HandleFunc("/api/summary", h.handleSummary)

	mux.HandleFunc("/health", h.handleHealth)

	mux.HandleFunc("/", h.handleIndex)
}

type statusResponse struct {
	Running          bool              `json:"running"`
	Paused           bool              `json:"paused"`
	Status           models.Status     `json:"status"`
	IdleSeconds      int64             `json:"idle_seconds"`
	LastActivity     time.Time         `json:"last_activity"`
	RunID            string            `json:"run_id"`
	Uptime           string            `json:"uptime"`
	Intervals        map[string]string `json:"intervals"`
	LastActivitySent *models.Delivery  `json:"last_activity_delivery,omitempty"`
	LastScreenshot   *models.Delivery  `json:"last_screenshot_delivery,omitempty"`
}

func (h *Handler) currentStatus() statusResponse {
	resp := statusResponse{
		Running:      h.state.IsRunning(),
		Paused:       h.state.IsPaused(),
		Status:       h.watermark.Status(h.config.Tracker.IdleThreshold),
		IdleSeconds:  int64(h.watermark.IdleFor() / time.Second),
		LastActivity: h.watermark.LastActivity(),
		RunID:        h.runID,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		Intervals: map[string]string{
			"activity":       h.config.Tracker.ActivityInterval.String(),
			"screenshot":     h.config.Tracker.ScreenshotInterval.String(),
			"idle_threshold": h.config.Tracker.IdleThreshold.String(),
		},
	}

	if h.store != nil {
		resp.LastActivitySent, _ = h.store.GetLatestDelivery(models.KindActivity)
		resp.LastScreenshot, _ = h.store.GetLatestDelivery(models.KindScreenshot)
	}
	return resp
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.currentStatus()

	if r.Header.Get("HX-Request") == "true" {
		h.respondStatusHTML(w, status)
		return
	}

	respondJSON(w, status)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *Handler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.state.IsPaused() != paused {
		h.state.SetPaused(paused)
		log.WithField("paused", paused).Info("Pause state changed via status API")
	}

	respondJSON(w, map[string]bool{"paused": h.state.IsPaused()})
}

func (h *Handler) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		http.Error(w, "Journal disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(l, 1000)
	}

	deliveries, err := h.store.GetRecentDeliveries(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch deliveries: %v", err), http.StatusInternalServerError)
		return
	}
	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}

	respondJSON(w, deliveries)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.history == nil {
		http.Error(w, "Journal disabled", http.StatusServiceUnavailable)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	history, err := h.history.Generate(periodType)
	if err != nil {
		if errors.Is(err, reporter.ErrInvalidPeriod) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get summary: %v", err), http.StatusInternalServerError)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondSummaryHTML(w, history)
		return
	}

	respondJSON(w, history)
}

func (h *Handler) respondStatusHTML(w http.ResponseWriter, s statusResponse) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	state := "Active"
	if s.Paused {
		state = "Paused"
	}

	fmt.Fprintf(w, `<div class="listing">
		<div class="row"><span>Tracking</span><span>%s</span></div>
		<div class="row"><span>User</span><span>%s</span></div>
		<div class="row"><span>Idle for</span><span>%s</span></div>
		<div class="row"><span>Uptime</span><span>%s</span></div>
	</div>`, state, s.Status, utils.FormatRoundedUnit(s.IdleSeconds), html.EscapeString(s.Uptime))
}

func (h *Handler) respondSummaryHTML(w http.ResponseWriter, history *models.History) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(history.Kinds) == 0 {
		w.Write([]byte(`<div class="loading">No deliveries yet</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, k := range history.Kinds {
		fmt.Fprintf(&b, `
		<div class="row">
			<span>%s</span>
			<span>%d ok / %d failed, %s</span>
		</div>`, html.EscapeString(k.Kind), k.Successes, k.Failures, humanize.Bytes(uint64(k.Bytes)))
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Success rate: %.1f%%</div>`, history.SuccessRate)

	w.Write([]byte(b.String()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Work Agent</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; padding: 20px; color: #333; }
        .box { background: white; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); padding: 24px; margin-bottom: 20px; max-width: 520px; }
        .row { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid #eee; }
        .total { margin-top: 12px; font-weight: 600; }
        .loading { color: #7f8c8d; font-style: italic; }
    </style>
</head>
<body>
    <div class="box">
        <h2>Status</h2>
        <div hx-get="/api/status" hx-trigger="load, every 10s" hx-swap="innerHTML">
            <div class="loading">Loading...</div>
        </div>
    </div>
    <div class="box">
        <h2>Today</h2>
        <div hx-get="/api/summary?period=today" hx-trigger="load, every 30s" hx-swap="innerHTML">
            <div class="loading">Loading...</div>
        </div>
    </div>
</body>
</html>`

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Error encoding JSON")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
