package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/drivelane/service-crm/internal/domain"
	"github.com/drivelane/service-crm/internal/pkg/httputil"
	"github.com/drivelane/service-crm/internal/service/analytics"
)

// unifiedResponse echoes the applied filters next to the view result
// so dashboard clients can render what they asked for.
type unifiedResponse struct {
	Filters unifiedFilters `json:"filters"`
	Result  interface{}    `json:"result"`
}

type unifiedFilters struct {
	Channel      string    `json:"channel"`
	View         string    `json:"view"`
	TelecallerID *int64    `json:"telecallerId,omitempty"`
	CustomerID   *int64    `json:"customerId,omitempty"`
	DateRange    dateRange `json:"dateRange"`
}

type dateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// UnifiedAnalytics handles GET /api/analytics/unified.
func (h *Handlers) UnifiedAnalytics(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := analytics.Query{
		Channel:   qs.Get("channel"),
		View:      qs.Get("view"),
		SortBy:    qs.Get("sortBy"),
		SortOrder: qs.Get("sortOrder"),
		GroupBy:   qs.Get("groupBy"),
	}
	if raw := qs.Get("telecallerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid telecallerId")
			return
		}
		q.SenderID = &id
	}
	if raw := qs.Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid customerId")
			return
		}
		q.CustomerID = &id
	}
	if raw := qs.Get("page"); raw != "" {
		q.Page, _ = strconv.Atoi(raw)
	}
	if raw := qs.Get("limit"); raw != "" {
		q.Limit, _ = strconv.Atoi(raw)
	}
	if raw := qs.Get("startDate"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.BadRequest(w, "invalid startDate, expected YYYY-MM-DD")
			return
		}
		q.From = ts
	}
	if raw := qs.Get("endDate"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.BadRequest(w, "invalid endDate, expected YYYY-MM-DD")
			return
		}
		// inclusive end date
		q.To = ts.AddDate(0, 0, 1)
	}

	result, err := h.analytics.Unified(r.Context(), q)
	if err != nil {
		if errors.Is(err, analytics.ErrUnknownChannel) || errors.Is(err, analytics.ErrUnknownView) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}

	filters := unifiedFilters{
		Channel:      qs.Get("channel"),
		View:         qs.Get("view"),
		TelecallerID: q.SenderID,
		CustomerID:   q.CustomerID,
		DateRange:    dateRange{Start: qs.Get("startDate"), End: qs.Get("endDate")},
	}
	if filters.Channel == "" {
		filters.Channel = analytics.ChannelAll
	}
	if filters.View == "" {
		filters.View = analytics.ViewSummary
	}
	httputil.OK(w, unifiedResponse{Filters: filters, Result: result})
}

// CustomerEngagement handles GET /api/analytics/customer/{customerId}.
func (h *Handlers) CustomerEngagement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "customerId")
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	eng, err := h.analytics.CustomerEngagement(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, eng)
}

// SMSAnalytics handles GET /api/sms/analytics.
func (h *Handlers) SMSAnalytics(w http.ResponseWriter, r *http.Request) {
	h.quickChannel(w, r, domain.ChannelSMS)
}

// WhatsAppAnalytics handles GET /api/whatsapp/analytics.
func (h *Handlers) WhatsAppAnalytics(w http.ResponseWriter, r *http.Request) {
	h.quickChannel(w, r, domain.ChannelWhatsApp)
}

func (h *Handlers) quickChannel(w http.ResponseWriter, r *http.Request, ch domain.Channel) {
	rep, err := h.analytics.QuickChannel(r.Context(), ch)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, rep)
}

// SourceMetricsAnalytics handles GET /api/source-metrics/analytics.
func (h *Handlers) SourceMetricsAnalytics(w http.ResponseWriter, r *http.Request) {
	rep, err := h.analytics.SourceMetrics(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, rep)
}

// MetricsBySource handles GET /api/source-metrics/by-source?source=.
func (h *Handlers) MetricsBySource(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	rows, err := h.analytics.MetricsBySource(r.Context(), source)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, rows)
}
