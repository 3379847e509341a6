package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/drivelane/service-crm/internal/domain"
	"github.com/drivelane/service-crm/internal/pkg/httputil"
	"github.com/drivelane/service-crm/internal/service/analytics"
	"github.com/drivelane/service-crm/internal/service/dispatch"
	"github.com/drivelane/service-crm/internal/service/engagement"
)

// senderHeader carries the operator identity set by the auth layer in
// front of this service. Absent header means a system-originated send.
const senderHeader = "X-Telecaller-ID"

// Handlers holds the service dependencies for all HTTP endpoints.
type Handlers struct {
	dispatch  *dispatch.Service
	ingest    *engagement.Ingest
	tracker   *engagement.Tracker
	analytics *analytics.Service
}

// NewHandlers creates the handler set.
func NewHandlers(d *dispatch.Service, ing *engagement.Ingest, tr *engagement.Tracker, an *analytics.Service) *Handlers {
	return &Handlers{dispatch: d, ingest: ing, tracker: tr, analytics: an}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// senderID extracts the operator id from the request header.
func senderID(r *http.Request) *int64 {
	raw := r.Header.Get(senderHeader)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("[API] ignoring malformed %s header: %q", senderHeader, raw)
		return nil
	}
	return &id
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// writeDispatchError maps service errors onto the response taxonomy.
func writeDispatchError(w http.ResponseWriter, err error) {
	var sendErr *dispatch.SendError
	switch {
	case errors.Is(err, dispatch.ErrCustomerNotFound),
		errors.Is(err, dispatch.ErrInsightNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, dispatch.ErrNoPhoneNumber),
		errors.Is(err, dispatch.ErrNoEmailAddress):
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &sendErr):
		log.Printf("[API] provider send failure: %v", err)
		httputil.Fail(w, http.StatusBadGateway, sendErr.Error())
	default:
		httputil.InternalError(w, err)
	}
}

type sendRequest struct {
	CustomerID int64  `json:"customerId"`
	InsightID  *int64 `json:"insightId,omitempty"`
}

type bulkSendRequest struct {
	Recipients []dispatch.Recipient `json:"recipients"`
}

// SendSMS handles POST /api/sms/send.
func (h *Handlers) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.CustomerID <= 0 {
		httputil.BadRequest(w, "customerId is required")
		return
	}
	d, err := h.dispatch.SendSMS(r.Context(), req.CustomerID, req.InsightID, senderID(r))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	httputil.OKMessage(w, "SMS sent successfully", d)
}

// SendBulkSMS handles POST /api/sms/send-bulk.
func (h *Handlers) SendBulkSMS(w http.ResponseWriter, r *http.Request) {
	var req bulkSendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Recipients) == 0 {
		httputil.BadRequest(w, "recipients is required")
		return
	}
	httputil.OK(w, h.dispatch.SendBulkSMS(r.Context(), req.Recipients, senderID(r)))
}

// SendWhatsApp handles POST /api/whatsapp/send.
func (h *Handlers) SendWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.CustomerID <= 0 {
		httputil.BadRequest(w, "customerId is required")
		return
	}
	d, err := h.dispatch.SendWhatsApp(r.Context(), req.CustomerID, req.InsightID, senderID(r))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	httputil.OKMessage(w, "WhatsApp message sent successfully", d)
}

// SendBulkWhatsApp handles POST /api/whatsapp/send-bulk.
func (h *Handlers) SendBulkWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req bulkSendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Recipients) == 0 {
		httputil.BadRequest(w, "recipients is required")
		return
	}
	httputil.OK(w, h.dispatch.SendBulkWhatsApp(r.Context(), req.Recipients, senderID(r)))
}

type sendEmailRequest struct {
	InsightID int64 `json:"insightId"`
}

// SendEmail handles POST /api/email/send.
func (h *Handlers) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.InsightID <= 0 {
		httputil.BadRequest(w, "insightId is required")
		return
	}
	d, err := h.dispatch.SendEmail(r.Context(), req.InsightID, senderID(r))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	httputil.OKMessage(w, "Email sent successfully", d)
}

// SMSLog handles GET /api/sms/logs/{customerId}.
func (h *Handlers) SMSLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "customerId")
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	rows, err := h.dispatch.SMSLog(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.SMSDispatch{}
	}
	httputil.OK(w, rows)
}

// WhatsAppLog handles GET /api/whatsapp/logs/{customerId}.
func (h *Handlers) WhatsAppLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "customerId")
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	rows, err := h.dispatch.WhatsAppLog(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.WhatsAppDispatch{}
	}
	httputil.OK(w, rows)
}

// EmailLog handles GET /api/email/logs/{customerId}.
func (h *Handlers) EmailLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "customerId")
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	rows, err := h.dispatch.EmailLog(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.EmailDispatch{}
	}
	httputil.OK(w, rows)
}
