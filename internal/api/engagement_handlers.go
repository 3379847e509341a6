package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/drivelane/service-crm/internal/pkg/httputil"
	"github.com/drivelane/service-crm/internal/service/engagement"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

// carrierAck is the response body carrier status callbacks expect.
const carrierAck = "<Response></Response>"

func ackCarrier(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(carrierAck))
}

// EmailPixel handles GET /api/email/track/{emailId}. The GIF is served
// unconditionally: a broken image in the customer's mail client is
// never an acceptable failure mode.
func (h *Handlers) EmailPixel(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(r, "emailId"); ok {
		if err := h.tracker.RecordEmailOpen(r.Context(), id); err != nil {
			log.Printf("[API] email open tracking failed for id %d: %v", id, err)
		}
	}
	servePixel(w)
}

// SMSWebhook handles POST /api/sms/webhook carrier status callbacks.
// The carrier retries non-2xx responses, so this always acknowledges.
func (h *Handlers) SMSWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Printf("[Webhook] unparseable SMS callback: %v", err)
		ackCarrier(w)
		return
	}
	sid := r.PostFormValue("MessageSid")
	status := r.PostFormValue("MessageStatus")
	if sid == "" {
		log.Printf("[Webhook] SMS callback without MessageSid, ignoring")
		ackCarrier(w)
		return
	}
	if err := h.ingest.RecordSMSStatus(r.Context(), sid, status); err != nil {
		log.Printf("[Webhook] SMS status update failed for %s: %v", sid, err)
	}
	ackCarrier(w)
}

// WhatsAppWebhook handles POST /api/whatsapp/webhook.
func (h *Handlers) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Printf("[Webhook] unparseable WhatsApp callback: %v", err)
		ackCarrier(w)
		return
	}
	sid := r.PostFormValue("MessageSid")
	status := r.PostFormValue("MessageStatus")
	if sid == "" {
		log.Printf("[Webhook] WhatsApp callback without MessageSid, ignoring")
		ackCarrier(w)
		return
	}
	if err := h.ingest.RecordWhatsAppStatus(r.Context(), sid, status); err != nil {
		log.Printf("[Webhook] WhatsApp status update failed for %s: %v", sid, err)
	}
	ackCarrier(w)
}

// TrackSourceOpen handles GET /api/source-metrics/track/{customerId}.
// Unlike the pixel endpoint, this one reports its outcome: 400 for a
// bad source, 404 for an unknown customer, otherwise the updated
// counter row.
func (h *Handlers) TrackSourceOpen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "customerId")
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	source := r.URL.Query().Get("source")
	metric, err := h.tracker.TrackOpen(r.Context(), id, source)
	if err != nil {
		switch {
		case errors.Is(err, engagement.ErrUnknownSource):
			httputil.BadRequest(w, `invalid source, must be "email" or "sms"`)
		case errors.Is(err, engagement.ErrUnknownCustomer):
			httputil.NotFound(w, "customer not found")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, metric)
}

// CustomerMetrics handles GET /api/source-metrics/customer/{customerId}.
func (h *Handlers) CustomerMetrics(w http.ResponseWriter, r *http.Request) {
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
	httputil.OK(w, eng.Metrics)
}
