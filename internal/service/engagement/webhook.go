package engagement

import (
	"context"
	"log"
)

// StatusStore updates delivery state on ledger rows, keyed by the
// carrier message sid. The bool return reports whether a row matched.
type StatusStore interface {
	UpdateSMSStatus(ctx context.Context, messageSid, status string) (bool, error)
	// UpdateWhatsAppStatus also stamps read_at on the first transition
	// to read; later read callbacks leave the original timestamp.
	UpdateWhatsAppStatus(ctx context.Context, messageSid, status string, read bool) (bool, error)
}

// Ingest applies carrier status callbacks to the delivery ledger.
type Ingest struct {
	store StatusStore
}

// NewIngest creates a webhook ingest service.
func NewIngest(store StatusStore) *Ingest {
	return &Ingest{store: store}
}

// RecordSMSStatus applies an SMS status callback. Unknown sids are
// logged and dropped; the carrier gets a success response either way so
// it stops retrying.
func (i *Ingest) RecordSMSStatus(ctx context.Context, messageSid, rawStatus string) error {
	status := NormalizeStatus(rawStatus)
	matched, err := i.store.UpdateSMSStatus(ctx, messageSid, status)
	if err != nil {
		return err
	}
	if !matched {
		log.Printf("[Webhook] SMS status for unknown sid %s (status=%s), ignoring", messageSid, status)
		return nil
	}
	log.Printf("[Webhook] SMS %s -> %s", messageSid, status)
	return nil
}

// RecordWhatsAppStatus applies a WhatsApp status callback.
func (i *Ingest) RecordWhatsAppStatus(ctx context.Context, messageSid, rawStatus string) error {
	status := NormalizeStatus(rawStatus)
	matched, err := i.store.UpdateWhatsAppStatus(ctx, messageSid, status, status == StatusRead)
	if err != nil {
		return err
	}
	if !matched {
		log.Printf("[Webhook] WhatsApp status for unknown sid %s (status=%s), ignoring", messageSid, status)
		return nil
	}
	log.Printf("[Webhook] WhatsApp %s -> %s", messageSid, status)
	return nil
}
