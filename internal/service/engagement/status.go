package engagement

import "strings"

// Carrier delivery states, as reported by status callbacks. "read" is
// WhatsApp-only; SMS never advances past delivered/undelivered/failed.
const (
	StatusQueued      = "queued"
	StatusAccepted    = "accepted"
	StatusSending     = "sending"
	StatusSent        = "sent"
	StatusDelivered   = "delivered"
	StatusUndelivered = "undelivered"
	StatusFailed      = "failed"
	StatusRead        = "read"
)

var knownStatuses = map[string]struct{}{
	StatusQueued:      {},
	StatusAccepted:    {},
	StatusSending:     {},
	StatusSent:        {},
	StatusDelivered:   {},
	StatusUndelivered: {},
	StatusFailed:      {},
	StatusRead:        {},
}

// NormalizeStatus lowercases a carrier-reported status and tags values
// outside the known vocabulary instead of dropping them, so new provider
// states remain visible in the ledger.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := knownStatuses[s]; ok {
		return s
	}
	return "unknown:" + s
}
