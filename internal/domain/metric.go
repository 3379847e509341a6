package domain

import "time"

// Link-open sources. WhatsApp read-state lives on the dispatch record,
// not here, because the carrier reports it directly.
const (
	SourceEmail = "email"
	SourceSMS   = "sms"
)

// ValidSource reports whether s is an accepted link-open source.
func ValidSource(s string) bool {
	return s == SourceEmail || s == SourceSMS
}

// SourceMetric is the per (customer, source) engagement counter. At most
// one row exists per pair; FirstOpenedAt is set once and never moves,
// LastOpenedAt advances on every open. Counting rows yields "customers
// who opened at least once" without per-message double counting.
type SourceMetric struct {
	CustomerID    int64     `json:"customerId"`
	Source        string    `json:"source"`
	OpenCount     int       `json:"openCount"`
	FirstOpenedAt time.Time `json:"firstOpenedAt"`
	LastOpenedAt  time.Time `json:"lastOpenedAt"`
}
