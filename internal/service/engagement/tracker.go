package engagement

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/drivelane/service-crm/internal/domain"
)

var (
	// ErrUnknownSource means the source query value is not a tracked channel.
	ErrUnknownSource = errors.New("unknown tracking source")

	// ErrUnknownCustomer means the tracked customer id does not exist.
	ErrUnknownCustomer = errors.New("unknown customer")
)

// MetricStore persists engagement counters.
type MetricStore interface {
	// UpsertOpen records one open for (customerID, source): inserts the
	// row with count 1 on first open, otherwise increments the count and
	// advances last_opened_at. first_opened_at never moves.
	UpsertOpen(ctx context.Context, customerID int64, source string) (*domain.SourceMetric, error)

	// MarkEmailSeen stamps seen_at on an email ledger row, first hit
	// only. Returns false when no row matches.
	MarkEmailSeen(ctx context.Context, emailID int64) (bool, error)
}

// CustomerChecker verifies a customer id exists before counting opens
// against it.
type CustomerChecker interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
}

// Tracker records link opens and email pixel hits.
type Tracker struct {
	metrics   MetricStore
	customers CustomerChecker
}

// NewTracker creates an engagement tracker.
func NewTracker(metrics MetricStore, customers CustomerChecker) *Tracker {
	return &Tracker{metrics: metrics, customers: customers}
}

// TrackOpen records a link open for (customerID, source). Repeat opens
// by the same customer increment the counter on the same row; a second
// browser or device never creates a duplicate.
func (t *Tracker) TrackOpen(ctx context.Context, customerID int64, source string) (*domain.SourceMetric, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if !domain.ValidSource(source) {
		return nil, ErrUnknownSource
	}
	ok, err := t.customers.CustomerExists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownCustomer
	}

	metric, err := t.metrics.UpsertOpen(ctx, customerID, source)
	if err != nil {
		return nil, err
	}
	log.Printf("[Tracker] open recorded: customer=%d source=%s count=%d", customerID, source, metric.OpenCount)
	return metric, nil
}

// RecordEmailOpen marks an email as seen from its tracking-pixel hit.
// Unknown ids are a logged no-op: the pixel must render regardless.
func (t *Tracker) RecordEmailOpen(ctx context.Context, emailID int64) error {
	matched, err := t.metrics.MarkEmailSeen(ctx, emailID)
	if err != nil {
		return err
	}
	if !matched {
		log.Printf("[Tracker] pixel hit for unknown email id %d, ignoring", emailID)
	}
	return nil
}
