package dispatch

import (
	"context"

	"github.com/drivelane/service-crm/internal/carrier"
	"github.com/drivelane/service-crm/internal/domain"
)

// CustomerReader resolves customers from the CRM store.
type CustomerReader interface {
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
}

// InsightReader resolves generated service-insight bundles.
type InsightReader interface {
	GetInsight(ctx context.Context, id int64) (*domain.ServiceInsight, error)
	LatestInsightForCustomer(ctx context.Context, customerID int64) (*domain.ServiceInsight, error)
}

// Ledger persists dispatch attempts, one table per channel.
type Ledger interface {
	CreateSMS(ctx context.Context, d *domain.SMSDispatch) error
	CreateWhatsApp(ctx context.Context, d *domain.WhatsAppDispatch) error

	// ReserveEmail inserts a pending email row and populates d.ID.
	ReserveEmail(ctx context.Context, d *domain.EmailDispatch) error
	// FinalizeEmail backfills the provider message id and rendered body
	// onto a reserved row and marks it sent.
	FinalizeEmail(ctx context.Context, id int64, messageID, body string) error
	// DiscardEmail removes a reserved row after a failed transport call.
	DiscardEmail(ctx context.Context, id int64) error

	ListSMSByCustomer(ctx context.Context, customerID int64) ([]domain.SMSDispatch, error)
	ListWhatsAppByCustomer(ctx context.Context, customerID int64) ([]domain.WhatsAppDispatch, error)
	ListEmailByCustomer(ctx context.Context, customerID int64) ([]domain.EmailDispatch, error)
}

// Carrier sends SMS and WhatsApp messages.
type Carrier interface {
	SendSMS(ctx context.Context, to, body string) (*carrier.Message, error)
	SendWhatsApp(ctx context.Context, to, body string) (*carrier.Message, error)
}

// EmailTransport sends an HTML email and returns the provider message id.
type EmailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// MessageComposer renders channel bodies from insight data.
type MessageComposer interface {
	TextMessage(ctx context.Context, customer *domain.Customer, insights domain.InsightBundle, trackingURL string) string
	EmailHTML(ctx context.Context, customer *domain.Customer, insights domain.InsightBundle, ctaURL, pixelURL string) string
	EmailSubject(customer *domain.Customer) string
}
