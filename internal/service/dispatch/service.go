package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drivelane/service-crm/internal/config"
	"github.com/drivelane/service-crm/internal/domain"
	"github.com/drivelane/service-crm/internal/pkg/logger"
)

// Service coordinates outbound notification sends across all channels.
type Service struct {
	customers CustomerReader
	insights  InsightReader
	ledger    Ledger
	carrier   Carrier
	mailer    EmailTransport
	composer  MessageComposer

	backendURL string
	now        func() time.Time
}

// NewService wires a dispatch service. backendURL is the externally
// reachable base for tracking endpoints, without a trailing slash.
func NewService(customers CustomerReader, insights InsightReader, ledger Ledger, car Carrier, mailer EmailTransport, composer MessageComposer, links config.LinksConfig) *Service {
	return &Service{
		customers:  customers,
		insights:   insights,
		ledger:     ledger,
		carrier:    car,
		mailer:     mailer,
		composer:   composer,
		backendURL: strings.TrimRight(links.BackendURL, "/"),
		now:        time.Now,
	}
}

// trackLinkURL is the click-through link for text channels. Opening it
// records a (customer, source) open and redirects to the insight view.
func (s *Service) trackLinkURL(customerID int64, source string) string {
	return fmt.Sprintf("%s/api/source-metrics/track/%d?source=%s", s.backendURL, customerID, source)
}

// pixelURL is the invisible image embedded in email bodies, keyed by the
// reserved ledger row id.
func (s *Service) pixelURL(emailID int64) string {
	return fmt.Sprintf("%s/api/email/track/%d", s.backendURL, emailID)
}

// SendSMS composes and sends an insight SMS to the customer's best
// phone number. With a nil insightID the customer's most recent bundle
// is used.
func (s *Service) SendSMS(ctx context.Context, customerID int64, insightID, senderID *int64) (*domain.SMSDispatch, error) {
	customer, insight, phone, err := s.textSendInputs(ctx, customerID, insightID)
	if err != nil {
		return nil, err
	}

	body := s.composer.TextMessage(ctx, customer, insight.Insights, s.trackLinkURL(customerID, domain.SourceSMS))

	msg, err := s.carrier.SendSMS(ctx, phone, body)
	if err != nil {
		return nil, &SendError{Channel: string(domain.ChannelSMS), Err: err}
	}

	d := &domain.SMSDispatch{
		CustomerID: customerID,
		InsightID:  &insight.ID,
		SenderID:   senderID,
		MessageSid: msg.Sid,
		Body:       body,
		Status:     domain.StatusSent,
		SentAt:     s.now().UTC(),
	}
	if err := s.ledger.CreateSMS(ctx, d); err != nil {
		// The message is already with the carrier; surface the ledger
		// failure but keep the sid in the log for reconciliation.
		log.Printf("[Dispatch] SMS sent but ledger write failed: sid=%s customer=%d err=%v", msg.Sid, customerID, err)
		return nil, fmt.Errorf("record sms dispatch: %w", err)
	}

	log.Printf("[Dispatch] SMS sent: sid=%s customer=%d to=%s", msg.Sid, customerID, logger.RedactPhone(phone))
	return d, nil
}

// SendWhatsApp composes and sends an insight WhatsApp message.
func (s *Service) SendWhatsApp(ctx context.Context, customerID int64, insightID, senderID *int64) (*domain.WhatsAppDispatch, error) {
	customer, insight, phone, err := s.textSendInputs(ctx, customerID, insightID)
	if err != nil {
		return nil, err
	}

	body := s.composer.TextMessage(ctx, customer, insight.Insights, s.trackLinkURL(customerID, domain.SourceSMS))

	msg, err := s.carrier.SendWhatsApp(ctx, phone, body)
	if err != nil {
		return nil, &SendError{Channel: string(domain.ChannelWhatsApp), Err: err}
	}

	d := &domain.WhatsAppDispatch{
		CustomerID: customerID,
		InsightID:  &insight.ID,
		SenderID:   senderID,
		MessageSid: msg.Sid,
		Body:       body,
		Status:     msg.Status,
		SentAt:     s.now().UTC(),
	}
	if d.Status == "" {
		d.Status = domain.StatusSent
	}
	if err := s.ledger.CreateWhatsApp(ctx, d); err != nil {
		log.Printf("[Dispatch] WhatsApp sent but ledger write failed: sid=%s customer=%d err=%v", msg.Sid, customerID, err)
		return nil, fmt.Errorf("record whatsapp dispatch: %w", err)
	}

	log.Printf("[Dispatch] WhatsApp sent: sid=%s customer=%d to=%s", msg.Sid, customerID, logger.RedactPhone(phone))
	return d, nil
}

// textSendInputs resolves the customer, an insight bundle, and a
// reachable phone number, in that order of failure precedence.
func (s *Service) textSendInputs(ctx context.Context, customerID int64, insightID *int64) (*domain.Customer, *domain.ServiceInsight, string, error) {
	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, "", err
	}
	var insight *domain.ServiceInsight
	if insightID != nil {
		insight, err = s.insights.GetInsight(ctx, *insightID)
	} else {
		insight, err = s.insights.LatestInsightForCustomer(ctx, customerID)
	}
	if err != nil {
		return nil, nil, "", err
	}
	phone := customer.BestPhone()
	if phone == "" {
		return nil, nil, "", ErrNoPhoneNumber
	}
	return customer, insight, phone, nil
}

// SendEmail sends the insight email for a specific insight bundle. The
// ledger row is reserved first so the tracking pixel can reference it,
// then finalized with the provider message id, or discarded on failure.
func (s *Service) SendEmail(ctx context.Context, insightID int64, senderID *int64) (*domain.EmailDispatch, error) {
	insight, err := s.insights.GetInsight(ctx, insightID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.GetCustomer(ctx, insight.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.Email == "" {
		return nil, ErrNoEmailAddress
	}

	d := &domain.EmailDispatch{
		CustomerID: customer.ID,
		InsightID:  &insight.ID,
		SenderID:   senderID,
		Status:     domain.StatusPending,
		SentAt:     s.now().UTC(),
	}
	if err := s.ledger.ReserveEmail(ctx, d); err != nil {
		return nil, fmt.Errorf("reserve email dispatch: %w", err)
	}

	html := s.composer.EmailHTML(ctx, customer, insight.Insights,
		s.trackLinkURL(customer.ID, domain.SourceEmail), s.pixelURL(d.ID))
	subject := s.composer.EmailSubject(customer)

	messageID, err := s.mailer.Send(ctx, customer.Email, subject, html)
	if err != nil {
		if derr := s.ledger.DiscardEmail(ctx, d.ID); derr != nil {
			log.Printf("[Dispatch] failed to discard reserved email row %d: %v", d.ID, derr)
		}
		return nil, &SendError{Channel: string(domain.ChannelEmail), Err: err}
	}

	if err := s.ledger.FinalizeEmail(ctx, d.ID, messageID, html); err != nil {
		log.Printf("[Dispatch] email sent but finalize failed: id=%d messageId=%s err=%v", d.ID, messageID, err)
		return nil, fmt.Errorf("finalize email dispatch: %w", err)
	}
	d.MessageID = messageID
	d.Body = html
	d.Status = domain.StatusSent

	log.Printf("[Dispatch] email sent: id=%d customer=%d to=%s", d.ID, customer.ID, logger.RedactEmail(customer.Email))
	return d, nil
}

// BulkItem is the outcome of one customer's send inside a bulk request.
type BulkItem struct {
	CustomerID int64  `json:"customerId"`
	Success    bool   `json:"success"`
	MessageSid string `json:"messageSid,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BulkResult summarizes a bulk send. Per-customer failures are isolated:
// one unreachable customer never aborts the rest of the batch. BatchID
// ties the response to the per-send log lines.
type BulkResult struct {
	BatchID    string     `json:"batchId"`
	Total      int        `json:"total"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	Results    []BulkItem `json:"results"`
}

// Recipient is one target of a bulk send.
type Recipient struct {
	CustomerID int64  `json:"customerId"`
	InsightID  *int64 `json:"insightId,omitempty"`
}

// SendBulkSMS sends to each recipient in order. Sends are sequential to
// keep carrier ordering predictable and rate pressure bounded.
func (s *Service) SendBulkSMS(ctx context.Context, recipients []Recipient, senderID *int64) *BulkResult {
	return s.sendBulk(ctx, recipients, func(ctx context.Context, rcpt Recipient) (string, error) {
		d, err := s.SendSMS(ctx, rcpt.CustomerID, rcpt.InsightID, senderID)
		if err != nil {
			return "", err
		}
		return d.MessageSid, nil
	})
}

// SendBulkWhatsApp sends a WhatsApp message to each recipient in order.
func (s *Service) SendBulkWhatsApp(ctx context.Context, recipients []Recipient, senderID *int64) *BulkResult {
	return s.sendBulk(ctx, recipients, func(ctx context.Context, rcpt Recipient) (string, error) {
		d, err := s.SendWhatsApp(ctx, rcpt.CustomerID, rcpt.InsightID, senderID)
		if err != nil {
			return "", err
		}
		return d.MessageSid, nil
	})
}

func (s *Service) sendBulk(ctx context.Context, recipients []Recipient, send func(context.Context, Recipient) (string, error)) *BulkResult {
	res := &BulkResult{
		BatchID: uuid.NewString(),
		Total:   len(recipients),
		Results: make([]BulkItem, 0, len(recipients)),
	}
	for _, rcpt := range recipients {
		sid, err := send(ctx, rcpt)
		item := BulkItem{CustomerID: rcpt.CustomerID, Success: err == nil, MessageSid: sid}
		if err != nil {
			item.Error = err.Error()
			res.Failed++
			log.Printf("[Dispatch] batch %s: customer %d failed: %v", res.BatchID, rcpt.CustomerID, err)
		} else {
			res.Successful++
		}
		res.Results = append(res.Results, item)
	}
	return res
}

// SMSLog returns the SMS dispatch history for a customer, newest first.
func (s *Service) SMSLog(ctx context.Context, customerID int64) ([]domain.SMSDispatch, error) {
	return s.ledger.ListSMSByCustomer(ctx, customerID)
}

// WhatsAppLog returns the WhatsApp dispatch history for a customer.
func (s *Service) WhatsAppLog(ctx context.Context, customerID int64) ([]domain.WhatsAppDispatch, error) {
	return s.ledger.ListWhatsAppByCustomer(ctx, customerID)
}

// EmailLog returns the email dispatch history for a customer.
func (s *Service) EmailLog(ctx context.Context, customerID int64) ([]domain.EmailDispatch, error) {
	return s.ledger.ListEmailByCustomer(ctx, customerID)
}
