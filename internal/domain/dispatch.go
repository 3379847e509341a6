package domain

import "time"

// Channel identifies an outbound messaging channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether ch is one of the three supported channels.
func (ch Channel) Valid() bool {
	return ch == ChannelEmail || ch == ChannelSMS || ch == ChannelWhatsApp
}

// SMSDispatch is one outbound SMS attempt. MessageSid is the carrier's
// unique identifier and the join key for status webhooks.
type SMSDispatch struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	InsightID  *int64    `json:"insightId,omitempty"`
	SenderID   *int64    `json:"telecallerId,omitempty"`
	MessageSid string    `json:"messageSid"`
	Body       string    `json:"messageBody"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sentAt"`

	// SenderName is populated by list queries that join the sender table.
	SenderName string `json:"sentBy,omitempty"`
}

// WhatsAppDispatch is one outbound WhatsApp attempt. ReadAt is stamped by
// the carrier's "read" status callback, first transition only.
type WhatsAppDispatch struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customerId"`
	InsightID  *int64     `json:"insightId,omitempty"`
	SenderID   *int64     `json:"telecallerId,omitempty"`
	MessageSid string     `json:"messageSid"`
	Body       string     `json:"messageBody"`
	Status     string     `json:"status"`
	SentAt     time.Time  `json:"sentAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`

	SenderName string `json:"sentBy,omitempty"`
}

// EmailDispatch is one outbound email attempt. The row is reserved before
// the transport call (the tracking pixel URL embeds the row id) and
// finalized with the provider message id and body afterwards. A row with
// empty MessageID and status "pending" is an interrupted dispatch.
type EmailDispatch struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customerId"`
	InsightID  *int64     `json:"insightId,omitempty"`
	SenderID   *int64     `json:"sentById,omitempty"`
	MessageID  string     `json:"messageId,omitempty"`
	Body       string     `json:"emailBody,omitempty"`
	Status     string     `json:"status"`
	SentAt     time.Time  `json:"sentAt"`
	SeenAt     *time.Time `json:"seenAt,omitempty"`

	SenderName string `json:"sentBy,omitempty"`
}

// Dispatch statuses used on the synchronous send path. Webhook-reported
// statuses are normalized separately (see service/engagement).
const (
	StatusPending = "pending"
	StatusSent    = "sent"
)
