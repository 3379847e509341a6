package analytics

import (
	"time"

	"github.com/drivelane/service-crm/internal/domain"
)

// ChannelSummary aggregates one channel's delivery and engagement
// numbers. Fields are channel-dependent: Opened is the email pixel,
// Delivered and Read come from carrier callbacks, LinkOpens from the
// per-source open counters.
type ChannelSummary struct {
	Channel         string  `json:"channel"`
	TotalSent       int     `json:"totalSent"`
	UniqueCustomers int     `json:"uniqueCustomers"`
	Delivered       int     `json:"delivered,omitempty"`
	Opened          int     `json:"opened,omitempty"`
	Read            int     `json:"read,omitempty"`
	LinkOpens       int     `json:"linkOpens,omitempty"`
	OpenRate        float64 `json:"openRate"`
}

// SummaryReport is the summary view. For a single channel Channels holds
// one entry; for "all" it holds every channel plus a Combined roll-up.
//
// Combined.UniqueCustomers is the sum of per-channel uniques, not a
// cross-channel distinct: a customer reached on two channels counts
// twice. Deduplicating would need a cross-table distinct that the
// per-channel ledgers don't support cheaply.
type SummaryReport struct {
	Channel  string                     `json:"channel"`
	Channels map[string]*ChannelSummary `json:"channels"`
	Combined *ChannelSummary            `json:"combined,omitempty"`
}

// SenderStats is one sender's raw numbers on one channel, as the store
// reports them.
type SenderStats struct {
	SenderID   int64  `json:"telecallerId"`
	SenderName string `json:"telecallerName"`
	Sent       int    `json:"sent"`
	Engaged    int    `json:"engaged"`
}

// SenderReport is one sender's merged cross-channel row in the
// by-sender view.
type SenderReport struct {
	SenderID          int64  `json:"telecallerId"`
	SenderName        string `json:"telecallerName"`
	EmailSent         int    `json:"emailSent"`
	EmailOpened       int    `json:"emailOpened"`
	SMSSent           int    `json:"smsSent"`
	SMSDelivered      int    `json:"smsDelivered"`
	WhatsAppSent      int    `json:"whatsappSent"`
	WhatsAppDelivered int    `json:"whatsappDelivered"`
	TotalSent         int    `json:"totalSent"`
}

// CustomerChannelRow is one customer's raw numbers on one channel.
type CustomerChannelRow struct {
	CustomerID   int64     `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Sent         int       `json:"sent"`
	Engaged      int       `json:"engaged"`
	LastSentAt   time.Time `json:"lastSentAt"`
}

// CustomerReport is one customer's merged row in the by-customer view.
type CustomerReport struct {
	CustomerID   int64     `json:"customerId"`
	CustomerName string    `json:"customerName"`
	EmailSent    int       `json:"emailSent"`
	SMSSent      int       `json:"smsSent"`
	WhatsAppSent int       `json:"whatsappSent"`
	Engaged      int       `json:"engaged"`
	LastActivity time.Time `json:"lastActivity"`
}

// CustomerPage is a paginated by-customer view.
type CustomerPage struct {
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	Total   int              `json:"total"`
	Results []CustomerReport `json:"results"`
}

// DayCount is one day's send count on one channel.
type DayCount struct {
	Day   string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// SeriesPoint is one day in the merged time-series view.
type SeriesPoint struct {
	Date     string `json:"date"`
	Email    int    `json:"email"`
	SMS      int    `json:"sms"`
	WhatsApp int    `json:"whatsapp"`
	Total    int    `json:"total"`
}

// SourceTotals aggregates the link-open counters for one source.
type SourceTotals struct {
	Source          string  `json:"source"`
	TotalOpens      int     `json:"totalOpens"`
	UniqueCustomers int     `json:"uniqueCustomers"`
	AvgOpens        float64 `json:"avgOpensPerCustomer"`
}

// RecentDispatch is one row in a quick-analytics recent-message list.
type RecentDispatch struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Status       string    `json:"status"`
	SentAt       time.Time `json:"sentAt"`
}

// QuickChannelReport is the lightweight single-channel dashboard view.
type QuickChannelReport struct {
	Channel      string           `json:"channel"`
	TotalSent    int              `json:"totalSent"`
	Delivered    int              `json:"delivered,omitempty"`
	Opened       int              `json:"opened,omitempty"`
	Read         int              `json:"read,omitempty"`
	DeliveryRate string           `json:"deliveryRate"`
	Recent       []RecentDispatch `json:"recentMessages"`
}

// SourceOpenRow is one customer's open counter with the customer name
// joined in.
type SourceOpenRow struct {
	CustomerID   int64     `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Source       string    `json:"source"`
	OpenCount    int       `json:"openCount"`
	LastOpenedAt time.Time `json:"lastOpenedAt"`
}

// SourceBreakdown compares one source's sends against its opens.
type SourceBreakdown struct {
	Source        string  `json:"source"`
	Sent          int     `json:"sent"`
	Opened        int     `json:"opened"`
	NotOpened     int     `json:"notOpened"`
	OpenRate      string  `json:"openRate"`
	TotalOpens    int     `json:"totalOpens"`
	AvgPerOpener  float64 `json:"avgOpensPerOpener"`
}

// SourceMetricsReport is the link-open analytics view: per-source
// breakdowns plus the most recent opens.
type SourceMetricsReport struct {
	Sources     []SourceBreakdown `json:"sources"`
	RecentOpens []SourceOpenRow   `json:"recentOpens"`
}

// TimelineEvent is one entry in a customer's engagement history.
type TimelineEvent struct {
	Channel string    `json:"channel"`
	Kind    string    `json:"kind"` // sent, opened, read
	At      time.Time `json:"at"`
	Status  string    `json:"status,omitempty"`
}

// CustomerEngagement is the full per-customer engagement view: dispatch
// and engagement events newest first, plus the open counters.
type CustomerEngagement struct {
	CustomerID int64                 `json:"customerId"`
	Events     []TimelineEvent       `json:"events"`
	Metrics    []domain.SourceMetric `json:"metrics"`
}
