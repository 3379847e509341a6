// Package analytics builds cross-channel engagement reports from the
// per-channel delivery ledgers. The store answers single-channel
// questions with SQL; merging channels into unified views happens here.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/drivelane/service-crm/internal/domain"
)

// ErrUnknownChannel means the requested channel is not email, sms,
// whatsapp, or all.
var ErrUnknownChannel = errors.New("unknown analytics channel")

// ErrUnknownView means the requested view is not one of the four
// supported report shapes.
var ErrUnknownView = errors.New("unknown analytics view")

// ChannelAll selects every channel in a unified report.
const ChannelAll = "all"

// Supported report views.
const (
	ViewSummary    = "summary"
	ViewBySender   = "by-telecaller"
	ViewByCustomer = "by-customer"
	ViewTimeSeries = "time-series"
)

const (
	defaultPage  = 1
	defaultLimit = 50
	maxLimit     = 500
)

// Filter narrows an analytics query. Nil pointers and zero times mean
// unbounded.
type Filter struct {
	SenderID   *int64
	CustomerID *int64
	From       time.Time
	To         time.Time
}

// Store answers single-channel analytics queries against the ledgers.
// Every aggregate honors the filter in SQL so that filtered and
// unfiltered reports come from different result sets, not from
// post-processing.
type Store interface {
	ChannelSummary(ctx context.Context, ch domain.Channel, f Filter) (*ChannelSummary, error)
	SenderStats(ctx context.Context, ch domain.Channel, f Filter) ([]SenderStats, error)
	// CustomerRows returns per-customer numbers on one channel within
	// the filter; with a sender filter only that sender's messages count.
	CustomerRows(ctx context.Context, ch domain.Channel, f Filter) ([]CustomerChannelRow, error)
	// SeriesCounts buckets sends by interval, "day" or "month".
	SeriesCounts(ctx context.Context, ch domain.Channel, f Filter, interval string) ([]DayCount, error)

	RecentDispatches(ctx context.Context, ch domain.Channel, limit int) ([]RecentDispatch, error)

	SourceTotals(ctx context.Context) ([]SourceTotals, error)
	RecentOpens(ctx context.Context, limit int) ([]SourceOpenRow, error)
	MetricsBySource(ctx context.Context, source string) ([]SourceOpenRow, error)
	CustomerEvents(ctx context.Context, customerID int64) ([]TimelineEvent, error)
	CustomerMetrics(ctx context.Context, customerID int64) ([]domain.SourceMetric, error)
}

// SummaryCache caches rendered summary reports under a key that
// encodes the full filter set. A nil-safe no-op implementation is
// acceptable.
type SummaryCache interface {
	GetSummary(ctx context.Context, key string) (*SummaryReport, bool)
	SetSummary(ctx context.Context, key string, report *SummaryReport)
}

// Sort and bucketing options.
const (
	SortByCount    = "count"
	SortByDate     = "date"
	SortAscending  = "asc"
	SortDescending = "desc"
	GroupByDay     = "day"
	GroupByMonth   = "month"
)

// Query selects a unified-analytics report.
type Query struct {
	Channel    string
	View       string
	SenderID   *int64
	CustomerID *int64
	Page       int
	Limit      int
	From       time.Time
	To         time.Time
	SortBy     string
	SortOrder  string
	GroupBy    string
}

func (q *Query) normalize() error {
	if q.Channel == "" {
		q.Channel = ChannelAll
	}
	if q.Channel != ChannelAll && !domain.Channel(q.Channel).Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, q.Channel)
	}
	if q.View == "" {
		q.View = ViewSummary
	}
	switch q.View {
	case ViewSummary, ViewBySender, ViewByCustomer, ViewTimeSeries:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownView, q.View)
	}
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.SortBy != SortByDate {
		q.SortBy = SortByCount
	}
	if q.SortOrder != SortAscending {
		q.SortOrder = SortDescending
	}
	if q.GroupBy != GroupByMonth {
		q.GroupBy = GroupByDay
	}
	return nil
}

func (q *Query) filter() Filter {
	return Filter{SenderID: q.SenderID, CustomerID: q.CustomerID, From: q.From, To: q.To}
}

// summaryKey encodes every filter dimension, so a filtered report can
// never be served from an unfiltered cache entry.
func (q *Query) summaryKey() string {
	key := q.Channel
	if q.SenderID != nil {
		key += fmt.Sprintf(":t%d", *q.SenderID)
	}
	if q.CustomerID != nil {
		key += fmt.Sprintf(":c%d", *q.CustomerID)
	}
	if !q.From.IsZero() {
		key += ":f" + q.From.UTC().Format(time.RFC3339)
	}
	if !q.To.IsZero() {
		key += ":u" + q.To.UTC().Format(time.RFC3339)
	}
	return key
}

func (q *Query) channels() []domain.Channel {
	if q.Channel == ChannelAll {
		return []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelWhatsApp}
	}
	return []domain.Channel{domain.Channel(q.Channel)}
}

// Service produces unified analytics reports.
type Service struct {
	store Store
	cache SummaryCache
}

// NewService wires an analytics service. cache may be a no-op.
func NewService(store Store, cache SummaryCache) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	return &Service{store: store, cache: cache}
}

// Unified dispatches a query to the requested view. The result type
// depends on the view: *SummaryReport, []SenderReport, *CustomerPage,
// or []SeriesPoint.
func (s *Service) Unified(ctx context.Context, q Query) (interface{}, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}
	switch q.View {
	case ViewSummary:
		return s.Summary(ctx, q)
	case ViewBySender:
		return s.BySender(ctx, q)
	case ViewByCustomer:
		return s.ByCustomer(ctx, q)
	default:
		return s.TimeSeries(ctx, q)
	}
}

// Summary builds the summary view, serving from cache when possible.
func (s *Service) Summary(ctx context.Context, q Query) (*SummaryReport, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}
	key := q.summaryKey()
	if cached, ok := s.cache.GetSummary(ctx, key); ok {
		return cached, nil
	}

	report := &SummaryReport{
		Channel:  q.Channel,
		Channels: make(map[string]*ChannelSummary, 3),
	}
	for _, ch := range q.channels() {
		cs, err := s.store.ChannelSummary(ctx, ch, q.filter())
		if err != nil {
			return nil, fmt.Errorf("%s summary: %w", ch, err)
		}
		cs.Channel = string(ch)
		if cs.TotalSent > 0 {
			cs.OpenRate = round2(float64(channelEngaged(cs)) / float64(cs.TotalSent) * 100)
		}
		report.Channels[string(ch)] = cs
	}
	if q.Channel == ChannelAll {
		report.Combined = combineSummaries(report.Channels)
	}

	s.cache.SetSummary(ctx, key, report)
	return report, nil
}

func combineSummaries(channels map[string]*ChannelSummary) *ChannelSummary {
	combined := &ChannelSummary{Channel: ChannelAll}
	engaged := 0
	for _, cs := range channels {
		combined.TotalSent += cs.TotalSent
		combined.UniqueCustomers += cs.UniqueCustomers
		combined.Delivered += cs.Delivered
		combined.Opened += cs.Opened
		combined.Read += cs.Read
		combined.LinkOpens += cs.LinkOpens
		engaged += channelEngaged(cs)
	}
	if combined.TotalSent > 0 {
		combined.OpenRate = round2(float64(engaged) / float64(combined.TotalSent) * 100)
	}
	return combined
}

// channelEngaged picks each channel's primary engagement signal: pixel
// opens for email, read receipts for WhatsApp, link opens for SMS.
func channelEngaged(cs *ChannelSummary) int {
	switch cs.Channel {
	case string(domain.ChannelEmail):
		return cs.Opened
	case string(domain.ChannelWhatsApp):
		return cs.Read
	default:
		return cs.LinkOpens
	}
}

// BySender builds the per-sender view, sorted by total sent in the
// requested order (descending by default).
func (s *Service) BySender(ctx context.Context, q Query) ([]SenderReport, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	merged := make(map[int64]*SenderReport)
	for _, ch := range q.channels() {
		rows, err := s.store.SenderStats(ctx, ch, q.filter())
		if err != nil {
			return nil, fmt.Errorf("%s sender stats: %w", ch, err)
		}
		for _, row := range rows {
			rep, ok := merged[row.SenderID]
			if !ok {
				rep = &SenderReport{SenderID: row.SenderID, SenderName: row.SenderName}
				merged[row.SenderID] = rep
			}
			rep.TotalSent += row.Sent
			switch ch {
			case domain.ChannelEmail:
				rep.EmailSent += row.Sent
				rep.EmailOpened += row.Engaged
			case domain.ChannelSMS:
				rep.SMSSent += row.Sent
				rep.SMSDelivered += row.Engaged
			case domain.ChannelWhatsApp:
				rep.WhatsAppSent += row.Sent
				rep.WhatsAppDelivered += row.Engaged
			}
		}
	}

	out := make([]SenderReport, 0, len(merged))
	for _, rep := range merged {
		out = append(out, *rep)
	}
	asc := q.SortOrder == SortAscending
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSent != out[j].TotalSent {
			if asc {
				return out[i].TotalSent < out[j].TotalSent
			}
			return out[i].TotalSent > out[j].TotalSent
		}
		return out[i].SenderID < out[j].SenderID
	})
	return out, nil
}

// ByCustomer builds the paginated per-customer view. With a sender
// filter, only that sender's messages are counted.
func (s *Service) ByCustomer(ctx context.Context, q Query) (*CustomerPage, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	merged := make(map[int64]*CustomerReport)
	for _, ch := range q.channels() {
		rows, err := s.store.CustomerRows(ctx, ch, q.filter())
		if err != nil {
			return nil, fmt.Errorf("%s customer rows: %w", ch, err)
		}
		for _, row := range rows {
			rep, ok := merged[row.CustomerID]
			if !ok {
				rep = &CustomerReport{CustomerID: row.CustomerID, CustomerName: row.CustomerName}
				merged[row.CustomerID] = rep
			}
			switch ch {
			case domain.ChannelEmail:
				rep.EmailSent += row.Sent
			case domain.ChannelSMS:
				rep.SMSSent += row.Sent
			case domain.ChannelWhatsApp:
				rep.WhatsAppSent += row.Sent
			}
			rep.Engaged += row.Engaged
			if row.LastSentAt.After(rep.LastActivity) {
				rep.LastActivity = row.LastSentAt
			}
		}
	}

	all := make([]CustomerReport, 0, len(merged))
	for _, rep := range merged {
		all = append(all, *rep)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LastActivity.Equal(all[j].LastActivity) {
			return all[i].LastActivity.After(all[j].LastActivity)
		}
		return all[i].CustomerID < all[j].CustomerID
	})

	page := &CustomerPage{Page: q.Page, Limit: q.Limit, Total: len(all)}
	start := (q.Page - 1) * q.Limit
	if start < len(all) {
		end := start + q.Limit
		if end > len(all) {
			end = len(all)
		}
		page.Results = all[start:end]
	} else {
		page.Results = []CustomerReport{}
	}
	return page, nil
}

// TimeSeries builds the send-volume view, one point per day or month
// with per-channel counts merged on the date key.
func (s *Service) TimeSeries(ctx context.Context, q Query) ([]SeriesPoint, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	points := make(map[string]*SeriesPoint)
	for _, ch := range q.channels() {
		days, err := s.store.SeriesCounts(ctx, ch, q.filter(), q.GroupBy)
		if err != nil {
			return nil, fmt.Errorf("%s series counts: %w", ch, err)
		}
		for _, day := range days {
			p, ok := points[day.Day]
			if !ok {
				p = &SeriesPoint{Date: day.Day}
				points[day.Day] = p
			}
			switch ch {
			case domain.ChannelEmail:
				p.Email += day.Count
			case domain.ChannelSMS:
				p.SMS += day.Count
			case domain.ChannelWhatsApp:
				p.WhatsApp += day.Count
			}
			p.Total += day.Count
		}
	}

	out := make([]SeriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

const recentLimit = 10

// QuickChannel builds the lightweight per-channel dashboard view.
func (s *Service) QuickChannel(ctx context.Context, ch domain.Channel) (*QuickChannelReport, error) {
	cs, err := s.store.ChannelSummary(ctx, ch, Filter{})
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentDispatches(ctx, ch, recentLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []RecentDispatch{}
	}

	rep := &QuickChannelReport{
		Channel:      string(ch),
		TotalSent:    cs.TotalSent,
		Delivered:    cs.Delivered,
		Opened:       cs.Opened,
		Read:         cs.Read,
		DeliveryRate: "0%",
		Recent:       recent,
	}
	delivered := cs.Delivered
	if ch == domain.ChannelEmail {
		delivered = cs.Opened
	}
	if cs.TotalSent > 0 {
		rep.DeliveryRate = fmt.Sprintf("%.1f%%", float64(delivered)/float64(cs.TotalSent)*100)
	}
	return rep, nil
}

// SourceMetrics builds the link-open analytics view: per-source sends
// versus distinct openers, with the most recent opens.
func (s *Service) SourceMetrics(ctx context.Context) (*SourceMetricsReport, error) {
	totals, err := s.store.SourceTotals(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentOpens(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []SourceOpenRow{}
	}

	rep := &SourceMetricsReport{Sources: make([]SourceBreakdown, 0, 2), RecentOpens: recent}
	for _, source := range []string{domain.SourceEmail, domain.SourceSMS} {
		var t SourceTotals
		for _, row := range totals {
			if row.Source == source {
				t = row
				break
			}
		}
		cs, err := s.store.ChannelSummary(ctx, domain.Channel(source), Filter{})
		if err != nil {
			return nil, err
		}
		b := SourceBreakdown{
			Source:     source,
			Sent:       cs.UniqueCustomers,
			Opened:     t.UniqueCustomers,
			TotalOpens: t.TotalOpens,
			OpenRate:   "0%",
		}
		if b.NotOpened = b.Sent - b.Opened; b.NotOpened < 0 {
			b.NotOpened = 0
		}
		if b.Sent > 0 {
			b.OpenRate = fmt.Sprintf("%.1f%%", float64(b.Opened)/float64(b.Sent)*100)
		}
		if b.Opened > 0 {
			b.AvgPerOpener = round2(float64(b.TotalOpens) / float64(b.Opened))
		}
		rep.Sources = append(rep.Sources, b)
	}
	return rep, nil
}

// MetricsBySource lists the raw open counters for one source.
func (s *Service) MetricsBySource(ctx context.Context, source string) ([]SourceOpenRow, error) {
	if !domain.ValidSource(source) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, source)
	}
	rows, err := s.store.MetricsBySource(ctx, source)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []SourceOpenRow{}
	}
	return rows, nil
}

// CustomerEngagement returns one customer's full engagement history.
func (s *Service) CustomerEngagement(ctx context.Context, customerID int64) (*CustomerEngagement, error) {
	events, err := s.store.CustomerEvents(ctx, customerID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.store.CustomerMetrics(ctx, customerID)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].At.After(events[j].At) })
	if metrics == nil {
		metrics = []domain.SourceMetric{}
	}
	return &CustomerEngagement{CustomerID: customerID, Events: events, Metrics: metrics}, nil
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
