package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivelane/service-crm/internal/domain"
)

type fakeStore struct {
	summaries map[domain.Channel]*ChannelSummary
	// filtered is returned by ChannelSummary whenever any filter
	// dimension is set, standing in for the narrower SQL result.
	filtered  map[domain.Channel]*ChannelSummary
	senders   map[domain.Channel][]SenderStats
	customers map[domain.Channel][]CustomerChannelRow
	days      map[domain.Channel][]DayCount
	months    map[domain.Channel][]DayCount
	sources   []SourceTotals
	recent    map[domain.Channel][]RecentDispatch
	opens     []SourceOpenRow
	events    []TimelineEvent
	metrics   []domain.SourceMetric

	summaryCalls int
	gotFilter    Filter
	gotInterval  string
}

func (f *fakeStore) ChannelSummary(_ context.Context, ch domain.Channel, flt Filter) (*ChannelSummary, error) {
	f.summaryCalls++
	f.gotFilter = flt
	src := f.summaries
	if flt != (Filter{}) && f.filtered != nil {
		src = f.filtered
	}
	if cs, ok := src[ch]; ok {
		cp := *cs
		return &cp, nil
	}
	return &ChannelSummary{}, nil
}

func (f *fakeStore) SenderStats(_ context.Context, ch domain.Channel, flt Filter) ([]SenderStats, error) {
	rows := f.senders[ch]
	if flt.SenderID == nil {
		return rows, nil
	}
	var out []SenderStats
	for _, row := range rows {
		if row.SenderID == *flt.SenderID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) CustomerRows(_ context.Context, ch domain.Channel, flt Filter) ([]CustomerChannelRow, error) {
	rows := f.customers[ch]
	if flt.SenderID == nil {
		return rows, nil
	}
	// sender filter halves the fixture set for testing
	if len(rows) > 1 {
		return rows[:1], nil
	}
	return rows, nil
}

func (f *fakeStore) SeriesCounts(_ context.Context, ch domain.Channel, flt Filter, interval string) ([]DayCount, error) {
	f.gotFilter = flt
	f.gotInterval = interval
	if interval == GroupByMonth {
		return f.months[ch], nil
	}
	return f.days[ch], nil
}

func (f *fakeStore) SourceTotals(_ context.Context) ([]SourceTotals, error) {
	return f.sources, nil
}

func (f *fakeStore) RecentDispatches(_ context.Context, ch domain.Channel, limit int) ([]RecentDispatch, error) {
	rows := f.recent[ch]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeStore) RecentOpens(_ context.Context, limit int) ([]SourceOpenRow, error) {
	rows := f.opens
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeStore) MetricsBySource(_ context.Context, source string) ([]SourceOpenRow, error) {
	var out []SourceOpenRow
	for _, row := range f.opens {
		if row.Source == source {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) CustomerEvents(_ context.Context, _ int64) ([]TimelineEvent, error) {
	return f.events, nil
}

func (f *fakeStore) CustomerMetrics(_ context.Context, _ int64) ([]domain.SourceMetric, error) {
	return f.metrics, nil
}

func fixtureStore() *fakeStore {
	day := func(d string) time.Time {
		ts, _ := time.Parse("2006-01-02", d)
		return ts
	}
	return &fakeStore{
		summaries: map[domain.Channel]*ChannelSummary{
			domain.ChannelEmail:    {TotalSent: 100, UniqueCustomers: 80, Opened: 25},
			domain.ChannelSMS:      {TotalSent: 200, UniqueCustomers: 150, Delivered: 180, LinkOpens: 40},
			domain.ChannelWhatsApp: {TotalSent: 50, UniqueCustomers: 45, Delivered: 48, Read: 30},
		},
		senders: map[domain.Channel][]SenderStats{
			domain.ChannelEmail: {
				{SenderID: 1, SenderName: "Asha", Sent: 60, Engaged: 20},
			},
			domain.ChannelSMS: {
				{SenderID: 1, SenderName: "Asha", Sent: 30, Engaged: 28},
				{SenderID: 2, SenderName: "Ravi", Sent: 170, Engaged: 150},
			},
		},
		customers: map[domain.Channel][]CustomerChannelRow{
			domain.ChannelEmail: {
				{CustomerID: 10, CustomerName: "Kiran", Sent: 2, Engaged: 1, LastSentAt: day("2026-08-10")},
				{CustomerID: 11, CustomerName: "Leela", Sent: 1, LastSentAt: day("2026-08-01")},
			},
			domain.ChannelSMS: {
				{CustomerID: 10, CustomerName: "Kiran", Sent: 3, Engaged: 2, LastSentAt: day("2026-08-15")},
			},
		},
		days: map[domain.Channel][]DayCount{
			domain.ChannelEmail: {{Day: "2026-08-10", Count: 5}},
			domain.ChannelSMS:   {{Day: "2026-08-10", Count: 7}, {Day: "2026-08-11", Count: 2}},
		},
	}
}

func TestSummarySingleChannel(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	rep, err := svc.Summary(context.Background(), Query{Channel: "email", View: ViewSummary})
	require.NoError(t, err)

	assert.Equal(t, "email", rep.Channel)
	require.Contains(t, rep.Channels, "email")
	assert.Nil(t, rep.Combined)
	assert.Equal(t, 100, rep.Channels["email"].TotalSent)
	assert.Equal(t, 25.0, rep.Channels["email"].OpenRate)
}

func TestSummaryAllChannelsCombined(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	rep, err := svc.Summary(context.Background(), Query{Channel: ChannelAll})
	require.NoError(t, err)

	require.NotNil(t, rep.Combined)
	assert.Equal(t, 350, rep.Combined.TotalSent)
	// per-channel uniques are summed, not deduplicated across channels
	assert.Equal(t, 275, rep.Combined.UniqueCustomers)
	// engaged = email opened 25 + sms link opens 40 + whatsapp read 30
	assert.InDelta(t, float64(95)/350*100, rep.Combined.OpenRate, 0.01)
}

func TestSummaryAppliesFilters(t *testing.T) {
	store := fixtureStore()
	store.filtered = map[domain.Channel]*ChannelSummary{
		domain.ChannelSMS: {TotalSent: 30, UniqueCustomers: 25, Delivered: 28, LinkOpens: 5},
	}
	svc := NewService(store, nil)

	sender := int64(7)
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	rep, err := svc.Summary(context.Background(), Query{Channel: "sms", SenderID: &sender, From: from, To: to})
	require.NoError(t, err)

	assert.Equal(t, 30, rep.Channels["sms"].TotalSent, "filtered summary must differ from the global one")
	require.NotNil(t, store.gotFilter.SenderID)
	assert.Equal(t, sender, *store.gotFilter.SenderID)
	assert.Equal(t, from, store.gotFilter.From)
	assert.Equal(t, to, store.gotFilter.To)

	unfiltered, err := svc.Summary(context.Background(), Query{Channel: "sms"})
	require.NoError(t, err)
	assert.Equal(t, 200, unfiltered.Channels["sms"].TotalSent)
}

func TestSummaryCacheKeyedByFilters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := fixtureStore()
	store.filtered = map[domain.Channel]*ChannelSummary{
		domain.ChannelSMS: {TotalSent: 30},
	}
	svc := NewService(store, NewRedisCache(client, time.Minute))

	_, err := svc.Summary(context.Background(), Query{Channel: "sms"})
	require.NoError(t, err)
	calls := store.summaryCalls

	sender := int64(7)
	rep, err := svc.Summary(context.Background(), Query{Channel: "sms", SenderID: &sender})
	require.NoError(t, err)
	assert.Greater(t, store.summaryCalls, calls, "filtered query must not reuse the unfiltered cache entry")
	assert.Equal(t, 30, rep.Channels["sms"].TotalSent)

	calls = store.summaryCalls
	_, err = svc.Summary(context.Background(), Query{Channel: "sms", SenderID: &sender})
	require.NoError(t, err)
	assert.Equal(t, calls, store.summaryCalls, "identical filtered query must hit the cache")
}

func TestSummaryRejectsUnknownChannel(t *testing.T) {
	svc := NewService(fixtureStore(), nil)
	_, err := svc.Summary(context.Background(), Query{Channel: "pigeon"})
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestUnifiedRejectsUnknownView(t *testing.T) {
	svc := NewService(fixtureStore(), nil)
	_, err := svc.Unified(context.Background(), Query{View: "pie-chart"})
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestBySenderMergesChannelsAndSorts(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	reps, err := svc.BySender(context.Background(), Query{Channel: ChannelAll})
	require.NoError(t, err)
	require.Len(t, reps, 2)

	// Ravi's 170 SMS beat Asha's 90 combined
	assert.Equal(t, "Ravi", reps[0].SenderName)
	assert.Equal(t, 170, reps[0].TotalSent)
	assert.Equal(t, "Asha", reps[1].SenderName)
	assert.Equal(t, 90, reps[1].TotalSent)
	assert.Equal(t, 60, reps[1].EmailSent)
	assert.Equal(t, 20, reps[1].EmailOpened)
	assert.Equal(t, 30, reps[1].SMSSent)
}

func TestBySenderSortAscending(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	reps, err := svc.BySender(context.Background(), Query{Channel: ChannelAll, SortBy: SortByCount, SortOrder: SortAscending})
	require.NoError(t, err)
	require.Len(t, reps, 2)
	assert.Equal(t, "Asha", reps[0].SenderName)
	assert.Equal(t, "Ravi", reps[1].SenderName)
}

func TestBySenderFilterRestrictsToSender(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	sender := int64(2)
	reps, err := svc.BySender(context.Background(), Query{Channel: ChannelAll, SenderID: &sender})
	require.NoError(t, err)
	require.Len(t, reps, 1)
	assert.Equal(t, "Ravi", reps[0].SenderName)
	assert.Equal(t, 170, reps[0].TotalSent)
}

func TestByCustomerMergesAndPaginates(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	page, err := svc.ByCustomer(context.Background(), Query{Channel: ChannelAll})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Results, 2)

	// Kiran's SMS on the 15th is the most recent activity
	assert.Equal(t, int64(10), page.Results[0].CustomerID)
	assert.Equal(t, 2, page.Results[0].EmailSent)
	assert.Equal(t, 3, page.Results[0].SMSSent)
	assert.Equal(t, 3, page.Results[0].Engaged)
	assert.Equal(t, int64(11), page.Results[1].CustomerID)
}

func TestByCustomerPageBeyondEnd(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	page, err := svc.ByCustomer(context.Background(), Query{Channel: "email", Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Empty(t, page.Results)
}

func TestTimeSeriesMergesOnDate(t *testing.T) {
	svc := NewService(fixtureStore(), nil)

	points, err := svc.TimeSeries(context.Background(), Query{Channel: ChannelAll})
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "2026-08-10", points[0].Date)
	assert.Equal(t, 5, points[0].Email)
	assert.Equal(t, 7, points[0].SMS)
	assert.Equal(t, 12, points[0].Total)
	assert.Equal(t, "2026-08-11", points[1].Date)
	assert.Equal(t, 2, points[1].Total)
}

func TestTimeSeriesMonthlyBuckets(t *testing.T) {
	store := fixtureStore()
	store.months = map[domain.Channel][]DayCount{
		domain.ChannelSMS: {{Day: "2026-07-01", Count: 40}, {Day: "2026-08-01", Count: 9}},
	}
	svc := NewService(store, nil)

	points, err := svc.TimeSeries(context.Background(), Query{Channel: "sms", GroupBy: GroupByMonth})
	require.NoError(t, err)
	assert.Equal(t, GroupByMonth, store.gotInterval)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-07-01", points[0].Date)
	assert.Equal(t, 40, points[0].SMS)
}

func TestSourceMetricsBreakdown(t *testing.T) {
	store := fixtureStore()
	store.sources = []SourceTotals{
		{Source: "sms", TotalOpens: 10, UniqueCustomers: 4},
		{Source: "email", TotalOpens: 6, UniqueCustomers: 3},
	}
	store.opens = []SourceOpenRow{
		{CustomerID: 10, CustomerName: "Kiran", Source: "sms", OpenCount: 7},
	}
	svc := NewService(store, nil)

	rep, err := svc.SourceMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Sources, 2)

	// email first: 80 unique recipients, 3 opened
	email := rep.Sources[0]
	assert.Equal(t, "email", email.Source)
	assert.Equal(t, 80, email.Sent)
	assert.Equal(t, 3, email.Opened)
	assert.Equal(t, 77, email.NotOpened)
	assert.Equal(t, 2.0, email.AvgPerOpener)

	sms := rep.Sources[1]
	assert.Equal(t, 150, sms.Sent)
	assert.Equal(t, 4, sms.Opened)
	assert.Equal(t, 2.5, sms.AvgPerOpener)
	assert.Equal(t, "2.7%", sms.OpenRate)

	require.Len(t, rep.RecentOpens, 1)
	assert.Equal(t, "Kiran", rep.RecentOpens[0].CustomerName)
}

func TestQuickChannelRates(t *testing.T) {
	store := fixtureStore()
	store.recent = map[domain.Channel][]RecentDispatch{
		domain.ChannelSMS: {{ID: 1, CustomerID: 10, CustomerName: "Kiran", Status: "delivered"}},
	}
	svc := NewService(store, nil)

	rep, err := svc.QuickChannel(context.Background(), domain.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, 200, rep.TotalSent)
	assert.Equal(t, "90.0%", rep.DeliveryRate)
	require.Len(t, rep.Recent, 1)
}

func TestMetricsBySourceRejectsUnknown(t *testing.T) {
	svc := NewService(fixtureStore(), nil)
	_, err := svc.MetricsBySource(context.Background(), "fax")
	assert.Error(t, err)
}

func TestCustomerEngagementSortsEventsNewestFirst(t *testing.T) {
	store := fixtureStore()
	store.events = []TimelineEvent{
		{Channel: "email", Kind: "sent", At: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{Channel: "sms", Kind: "sent", At: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{Channel: "email", Kind: "opened", At: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)},
	}
	svc := NewService(store, nil)

	eng, err := svc.CustomerEngagement(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, eng.Events, 3)
	assert.Equal(t, "sms", eng.Events[0].Channel)
	assert.Equal(t, "opened", eng.Events[1].Kind)
	assert.NotNil(t, eng.Metrics)
}

func TestSummaryServedFromRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute)

	store := fixtureStore()
	svc := NewService(store, cache)

	_, err := svc.Summary(context.Background(), Query{Channel: "sms"})
	require.NoError(t, err)
	firstCalls := store.summaryCalls

	rep, err := svc.Summary(context.Background(), Query{Channel: "sms"})
	require.NoError(t, err)
	assert.Equal(t, firstCalls, store.summaryCalls, "second call must hit the cache")
	assert.Equal(t, 200, rep.Channels["sms"].TotalSent)

	// expiry brings the store back into play
	mr.FastForward(2 * time.Minute)
	_, err = svc.Summary(context.Background(), Query{Channel: "sms"})
	require.NoError(t, err)
	assert.Greater(t, store.summaryCalls, firstCalls)
}

func TestRedisCacheNilClientMisses(t *testing.T) {
	cache := NewRedisCache(nil, time.Minute)
	_, ok := cache.GetSummary(context.Background(), "email")
	assert.False(t, ok)
	cache.SetSummary(context.Background(), "email", &SummaryReport{})
}
