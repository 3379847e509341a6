package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivelane/service-crm/internal/carrier"
	"github.com/drivelane/service-crm/internal/config"
	"github.com/drivelane/service-crm/internal/domain"
)

type memStore struct {
	customers map[int64]*domain.Customer
	insights  map[int64]*domain.ServiceInsight

	sms      []domain.SMSDispatch
	whatsapp []domain.WhatsAppDispatch
	emails   map[int64]*domain.EmailDispatch
	nextID   int64

	smsErr      error
	finalizeErr error
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[int64]*domain.Customer),
		insights:  make(map[int64]*domain.ServiceInsight),
		emails:    make(map[int64]*domain.EmailDispatch),
	}
}

func (m *memStore) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return c, nil
}

func (m *memStore) GetInsight(_ context.Context, id int64) (*domain.ServiceInsight, error) {
	in, ok := m.insights[id]
	if !ok {
		return nil, ErrInsightNotFound
	}
	return in, nil
}

func (m *memStore) LatestInsightForCustomer(_ context.Context, customerID int64) (*domain.ServiceInsight, error) {
	var latest *domain.ServiceInsight
	for _, in := range m.insights {
		if in.CustomerID != customerID {
			continue
		}
		if latest == nil || in.GeneratedAt.After(latest.GeneratedAt) {
			latest = in
		}
	}
	if latest == nil {
		return nil, ErrInsightNotFound
	}
	return latest, nil
}

func (m *memStore) CreateSMS(_ context.Context, d *domain.SMSDispatch) error {
	if m.smsErr != nil {
		return m.smsErr
	}
	m.nextID++
	d.ID = m.nextID
	m.sms = append(m.sms, *d)
	return nil
}

func (m *memStore) CreateWhatsApp(_ context.Context, d *domain.WhatsAppDispatch) error {
	m.nextID++
	d.ID = m.nextID
	m.whatsapp = append(m.whatsapp, *d)
	return nil
}

func (m *memStore) ReserveEmail(_ context.Context, d *domain.EmailDispatch) error {
	m.nextID++
	d.ID = m.nextID
	cp := *d
	m.emails[d.ID] = &cp
	return nil
}

func (m *memStore) FinalizeEmail(_ context.Context, id int64, messageID, body string) error {
	if m.finalizeErr != nil {
		return m.finalizeErr
	}
	e, ok := m.emails[id]
	if !ok {
		return errors.New("no reserved row")
	}
	e.MessageID = messageID
	e.Body = body
	e.Status = domain.StatusSent
	return nil
}

func (m *memStore) DiscardEmail(_ context.Context, id int64) error {
	delete(m.emails, id)
	return nil
}

func (m *memStore) ListSMSByCustomer(_ context.Context, customerID int64) ([]domain.SMSDispatch, error) {
	var out []domain.SMSDispatch
	for _, d := range m.sms {
		if d.CustomerID == customerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) ListWhatsAppByCustomer(_ context.Context, customerID int64) ([]domain.WhatsAppDispatch, error) {
	var out []domain.WhatsAppDispatch
	for _, d := range m.whatsapp {
		if d.CustomerID == customerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) ListEmailByCustomer(_ context.Context, customerID int64) ([]domain.EmailDispatch, error) {
	var out []domain.EmailDispatch
	for _, d := range m.emails {
		if d.CustomerID == customerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeCarrier struct {
	calls   int
	lastTo  []string
	sendErr error
}

func (f *fakeCarrier) SendSMS(_ context.Context, to, _ string) (*carrier.Message, error) {
	f.calls++
	f.lastTo = append(f.lastTo, to)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &carrier.Message{Sid: fmt.Sprintf("SM%04d", f.calls), Status: "queued"}, nil
}

func (f *fakeCarrier) SendWhatsApp(_ context.Context, to, _ string) (*carrier.Message, error) {
	f.calls++
	f.lastTo = append(f.lastTo, to)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &carrier.Message{Sid: fmt.Sprintf("WA%04d", f.calls), Status: "queued"}, nil
}

type fakeMailer struct {
	sent    int
	lastTo  string
	lastSub string
	sendErr error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, _ string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent++
	f.lastTo = to
	f.lastSub = subject
	return fmt.Sprintf("msg-%d", f.sent), nil
}

type echoComposer struct{}

func (echoComposer) TextMessage(_ context.Context, c *domain.Customer, _ domain.InsightBundle, trackingURL string) string {
	return "insights for " + c.Name + "\n\nBook here: " + trackingURL
}

func (echoComposer) EmailHTML(_ context.Context, c *domain.Customer, _ domain.InsightBundle, ctaURL, pixelURL string) string {
	return "<body>" + c.Name + " " + ctaURL + ` <img src="` + pixelURL + `"></body>`
}

func (echoComposer) EmailSubject(c *domain.Customer) string {
	return "Service Insights for your " + c.VehicleMake
}

func fixture(t *testing.T) (*Service, *memStore, *fakeCarrier, *fakeMailer) {
	t.Helper()
	store := newMemStore()
	store.customers[1] = &domain.Customer{ID: 1, Name: "Arun", Phone: "9876543210", Email: "arun@example.com", VehicleMake: "Nissan"}
	store.customers[2] = &domain.Customer{ID: 2, Name: "Meera", AlternatePhone: "9123456780"}
	store.customers[3] = &domain.Customer{ID: 3, Name: "NoPhone"}
	for id, cid := range map[int64]int64{10: 1, 11: 2, 12: 3} {
		store.insights[id] = &domain.ServiceInsight{ID: id, CustomerID: cid, GeneratedAt: time.Now()}
	}

	car := &fakeCarrier{}
	mail := &fakeMailer{}
	svc := NewService(store, store, store, car, mail, echoComposer{}, config.LinksConfig{BackendURL: "https://api.test/"})
	return svc, store, car, mail
}

func TestSendSMSRecordsLedgerRow(t *testing.T) {
	svc, store, car, _ := fixture(t)
	sender := int64(7)

	d, err := svc.SendSMS(context.Background(), 1, nil, &sender)
	require.NoError(t, err)

	assert.Equal(t, "SM0001", d.MessageSid)
	assert.Equal(t, domain.StatusSent, d.Status)
	require.Len(t, store.sms, 1)
	assert.Equal(t, int64(1), store.sms[0].CustomerID)
	require.NotNil(t, store.sms[0].SenderID)
	assert.Equal(t, sender, *store.sms[0].SenderID)
	assert.Contains(t, store.sms[0].Body, "https://api.test/api/source-metrics/track/1?source=sms")
	assert.Equal(t, []string{"9876543210"}, car.lastTo)
}

func TestSendSMSWithExplicitInsight(t *testing.T) {
	svc, store, _, _ := fixture(t)
	insightID := int64(10)

	d, err := svc.SendSMS(context.Background(), 1, &insightID, nil)
	require.NoError(t, err)
	require.NotNil(t, d.InsightID)
	assert.Equal(t, insightID, *d.InsightID)

	missing := int64(999)
	_, err = svc.SendSMS(context.Background(), 1, &missing, nil)
	assert.ErrorIs(t, err, ErrInsightNotFound)
	assert.Len(t, store.sms, 1)
}

func TestSendSMSUsesAlternatePhone(t *testing.T) {
	svc, _, car, _ := fixture(t)

	_, err := svc.SendSMS(context.Background(), 2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"9123456780"}, car.lastTo)
}

func TestSendSMSMissingPhone(t *testing.T) {
	svc, store, car, _ := fixture(t)

	_, err := svc.SendSMS(context.Background(), 3, nil, nil)
	assert.ErrorIs(t, err, ErrNoPhoneNumber)
	assert.Zero(t, car.calls)
	assert.Empty(t, store.sms)
}

func TestSendSMSUnknownCustomer(t *testing.T) {
	svc, _, _, _ := fixture(t)

	_, err := svc.SendSMS(context.Background(), 999, nil, nil)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestSendSMSCarrierFailureLeavesNoRow(t *testing.T) {
	svc, store, car, _ := fixture(t)
	car.sendErr = errors.New("carrier 500")

	_, err := svc.SendSMS(context.Background(), 1, nil, nil)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "sms", sendErr.Channel)
	assert.Empty(t, store.sms)
}

func TestSendWhatsAppRecordsCarrierStatus(t *testing.T) {
	svc, store, _, _ := fixture(t)

	d, err := svc.SendWhatsApp(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "queued", d.Status)
	require.Len(t, store.whatsapp, 1)
	assert.Equal(t, "WA0001", store.whatsapp[0].MessageSid)
}

func TestSendEmailReserveFinalize(t *testing.T) {
	svc, store, _, mail := fixture(t)

	d, err := svc.SendEmail(context.Background(), 10, nil)
	require.NoError(t, err)

	assert.Equal(t, "msg-1", d.MessageID)
	assert.Equal(t, "arun@example.com", mail.lastTo)
	assert.Equal(t, "Service Insights for your Nissan", mail.lastSub)

	row := store.emails[d.ID]
	require.NotNil(t, row)
	assert.Equal(t, domain.StatusSent, row.Status)
	assert.Equal(t, "msg-1", row.MessageID)
	// The pixel embeds the reserved row id, proving the row existed
	// before the body was rendered.
	assert.Contains(t, row.Body, fmt.Sprintf("https://api.test/api/email/track/%d", d.ID))
	assert.Contains(t, row.Body, "https://api.test/api/source-metrics/track/1?source=email")
}

func TestSendEmailTransportFailureDiscardsRow(t *testing.T) {
	svc, store, _, mail := fixture(t)
	mail.sendErr = errors.New("ses throttled")

	_, err := svc.SendEmail(context.Background(), 10, nil)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "email", sendErr.Channel)
	assert.Empty(t, store.emails)
}

func TestSendEmailNoAddress(t *testing.T) {
	svc, store, _, _ := fixture(t)

	_, err := svc.SendEmail(context.Background(), 11, nil)
	assert.ErrorIs(t, err, ErrNoEmailAddress)
	assert.Empty(t, store.emails)
}

func TestSendEmailUnknownInsight(t *testing.T) {
	svc, _, _, _ := fixture(t)

	_, err := svc.SendEmail(context.Background(), 999, nil)
	assert.ErrorIs(t, err, ErrInsightNotFound)
}

func TestSendBulkSMSIsolatesFailures(t *testing.T) {
	svc, store, _, _ := fixture(t)

	res := svc.SendBulkSMS(context.Background(), []Recipient{{CustomerID: 1}, {CustomerID: 3}, {CustomerID: 2}}, nil)

	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 3)

	assert.True(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
	assert.Contains(t, res.Results[1].Error, "no phone number")
	assert.True(t, res.Results[2].Success, "failure for customer 3 must not abort customer 2")
	assert.Len(t, store.sms, 2)
}

func TestSendBulkSMSSequentialOrder(t *testing.T) {
	svc, _, car, _ := fixture(t)

	res := svc.SendBulkSMS(context.Background(), []Recipient{{CustomerID: 2}, {CustomerID: 1}}, nil)
	require.Equal(t, 2, res.Successful)
	assert.Equal(t, []string{"9123456780", "9876543210"}, car.lastTo)
	assert.True(t, strings.HasPrefix(res.Results[0].MessageSid, "SM"))
}

func TestSMSLogFiltersByCustomer(t *testing.T) {
	svc, _, _, _ := fixture(t)
	_, err := svc.SendSMS(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	_, err = svc.SendSMS(context.Background(), 2, nil, nil)
	require.NoError(t, err)

	rows, err := svc.SMSLog(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].CustomerID)
}
