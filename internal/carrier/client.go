// Package carrier is a client for the Twilio-compatible messaging API used
// for the SMS and WhatsApp channels. The provider assigns message ids
// synchronously at send time; later delivery states arrive via status
// webhooks handled in service/engagement.
package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/drivelane/service-crm/internal/config"
	"github.com/drivelane/service-crm/internal/pkg/httpretry"
)

// Message is the provider's view of an accepted outbound message.
type Message struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
}

// Client talks to the carrier's REST API.
type Client struct {
	baseURL     string
	accountSID  string
	authToken   string
	fromNumber  string
	countryCode string
	httpClient  httpretry.HTTPDoer
}

// NewClient creates a carrier API client.
func NewClient(cfg config.CarrierConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accountSID:  cfg.AccountSID,
		authToken:   cfg.AuthToken,
		fromNumber:  cfg.FromNumber,
		countryCode: cfg.CountryCode,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// SendSMS sends a plain SMS. The destination is normalized to E.164;
// bare 10-digit numbers are assumed domestic.
func (c *Client) SendSMS(ctx context.Context, to, body string) (*Message, error) {
	return c.createMessage(ctx, c.fromNumber, NormalizeE164(to, c.countryCode), body)
}

// SendWhatsApp sends a WhatsApp message. Both endpoints carry the
// provider's whatsapp: scheme prefix.
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) (*Message, error) {
	from := whatsappAddr(c.fromNumber)
	dest := whatsappAddr(NormalizeE164(to, c.countryCode))
	return c.createMessage(ctx, from, dest, body)
}

func (c *Client) createMessage(ctx context.Context, from, to, body string) (*Message, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("carrier API error %d: %s", apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("carrier API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var msg Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if msg.Sid == "" {
		return nil, fmt.Errorf("carrier response missing message sid")
	}
	return &msg, nil
}

// NormalizeE164 normalizes a phone number toward E.164. Separator
// characters are stripped; numbers already carrying + are kept; bare
// 10-digit numbers get the configured country code.
func NormalizeE164(num, countryCode string) string {
	var b strings.Builder
	for i, r := range num {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if len(cleaned) == 10 {
		return countryCode + cleaned
	}
	return "+" + cleaned
}

func whatsappAddr(num string) string {
	if strings.HasPrefix(num, "whatsapp:") {
		return num
	}
	return "whatsapp:" + num
}
