// Package llm is the text-generation collaborator. It produces the
// narrative portion of outbound messages from structured insight data.
// Callers must treat its output as untrusted: the composer re-checks that
// required artifacts (tracking URLs, CTAs) are present before sending.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/drivelane/service-crm/internal/config"
	"github.com/drivelane/service-crm/internal/domain"
	"github.com/drivelane/service-crm/internal/pkg/httpretry"
)

// Client calls an OpenAI-compatible chat completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a generation client from config.
func NewClient(cfg config.OpenAIConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 2),
	}
}

// MessageSummary generates the plain-text body for an SMS or WhatsApp
// insight message. The prompt pins the format: exactly two bullet
// recommendations, no links (the caller appends the tracking CTA itself).
func (c *Client) MessageSummary(ctx context.Context, vehicle domain.VehicleInfo, insights domain.InsightBundle, customerName string) (string, error) {
	if customerName == "" {
		customerName = "Valued Customer"
	}
	insightJSON, _ := json.Marshal(insights)

	prompt := fmt.Sprintf(`Write a short, professional message for a vehicle service reminder.

CUSTOMER: %s
VEHICLE: %s %s
INSIGHTS: %s

Instructions:
1. Start with "Hi %s,".
2. State clearly that we have analyzed the service history.
3. Extract exactly 2 key maintenance points from the insights.
4. List them as simple bullet points (e.g. "- Brake Pads").
5. Keep it very concise.
6. Return PLAIN TEXT with no markdown emphasis characters.
7. Do NOT include any links or "Book now" text. (This is added separately.)`,
		customerName, vehicle.Make, vehicle.Model, insightJSON, customerName)

	text, err := c.chat(ctx, prompt, 0.4, 500)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// EmailSummary generates the HTML body for an insight email: a single
// short paragraph, no link (the caller appends the CTA and tracking pixel).
func (c *Client) EmailSummary(ctx context.Context, insights domain.InsightBundle, customerName string) (string, error) {
	if customerName == "" {
		customerName = "Valued Customer"
	}
	insightJSON, _ := json.Marshal(insights)

	prompt := fmt.Sprintf(`You are writing a short, customer-facing email from an authorized vehicle service center, encouraging the customer to review their upcoming service insights via a link in the email.

CUSTOMER: %s
INSIGHTS: %s

Instructions:
1. Start with a warm, personalized greeting using the customer's name.
2. Write a compelling body of fewer than 50 words summarizing the most urgent service recommendation.
3. Use professional automotive service terminology.
4. End with a polite sign-off (e.g. "Sincerely,<br>Your Service Team").
5. Output a single HTML <p> element using <br> for line breaks.
6. Do not include any link text or URL.`,
		customerName, insightJSON)

	text, err := c.chat(ctx, prompt, 0.7, 1024)
	if err != nil {
		return "", err
	}
	return stripCodeFences(text), nil
}

func (c *Client) chat(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("generation response has no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// HTML output in.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```html\n", "")
	s = strings.ReplaceAll(s, "```html", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
