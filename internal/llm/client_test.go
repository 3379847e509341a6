package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drivelane/service-crm/internal/config"
	"github.com/drivelane/service-crm/internal/domain"
)

func testInsights() domain.InsightBundle {
	return domain.InsightBundle{
		PriorityItems: []domain.InsightItem{
			{Item: "Brake Pads", Reason: "worn below 3mm", Urgency: "high"},
		},
		Summary: "Brakes need attention soon.",
	}
}

func newFakeAPI(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
		})
	}))
}

func TestMessageSummary(t *testing.T) {
	srv := newFakeAPI(t, "Hi Asha,\nWe analyzed your service history.\n- Brake Pads\n- Engine Oil", http.StatusOK)
	defer srv.Close()

	c := NewClient(config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL, TimeoutSeconds: 5})
	got, err := c.MessageSummary(context.Background(), domain.VehicleInfo{Make: "Nissan", Model: "Magnite"}, testInsights(), "Asha")
	if err != nil {
		t.Fatalf("MessageSummary() error = %v", err)
	}
	if got == "" {
		t.Fatal("MessageSummary() returned empty text")
	}
}

func TestEmailSummaryStripsFences(t *testing.T) {
	srv := newFakeAPI(t, "```html\n<p>Dear Asha,<br>Your brakes need attention.</p>\n```", http.StatusOK)
	defer srv.Close()

	c := NewClient(config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL, TimeoutSeconds: 5})
	got, err := c.EmailSummary(context.Background(), testInsights(), "Asha")
	if err != nil {
		t.Fatalf("EmailSummary() error = %v", err)
	}
	want := "<p>Dear Asha,<br>Your brakes need attention.</p>"
	if got != want {
		t.Errorf("EmailSummary() = %q, want %q", got, want)
	}
}

func TestChatErrorOnAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.OpenAIConfig{APIKey: "wrong", Model: "gpt-4o-mini", BaseURL: srv.URL, TimeoutSeconds: 5})
	if _, err := c.EmailSummary(context.Background(), testInsights(), "Asha"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
