// Package compose builds channel-appropriate message bodies from insight
// data, a customer name, and a tracking reference. Prose generation is
// delegated to a text-generation collaborator whose output is treated as
// untrusted: the composer always guarantees the canonical call-to-action
// and tracking artifact are present before returning.
package compose

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/drivelane/service-crm/internal/domain"
)

// Generator produces message prose from structured insight data.
// Implemented by internal/llm; stubbed in tests.
type Generator interface {
	MessageSummary(ctx context.Context, vehicle domain.VehicleInfo, insights domain.InsightBundle, customerName string) (string, error)
	EmailSummary(ctx context.Context, insights domain.InsightBundle, customerName string) (string, error)
}

// Composer assembles outbound message bodies. It is a pure transform:
// tracking references are minted by the caller, persistence happens in
// the dispatch service.
type Composer struct {
	gen Generator
	tpl *fallbackTemplates
}

// New creates a composer around the given generator.
func New(gen Generator) *Composer {
	return &Composer{gen: gen, tpl: newFallbackTemplates()}
}

// TextMessage builds the body for an SMS or WhatsApp send. The generated
// summary never includes links; the booking CTA with the tracking URL is
// appended here so the URL always survives intact.
func (c *Composer) TextMessage(ctx context.Context, customer *domain.Customer, insights domain.InsightBundle, trackingURL string) string {
	base, err := c.gen.MessageSummary(ctx, customer.Vehicle(), insights, customer.Name)
	if err != nil || strings.TrimSpace(base) == "" {
		if err != nil {
			log.Printf("[compose] generation failed, using fallback template: %v", err)
		}
		base = c.tpl.textBody(customer, insights)
	}

	return base + "\n\nBook here: " + trackingURL + "\n\nYour Service Advisor"
}

// EmailHTML builds the HTML body for an insight email: generated summary
// plus a CTA button for ctaURL and an invisible 1x1 tracking pixel for
// pixelURL, both inserted before the closing body tag when one exists.
func (c *Composer) EmailHTML(ctx context.Context, customer *domain.Customer, insights domain.InsightBundle, ctaURL, pixelURL string) string {
	body, err := c.gen.EmailSummary(ctx, insights, customer.Name)
	if err != nil || strings.TrimSpace(body) == "" {
		if err != nil {
			log.Printf("[compose] generation failed, using fallback template: %v", err)
		}
		body = c.tpl.emailBody(customer, insights)
	}

	body = injectBeforeBodyClose(body, ctaHTML(ctaURL))
	body = injectBeforeBodyClose(body, trackingPixelHTML(pixelURL))
	return body
}

// EmailSubject builds the subject line for an insight email.
func (c *Composer) EmailSubject(customer *domain.Customer) string {
	return fmt.Sprintf("Service Insights for your %s %s", customer.VehicleMake, customer.VehicleModel)
}

func ctaHTML(url string) string {
	return fmt.Sprintf(`
<br><br>
<p style="text-align: center;">
    <a href="%[1]s"
       style="display: inline-block; padding: 12px 24px; background-color: #C3002F; color: white; text-decoration: none; border-radius: 4px; font-weight: bold;">
        View Full Service Insights
    </a>
</p>
<p style="text-align: center; font-size: 12px; color: #666;">
    If the button doesn't work, copy and paste this link:<br>
    <a href="%[1]s" style="color: #666;">%[1]s</a>
</p>`, url)
}

func trackingPixelHTML(url string) string {
	return fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none;" alt="" />`, url)
}

// injectBeforeBodyClose inserts fragment immediately before </body>, or
// appends it when the document has no body tag.
func injectBeforeBodyClose(html, fragment string) string {
	if idx := strings.LastIndex(html, "</body>"); idx >= 0 {
		return html[:idx] + fragment + html[idx:]
	}
	return html + fragment
}
