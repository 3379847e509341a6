package compose

import (
	"log"
	"strings"

	"github.com/osteele/liquid"

	"github.com/drivelane/service-crm/internal/domain"
)

// Fallback copy used when the generator is unavailable or errors out.
// Liquid keeps the copy editable without touching rendering code.
const fallbackTextTemplate = `Hi {{ name }}, your {{ vehicle }} has new service insights ready{% if items != blank %}: {{ items }}{% endif %}. Our team found items that deserve your attention.`

const fallbackEmailTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #333;">
<p>Dear {{ name }},</p>
<p>We've completed a review of your {{ vehicle }} and prepared personalised service insights for you.</p>
{% if items != blank %}<p>Highlights: {{ items }}.</p>{% endif %}
<p>Please review the details and book a convenient slot for service.</p>
</body>
</html>`

type fallbackTemplates struct {
	engine *liquid.Engine
	text   *liquid.Template
	email  *liquid.Template
}

func newFallbackTemplates() *fallbackTemplates {
	engine := liquid.NewEngine()
	text, err := engine.ParseString(fallbackTextTemplate)
	if err != nil {
		panic(err)
	}
	email, err := engine.ParseString(fallbackEmailTemplate)
	if err != nil {
		panic(err)
	}
	return &fallbackTemplates{engine: engine, text: text, email: email}
}

func (t *fallbackTemplates) bindings(customer *domain.Customer, insights domain.InsightBundle) map[string]interface{} {
	vehicle := strings.TrimSpace(customer.VehicleMake + " " + customer.VehicleModel)
	if vehicle == "" {
		vehicle = "vehicle"
	}
	return map[string]interface{}{
		"name":    customer.Name,
		"vehicle": vehicle,
		"items":   strings.Join(insights.TopItems(3), ", "),
	}
}

func (t *fallbackTemplates) textBody(customer *domain.Customer, insights domain.InsightBundle) string {
	out, err := t.text.RenderString(t.bindings(customer, insights))
	if err != nil {
		log.Printf("[compose] fallback text render failed: %v", err)
		return "Hi " + customer.Name + ", your vehicle has new service insights ready."
	}
	return out
}

func (t *fallbackTemplates) emailBody(customer *domain.Customer, insights domain.InsightBundle) string {
	out, err := t.email.RenderString(t.bindings(customer, insights))
	if err != nil {
		log.Printf("[compose] fallback email render failed: %v", err)
		return "<html><body><p>Dear " + customer.Name + ", your service insights are ready.</p></body></html>"
	}
	return out
}
