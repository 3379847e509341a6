package domain

import "time"

// InsightItem is a single recommendation inside an insight bundle.
type InsightItem struct {
	Item          string `json:"item"`
	Reason        string `json:"reason"`
	Urgency       string `json:"urgency"` // high, medium, low
	EstimatedCost string `json:"estimated_cost"`
}

// InsightBundle is the structured recommendation payload generated from a
// vehicle's service history. It is the composer's input - never raw
// generator text.
type InsightBundle struct {
	PriorityItems       []InsightItem `json:"priority_items"`
	RecommendedServices []InsightItem `json:"recommended_services"`
	OptionalChecks      []InsightItem `json:"optional_checks"`
	Summary             string        `json:"summary"`
}

// TopItems returns up to n recommendation names, priority items first.
// Used by fallback templates when the text generator is unavailable.
func (b InsightBundle) TopItems(n int) []string {
	var out []string
	for _, group := range [][]InsightItem{b.PriorityItems, b.RecommendedServices, b.OptionalChecks} {
		for _, it := range group {
			if len(out) >= n {
				return out
			}
			out = append(out, it.Item)
		}
	}
	return out
}

// ServiceInsight ties one generated InsightBundle to a customer.
// Created by the insight-generation collaborator; read-only here.
type ServiceInsight struct {
	ID          int64         `json:"id"`
	CustomerID  int64         `json:"customerId"`
	Insights    InsightBundle `json:"insightsJson"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
