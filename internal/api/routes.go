package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/drivelane/service-crm/internal/config"
)

func setupRoutes(cfg config.ServerConfig, links config.LinksConfig, h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{links.FrontendURL}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Telecaller-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/email", func(r chi.Router) {
			r.Post("/send", h.SendEmail)
			r.Get("/track/{emailId}", h.EmailPixel)
			r.Get("/logs/{customerId}", h.EmailLog)
		})

		r.Route("/sms", func(r chi.Router) {
			r.Post("/send", h.SendSMS)
			r.Post("/send-bulk", h.SendBulkSMS)
			r.Post("/webhook", h.SMSWebhook)
			r.Get("/logs/{customerId}", h.SMSLog)
			r.Get("/analytics", h.SMSAnalytics)
		})

		r.Route("/whatsapp", func(r chi.Router) {
			r.Post("/send", h.SendWhatsApp)
			r.Post("/send-bulk", h.SendBulkWhatsApp)
			r.Post("/webhook", h.WhatsAppWebhook)
			r.Get("/logs/{customerId}", h.WhatsAppLog)
			r.Get("/analytics", h.WhatsAppAnalytics)
		})

		r.Route("/source-metrics", func(r chi.Router) {
			r.Get("/track/{customerId}", h.TrackSourceOpen)
			r.Get("/analytics", h.SourceMetricsAnalytics)
			r.Get("/by-source", h.MetricsBySource)
			r.Get("/customer/{customerId}", h.CustomerMetrics)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/unified", h.UnifiedAnalytics)
			r.Get("/customer/{customerId}", h.CustomerEngagement)
		})
	})

	return r
}
