package chi

import (
	gochi "github.com/go-chi/chi/v5"
)

// Routes mounts the API on r. Catalog reads, health and metrics are public;
// writes and analytics go through IdentityMiddleware, and analytics also
// need a seller.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Get("/catalog/{kind}", s.SearchCatalog)
	r.Get("/catalog/{kind}/facets", s.GetFacets)
	r.Get("/catalog/{kind}/{id}", s.GetRecord)

	r.Group(func(r gochi.Router) {
		r.Use(IdentityMiddleware(s.jwtSecret))

		r.Put("/catalog/{kind}/{id}", s.UpsertRecord)
		r.Delete("/catalog/{kind}/{id}", s.DeleteRecord)
		r.Put("/actors/{id}", s.UpsertActor)
		r.Post("/events", s.RecordEvent)
		r.Post("/events/{id}/status", s.TransitionEvent)

		r.Group(func(r gochi.Router) {
			r.Use(RequireSeller)

			r.Get("/analytics/sales", s.SalesReport)
			r.Get("/analytics/customers", s.CustomerReport)
			r.Get("/analytics/customers/{actorID}", s.CustomerDetail)
			r.Get("/analytics/revenue", s.RevenueReport)
			r.Post("/analytics/query", s.Query)
		})
	})
}
