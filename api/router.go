package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the API under /api and the health probe at /healthz.
// Trailing slashes are optional on every route. The seed endpoint exists
// only when devEndpoints is set.
func NewRouter(h *Handler, log logrus.FieldLogger, devEndpoints bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
	})

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		if devEndpoints {
			r.Post("/dev/seed", h.Seed)
		}

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/summary", h.Summary)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetOrder)
				r.Put("/", h.UpdateOrder)
				r.Patch("/", h.UpdateOrder)
				r.Delete("/", h.DeleteOrder)
				r.Post("/cancel", h.CancelOrder)
				r.Post("/archive", h.ArchiveOrder)
				r.Get("/items", h.OrderItems)
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCustomer)
				r.Put("/", h.UpdateCustomer)
				r.Patch("/", h.UpdateCustomer)
				r.Delete("/", h.DeleteCustomer)
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetItem)
				r.Put("/", h.UpdateItem)
				r.Patch("/", h.UpdateItem)
				r.Delete("/", h.DeleteItem)
			})
		})
	})

	return r
}
