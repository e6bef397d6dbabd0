// Package api serves the order regression lab over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/orders"
	"github.com/jeffsasaki/regression-lab/seed"
	"github.com/jeffsasaki/regression-lab/store"
)

// Service is the business layer the handlers drive; *orders.Service
// implements it.
type Service interface {
	Seed(ctx context.Context, p seed.Params) (seed.Result, error)
	Summary(ctx context.Context, limit int) ([]model.SpenderRow, error)

	ListOrders(ctx context.Context, f orders.ListFilter, p store.Page) ([]model.Order, int, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	CreateOrder(ctx context.Context, f orders.OrderFields) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, f orders.OrderFields, partial bool) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	Cancel(ctx context.Context, id int64) (*model.Order, error)
	Archive(ctx context.Context, id int64) (*model.Order, error)

	ListCustomers(ctx context.Context, p store.Page) ([]model.Customer, int, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	CreateCustomer(ctx context.Context, f orders.CustomerFields) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, f orders.CustomerFields, partial bool) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error

	ListItems(ctx context.Context, p store.Page) ([]model.OrderItem, int, error)
	ItemsOf(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	GetItem(ctx context.Context, id int64) (*model.OrderItem, error)
	CreateItem(ctx context.Context, f orders.ItemFields) (*model.OrderItem, error)
	UpdateItem(ctx context.Context, id int64, f orders.ItemFields, partial bool) (*model.OrderItem, error)
	DeleteItem(ctx context.Context, id int64) error
}

type Prober interface {
	Check(ctx context.Context) error
}

type Handler struct {
	svc         Service
	probe       Prober
	log         logrus.FieldLogger
	pageSize    int
	maxPageSize int
	seedLimit   *rate.Limiter
}

type Options struct {
	PageSize          int
	MaxPageSize       int
	SeedRatePerMinute int
}

func NewHandler(svc Service, probe Prober, log logrus.FieldLogger, opts Options) *Handler {
	h := &Handler{
		svc:         svc,
		probe:       probe,
		log:         log,
		pageSize:    opts.PageSize,
		maxPageSize: opts.MaxPageSize,
	}
	if h.pageSize < 1 {
		h.pageSize = 50
	}
	if h.maxPageSize < h.pageSize {
		h.maxPageSize = h.pageSize
	}
	if n := opts.SeedRatePerMinute; n > 0 {
		h.seedLimit = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
	return h
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, model.NotFound("resource", 0)
	}
	return id, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.probe.Check(r.Context()); err != nil {
		h.log.WithError(err).Warn("health check failed")
		writeProblem(w, r, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type seedRequest struct {
	Customers         *int `json:"customers"`
	OrdersPerCustomer *int `json:"orders_per_customer"`
	ItemsPerOrder     *int `json:"items_per_order"`
}

func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	if h.seedLimit != nil && !h.seedLimit.Allow() {
		w.Header().Set("Retry-After", "60")
		writeProblem(w, r, http.StatusTooManyRequests, "seed rate limit exceeded")
		return
	}

	var req seedRequest
	if err := decodeBody(r, "seed", &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p := seed.DefaultParams()
	if req.Customers != nil {
		p.Customers = *req.Customers
	}
	if req.OrdersPerCustomer != nil {
		p.OrdersPerCustomer = *req.OrdersPerCustomer
	}
	if req.ItemsPerOrder != nil {
		p.ItemsPerOrder = *req.ItemsPerOrder
	}

	res, err := h.svc.Seed(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type summaryResponse struct {
	Limit int                `json:"limit"`
	Rows  []model.SpenderRow `json:"rows"`
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	limit := orders.DefaultSummaryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, model.Invalid("limit must be an integer, got %q", v))
			return
		}
		limit = n
	}

	rows, err := h.svc.Summary(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.SpenderRow{}
	}
	writeJSON(w, http.StatusOK, summaryResponse{Limit: limit, Rows: rows})
}

type cancelResponse struct {
	ID     int64        `json:"id"`
	Status model.Status `json:"status"`
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{ID: o.ID, Status: o.Status})
}

type archiveResponse struct {
	ID         int64 `json:"id"`
	IsArchived bool  `json:"is_archived"`
}

func (h *Handler) ArchiveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.svc.Archive(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, archiveResponse{ID: o.ID, IsArchived: o.IsArchived})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	var f orders.ListFilter
	// An empty value is the same as an absent one.
	if v := q.Get("status"); v != "" {
		f.Status = &v
	}
	if v := q.Get("email"); v != "" {
		f.Email = &v
	}

	list, total, err := h.svc.ListOrders(r.Context(), f, page.window())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, r, page, total, list)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var f orders.OrderFields
	if err := decodeBody(r, "order", &f); err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.svc.CreateOrder(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	partial := r.Method == http.MethodPatch
	var f orders.OrderFields
	if err := decodeBody(r, schemaFor("order", partial), &f); err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.svc.UpdateOrder(r.Context(), id, f, partial)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) OrderItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, err := h.svc.ItemsOf(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, page pageRequest, total int, results interface{}) {
	body, err := paginate(r, page, total, results)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func schemaFor(name string, partial bool) string {
	if partial {
		return name + "-patch"
	}
	return name
}
