package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/jeffsasaki/regression-lab/api"
	"github.com/jeffsasaki/regression-lab/health"
	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/orders"
	"github.com/jeffsasaki/regression-lab/seed"
	"github.com/jeffsasaki/regression-lab/store"
)

type listBody struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

type summaryBody struct {
	Limit int                `json:"limit"`
	Rows  []model.SpenderRow `json:"rows"`
}

var _ = Describe("Order regression lab API", func() {
	var (
		st      *store.Store
		router  http.Handler
		opts    api.Options
		devMode bool
	)

	call := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var rd io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			rd = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, rd)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v interface{}) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed(), rec.Body.String())
	}

	createCustomer := func(email string) model.Customer {
		rec := call(http.MethodPost, "/api/customers/", map[string]interface{}{"name": email, "email": email})
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		var c model.Customer
		decode(rec, &c)
		return c
	}

	createOrder := func(customer int64, status string, total int64) model.Order {
		rec := call(http.MethodPost, "/api/orders/", map[string]interface{}{"customer": customer, "status": status, "total_cents": total})
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		var o model.Order
		decode(rec, &o)
		return o
	}

	getOrder := func(id int64) model.Order {
		rec := call(http.MethodGet, fmt.Sprintf("/api/orders/%d/", id), nil)
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		var o model.Order
		decode(rec, &o)
		return o
	}

	listOrders := func(query string) listBody {
		rec := call(http.MethodGet, "/api/orders/"+query, nil)
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		var body listBody
		decode(rec, &body)
		return body
	}

	BeforeEach(func() {
		var err error
		st, err = store.Open(context.Background(), "sqlite://:memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Migrate()).To(Succeed())
		opts = api.Options{PageSize: 50, MaxPageSize: 500}
		devMode = true
	})

	JustBeforeEach(func() {
		log := logrus.New()
		log.SetOutput(io.Discard)
		svc := orders.NewService(st, orders.WithLogger(log), orders.WithGenerator(seed.New(seed.WithSeed(1), seed.WithLogger(log))))
		h := api.NewHandler(svc, health.NewChecker(st, "order-service"), log, opts)
		router = api.NewRouter(h, log, devMode)
	})

	AfterEach(func() {
		Expect(st.Close()).To(Succeed())
	})

	Describe("top spenders summary", func() {
		It("ranks the only paid spender first and zero spenders after", func() {
			rich := createCustomer("rich@test.com")
			poor := createCustomer("poor@test.com")
			drafter := createCustomer("draft@test.com")
			createOrder(rich.ID, "paid", 1000)
			createOrder(drafter.ID, "draft", 5000)

			rec := call(http.MethodGet, "/api/orders/summary/?limit=10", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var body summaryBody
			decode(rec, &body)

			Expect(body.Limit).To(Equal(10))
			Expect(body.Rows).To(HaveLen(3))
			Expect(body.Rows[0]).To(Equal(model.SpenderRow{CustomerID: rich.ID, Email: "rich@test.com", OrderCount: 1, TotalCents: 1000}))
			Expect(body.Rows[1].CustomerID).To(Equal(poor.ID))
			Expect(body.Rows[1].TotalCents).To(BeZero())
			Expect(body.Rows[2].CustomerID).To(Equal(drafter.ID))
			Expect(body.Rows[2].TotalCents).To(BeZero())
		})

		It("never ranks a zero spender above a positive one", func() {
			rec := call(http.MethodPost, "/api/dev/seed/", map[string]int{"customers": 15, "orders_per_customer": 3, "items_per_order": 2})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			createCustomer("idle@test.com")

			rec = call(http.MethodGet, "/api/orders/summary/?limit=1000", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var body summaryBody
			decode(rec, &body)

			seenZero := false
			for i, row := range body.Rows {
				if row.TotalCents == 0 {
					seenZero = true
					continue
				}
				Expect(seenZero).To(BeFalse(), "positive spender at %d after a zero spender", i)
				if i > 0 {
					Expect(row.TotalCents).To(BeNumerically("<=", body.Rows[i-1].TotalCents))
				}
			}
		})

		It("rejects a limit outside 0..1000", func() {
			Expect(call(http.MethodGet, "/api/orders/summary/?limit=1001", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(call(http.MethodGet, "/api/orders/summary/?limit=abc", nil).Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("cancel", func() {
		It("changes only the target order", func() {
			c := createCustomer("c@test.com")
			target := createOrder(c.ID, "paid", 1500)
			sibling := createOrder(c.ID, "paid", 2500)

			rec := call(http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel/", target.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(fmt.Sprintf(`{"id": %d, "status": "cancelled"}`, target.ID)))

			Expect(getOrder(target.ID).Status).To(Equal(model.StatusCancelled))
			after := getOrder(sibling.ID)
			Expect(after.Status).To(Equal(model.StatusPaid))
			Expect(*after.TotalCents).To(Equal(int64(2500)))

			rec = call(http.MethodGet, fmt.Sprintf("/api/customers/%d/", c.ID), nil)
			var cust model.Customer
			decode(rec, &cust)
			Expect(cust.Email).To(Equal("c@test.com"))
			Expect(cust.IsActive).To(BeTrue())
		})

		It("answers 404 for an unknown order", func() {
			rec := call(http.MethodPost, "/api/orders/99999/cancel/", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/problem+json"))
			var p api.Problem
			decode(rec, &p)
			Expect(p.Status).To(Equal(http.StatusNotFound))
			Expect(p.RequestID).NotTo(BeEmpty())
		})
	})

	Describe("archive", func() {
		It("hides the order from the list but keeps it retrievable", func() {
			c := createCustomer("c@test.com")
			o := createOrder(c.ID, "paid", 900)

			rec := call(http.MethodPost, fmt.Sprintf("/api/orders/%d/archive", o.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(fmt.Sprintf(`{"id": %d, "is_archived": true}`, o.ID)))

			Expect(listOrders("").Count).To(BeZero())
			Expect(getOrder(o.ID).IsArchived).To(BeTrue())
		})

		It("answers 404 for an unknown order", func() {
			Expect(call(http.MethodPost, "/api/orders/424242/archive/", nil).Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("seed", func() {
		It("creates exactly the requested rows", func() {
			rec := call(http.MethodPost, "/api/dev/seed/", map[string]int{"customers": 10, "orders_per_customer": 5, "items_per_order": 3})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(MatchJSON(`{"customers": 10, "orders": 50, "items": 150}`))

			Expect(listOrders("").Count).To(Equal(50))

			rec = call(http.MethodGet, "/api/customers/", nil)
			var customers listBody
			decode(rec, &customers)
			Expect(customers.Count).To(Equal(10))

			rec = call(http.MethodGet, "/api/items/", nil)
			var items listBody
			decode(rec, &items)
			Expect(items.Count).To(Equal(150))
		})

		It("applies defaults to an empty body", func() {
			rec := call(http.MethodPost, "/api/dev/seed", nil)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(MatchJSON(`{"customers": 100, "orders": 500, "items": 1500}`))
		})

		It("rejects counts over the caps", func() {
			rec := call(http.MethodPost, "/api/dev/seed/", map[string]int{"customers": 10001})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(listOrders("").Count).To(BeZero())
		})

		Context("with a rate limit of one per minute", func() {
			BeforeEach(func() { opts.SeedRatePerMinute = 1 })

			It("answers 429 to the second request", func() {
				body := map[string]int{"customers": 1, "orders_per_customer": 1, "items_per_order": 1}
				Expect(call(http.MethodPost, "/api/dev/seed/", body).Code).To(Equal(http.StatusCreated))
				rec := call(http.MethodPost, "/api/dev/seed/", body)
				Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
				Expect(rec.Header().Get("Retry-After")).To(Equal("60"))
			})
		})

		Context("with dev endpoints off", func() {
			BeforeEach(func() { devMode = false })

			It("is not routed", func() {
				Expect(call(http.MethodPost, "/api/dev/seed/", nil).Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("order listing", func() {
		It("filters by status and email substring, newest first", func() {
			alice := createCustomer("alice@example.com")
			bob := createCustomer("bob@example.com")
			first := createOrder(alice.ID, "shipped", 100)
			createOrder(alice.ID, "paid", 200)
			createOrder(bob.ID, "shipped", 300)
			last := createOrder(alice.ID, "shipped", 400)

			body := listOrders("?status=SHIPPED&email=ALICE")
			Expect(body.Count).To(Equal(2))
			var o1, o2 model.Order
			Expect(json.Unmarshal(body.Results[0], &o1)).To(Succeed())
			Expect(json.Unmarshal(body.Results[1], &o2)).To(Succeed())
			Expect(o1.ID).To(Equal(last.ID))
			Expect(o2.ID).To(Equal(first.ID))

			Expect(listOrders("?status=unknown").Count).To(BeZero())
		})

		It("matches email substrings alone and combined with status", func() {
			alice := createCustomer("alice@example.com")
			bob := createCustomer("bob@test.com")
			a1 := createOrder(alice.ID, "paid", 100)
			a2 := createOrder(alice.ID, "draft", 200)
			b1 := createOrder(bob.ID, "shipped", 300)
			b2 := createOrder(bob.ID, "paid", 400)

			ids := func(body listBody) []int64 {
				out := make([]int64, 0, len(body.Results))
				for _, raw := range body.Results {
					var o model.Order
					Expect(json.Unmarshal(raw, &o)).To(Succeed())
					out = append(out, o.ID)
				}
				return out
			}

			byAli := listOrders("?email=ali")
			Expect(byAli.Count).To(Equal(2))
			Expect(ids(byAli)).To(ConsistOf(a1.ID, a2.ID))

			byDomain := listOrders("?email=test.com")
			Expect(byDomain.Count).To(Equal(2))
			Expect(ids(byDomain)).To(ConsistOf(b1.ID, b2.ID))

			Expect(listOrders("?status=shipped&email=alice").Count).To(BeZero())
		})

		It("treats empty filter values as absent", func() {
			c := createCustomer("c@test.com")
			createOrder(c.ID, "paid", 0)
			createOrder(c.ID, "draft", 0)
			createOrder(c.ID, "shipped", 0)

			Expect(listOrders("?status=").Count).To(Equal(3))
			Expect(listOrders("?email=").Count).To(Equal(3))
			Expect(listOrders("?status=&email=").Count).To(Equal(3))
		})

		It("does not serve data for page numbers whose offset would overflow", func() {
			c := createCustomer("c@test.com")
			createOrder(c.ID, "paid", 0)

			rec := call(http.MethodGet, "/api/orders/?page=9223372036854775807", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			rec = call(http.MethodGet, "/api/orders/?page=4611686018427387905&page_size=2", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("paginates with next and previous links", func() {
			c := createCustomer("c@test.com")
			for i := 0; i < 5; i++ {
				createOrder(c.ID, "draft", 0)
			}

			first := listOrders("?page_size=2")
			Expect(first.Count).To(Equal(5))
			Expect(first.Results).To(HaveLen(2))
			Expect(first.Previous).To(BeNil())
			Expect(*first.Next).To(ContainSubstring("page=2"))

			last := listOrders("?page_size=2&page=3")
			Expect(last.Results).To(HaveLen(1))
			Expect(last.Next).To(BeNil())
			Expect(*last.Previous).To(ContainSubstring("page=2"))

			Expect(call(http.MethodGet, "/api/orders/?page_size=2&page=4", nil).Code).To(Equal(http.StatusNotFound))
			Expect(call(http.MethodGet, "/api/orders/?page=zero", nil).Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("generic CRUD", func() {
		It("validates request bodies against the schemas", func() {
			Expect(call(http.MethodPost, "/api/customers/", map[string]interface{}{"name": "No Email"}).Code).To(Equal(http.StatusBadRequest))
			Expect(call(http.MethodPost, "/api/customers/", map[string]interface{}{"name": "X", "email": "not-an-email"}).Code).To(Equal(http.StatusBadRequest))
			Expect(call(http.MethodPost, "/api/orders/", map[string]interface{}{"customer": 1, "status": "PAID"}).Code).To(Equal(http.StatusBadRequest))

			req := httptest.NewRequest(http.MethodPost, "/api/customers/", bytes.NewBufferString("{nope"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("refuses an order for a missing customer or a customer change", func() {
			Expect(call(http.MethodPost, "/api/orders/", map[string]interface{}{"customer": 77}).Code).To(Equal(http.StatusBadRequest))

			a := createCustomer("a@test.com")
			b := createCustomer("b@test.com")
			o := createOrder(a.ID, "draft", 0)
			rec := call(http.MethodPatch, fmt.Sprintf("/api/orders/%d/", o.ID), map[string]interface{}{"customer": b.ID})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("supports the full item lifecycle", func() {
			c := createCustomer("c@test.com")
			o := createOrder(c.ID, "draft", 0)

			rec := call(http.MethodPost, "/api/items/", map[string]interface{}{"order": o.ID, "sku": "SKU-9", "quantity": 2, "unit_price_cents": 499})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			var item model.OrderItem
			decode(rec, &item)

			Expect(call(http.MethodPost, "/api/items/", map[string]interface{}{"order": o.ID, "sku": "SKU-9", "quantity": 0, "unit_price_cents": 499}).Code).
				To(Equal(http.StatusBadRequest))

			rec = call(http.MethodPut, fmt.Sprintf("/api/items/%d/", item.ID), map[string]interface{}{"order": o.ID, "sku": "SKU-10", "quantity": 1, "unit_price_cents": 999})
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = call(http.MethodGet, fmt.Sprintf("/api/orders/%d/items/", o.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var items []model.OrderItem
			decode(rec, &items)
			Expect(items).To(HaveLen(1))
			Expect(items[0].SKU).To(Equal("SKU-10"))

			Expect(call(http.MethodDelete, fmt.Sprintf("/api/items/%d", item.ID), nil).Code).To(Equal(http.StatusNoContent))
			Expect(call(http.MethodGet, fmt.Sprintf("/api/items/%d", item.ID), nil).Code).To(Equal(http.StatusNotFound))
		})

		It("deletes a customer together with its orders", func() {
			c := createCustomer("c@test.com")
			o := createOrder(c.ID, "paid", 100)

			Expect(call(http.MethodDelete, fmt.Sprintf("/api/customers/%d/", c.ID), nil).Code).To(Equal(http.StatusNoContent))
			Expect(call(http.MethodGet, fmt.Sprintf("/api/orders/%d/", o.ID), nil).Code).To(Equal(http.StatusNotFound))
		})

		It("answers 404 for a non-numeric id", func() {
			Expect(call(http.MethodGet, "/api/orders/abc/", nil).Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("health", func() {
		It("reports ok while the database answers", func() {
			rec := call(http.MethodGet, "/healthz", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": "ok"}`))
		})
	})
})
