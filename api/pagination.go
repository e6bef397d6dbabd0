package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/store"
)

// Paginated is the envelope of every list response. Next and Previous are
// absolute URLs, or null on the last/first page.
type Paginated struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

type pageRequest struct {
	number int
	size   int
}

func (p pageRequest) window() store.Page {
	return store.Page{Limit: p.size, Offset: (p.number - 1) * p.size}
}

// parsePage reads page (1-based) and page_size. page_size above the
// maximum is clamped.
func (h *Handler) parsePage(r *http.Request) (pageRequest, error) {
	p := pageRequest{number: 1, size: h.pageSize}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, model.Invalid("page must be a positive integer, got %q", v)
		}
		p.number = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, model.Invalid("page_size must be a positive integer, got %q", v)
		}
		p.size = min(n, h.maxPageSize)
	}
	// No listing is that long, and the offset would overflow.
	if p.number-1 > math.MaxInt/p.size {
		return p, model.NotFound("page", int64(p.number))
	}
	return p, nil
}

// paginate builds the envelope for one page of total results. A page past
// the last one is not found, except the first page of an empty listing.
func paginate(r *http.Request, p pageRequest, total int, results interface{}) (Paginated, error) {
	if p.number > 1 && (p.number-1)*p.size >= total {
		return Paginated{}, model.NotFound("page", int64(p.number))
	}
	out := Paginated{Count: total, Results: results}
	if p.number*p.size < total {
		out.Next = pageURL(r, p.number+1)
	}
	if p.number > 1 {
		out.Previous = pageURL(r, p.number-1)
	}
	return out, nil
}

func pageURL(r *http.Request, page int) *string {
	u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
