package api

import (
	"net/http"

	"github.com/jeffsasaki/regression-lab/orders"
)

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := h.parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, total, err := h.svc.ListCustomers(r.Context(), page.window())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, r, page, total, list)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var f orders.CustomerFields
	if err := decodeBody(r, "customer", &f); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	partial := r.Method == http.MethodPatch
	var f orders.CustomerFields
	if err := decodeBody(r, schemaFor("customer", partial), &f); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.UpdateCustomer(r.Context(), id, f, partial)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteCustomer(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, err := h.parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, total, err := h.svc.ListItems(r.Context(), page.window())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, r, page, total, list)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var f orders.ItemFields
	if err := decodeBody(r, "item", &f); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.CreateItem(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	partial := r.Method == http.MethodPatch
	var f orders.ItemFields
	if err := decodeBody(r, schemaFor("item", partial), &f); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.UpdateItem(r.Context(), id, f, partial)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
