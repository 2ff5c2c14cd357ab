package api

import (
	"net/http"
	"strings"

	"ms-booking/internal/catalog"

	"github.com/go-chi/chi/v5"
)

func filterFromQuery(r *http.Request, activeOnly bool) catalog.Filter {
	q := r.URL.Query()
	return catalog.Filter{
		CategoryID: q.Get("category"),
		Search:     q.Get("q"),
		Sort:       catalog.SortOrder(strings.ToUpper(q.Get("sort"))),
		ActiveOnly: activeOnly,
	}
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Catalog.List(filterFromQuery(r, true)))
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.State.Catalog.GetActive(chi.URLParam(r, "serviceId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Catalog.Categories())
}
