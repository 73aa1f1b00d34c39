package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/elumia/wellness-api/internal/content"
)

func upliftmentContentHandler(svc ContentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetContent(r.Context(), r.URL.Query().Get("mood")))
	}
}

func loadMoreHandler(svc ContentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		kind := q.Get("type")

		count := 0
		if raw := q.Get("currentCount"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid_count", "currentCount must be a non-negative integer")
				return
			}
			count = n
		}

		items, err := svc.LoadMore(content.Kind(kind), count)
		if err != nil {
			if errors.Is(err, content.ErrUnknownType) {
				writeError(w, http.StatusBadRequest, "invalid_content_type", "Invalid content type for loading more.")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, LoadMoreResponse{Type: kind, NewItems: items})
	}
}

func universeMessageHandler(svc ContentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, UniverseMessageResponse{Message: svc.UniverseMessage()})
	}
}
