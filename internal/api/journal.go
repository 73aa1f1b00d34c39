package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/elumia/wellness-api/internal/journal"
)

func listJournalHandler(svc JournalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.List(r.Context(), userFrom(r.Context()).ID)
		if err != nil {
			handleJournalError(w, err)
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func createJournalHandler(svc JournalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req journal.EntryInput
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		entry, err := svc.Create(r.Context(), userFrom(r.Context()).ID, req)
		if err != nil {
			handleJournalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func updateJournalHandler(svc JournalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		var req journal.EntryInput
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		entry, err := svc.Update(r.Context(), userFrom(r.Context()).ID, id, req)
		if err != nil {
			handleJournalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func deleteJournalHandler(svc JournalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		if err := svc.Delete(r.Context(), userFrom(r.Context()).ID, id); err != nil {
			handleJournalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Msg: "Journal entry removed successfully"})
	}
}

func handleJournalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, journal.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, journal.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "entry_not_found", "Journal entry not found")
	case errors.Is(err, journal.ErrNotOwner):
		writeError(w, http.StatusUnauthorized, "not_owner", "User not authorized for this entry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
