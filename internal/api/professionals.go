package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elumia/wellness-api/internal/professional"
)

func listProfessionalsHandler(svc ProfessionalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := svc.List(r.Context())
		if err != nil {
			handleProfessionalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profiles)
	}
}

func availabilityHandler(svc ProfessionalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.Availability(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleProfessionalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

func registerProfessionalHandler(svc ProfessionalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req professional.ProfileInput
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		profile, created, err := svc.RegisterProfile(r.Context(), userFrom(r.Context()), req)
		if err != nil {
			handleProfessionalError(w, err)
			return
		}

		if created {
			writeJSON(w, http.StatusCreated, ProfileResponse{Msg: "Professional profile created successfully", Profile: profile})
			return
		}
		writeJSON(w, http.StatusOK, ProfileResponse{Msg: "Professional profile updated successfully", Profile: profile})
	}
}

func myProfessionalProfileHandler(svc ProfessionalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.GetMine(r.Context(), userFrom(r.Context()))
		if err != nil {
			handleProfessionalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func setAvailabilityHandler(svc ProfessionalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetAvailabilityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		slots := req.Slots
		if slots == nil {
			slots = req.NewAvailability
		}

		profile, err := svc.SetAvailability(r.Context(), userFrom(r.Context()), slots)
		if err != nil {
			handleProfessionalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ProfileResponse{Msg: "Availability updated successfully", Profile: profile})
	}
}

func handleProfessionalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, professional.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, professional.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, professional.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "professional_not_found", "Professional not found")
	case errors.Is(err, professional.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
