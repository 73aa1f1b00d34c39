package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/elumia/wellness-api/internal/appointment"
)

func bookAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		profUID := req.ProfessionalFirebaseUID
		if profUID == "" {
			profUID = req.ProfessionalID
		}
		if profUID == "" || req.SlotID == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "Professional, slot, date, and time are required.")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slotId must be a valid UUID")
			return
		}

		notes := req.PatientNotes
		if notes == "" {
			notes = req.Notes
		}

		appt, err := svc.Book(r.Context(), userFrom(r.Context()), appointment.BookRequest{
			ProfessionalUID: profUID,
			SlotID:          slotID,
			Notes:           notes,
		})
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{Msg: "Appointment booked successfully", Appointment: appt})
	}
}

func myAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListMine(r.Context(), userFrom(r.Context()))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if appts == nil {
			appts = []appointment.Appointment{}
		}
		writeJSON(w, http.StatusOK, appts)
	}
}

func setAppointmentStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req SetStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		notes := req.ProfessionalNotes
		if notes == "" {
			notes = req.Notes
		}

		status := appointment.Status(strings.ToLower(strings.TrimSpace(req.Status)))
		appt, err := svc.SetStatus(r.Context(), userFrom(r.Context()), id, status, notes)
		if err != nil {
			handleStatusError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{
			Msg:         fmt.Sprintf("Appointment %s successfully", appt.Status),
			Appointment: appt,
		})
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrProfessionalNotFound):
		writeError(w, http.StatusNotFound, "professional_not_found", "Professional not found")
	case errors.Is(err, appointment.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", "Selected slot not found")
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", "This slot is already booked")
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", "Invalid status provided")
	case errors.Is(err, appointment.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "Appointment not found")
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Only professionals can update appointment status")
	case errors.Is(err, appointment.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", "Not authorized to update this appointment")
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
