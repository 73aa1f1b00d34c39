package api

import (
	"github.com/elumia/wellness-api/internal/appointment"
	"github.com/elumia/wellness-api/internal/chat"
	"github.com/elumia/wellness-api/internal/content"
	"github.com/elumia/wellness-api/internal/identity"
	"github.com/elumia/wellness-api/internal/professional"
)

type RegisterUserRequest struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	UserType    string `json:"userType"`
	DisplayName string `json:"displayName"`
}

type UserResponse struct {
	Msg  string         `json:"msg"`
	User *identity.User `json:"user"`
}

type ProfileResponse struct {
	Msg     string                `json:"msg"`
	Profile *professional.Profile `json:"profile"`
}

// SetAvailabilityRequest accepts the list under either key.
type SetAvailabilityRequest struct {
	Slots           []professional.SlotInput `json:"slots"`
	NewAvailability []professional.SlotInput `json:"newAvailability"`
}

// BookAppointmentRequest carries date and time for compatibility; the
// slot's stored values are authoritative.
type BookAppointmentRequest struct {
	ProfessionalID          string `json:"professionalId"`
	ProfessionalFirebaseUID string `json:"professionalFirebaseUid"`
	SlotID                  string `json:"slotId"`
	Date                    string `json:"date"`
	Time                    string `json:"time"`
	Notes                   string `json:"notes"`
	PatientNotes            string `json:"patientNotes"`
}

type SetStatusRequest struct {
	Status            string `json:"status"`
	Notes             string `json:"notes"`
	ProfessionalNotes string `json:"professionalNotes"`
}

type AppointmentResponse struct {
	Msg         string                   `json:"msg"`
	Appointment *appointment.Appointment `json:"appointment"`
}

type LoadMoreResponse struct {
	Type     string         `json:"type"`
	NewItems []content.Item `json:"newItems"`
}

type UniverseMessageResponse struct {
	Message string `json:"message"`
}

type ChatRequest struct {
	Message  string      `json:"message"`
	History  []chat.Turn `json:"history"`
	Mood     string      `json:"mood"`
	UserMood string      `json:"userMood"`
}
