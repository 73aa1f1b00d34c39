package api

import (
	"errors"
	"net/http"

	"github.com/elumia/wellness-api/internal/auth"
	"github.com/elumia/wellness-api/internal/identity"
)

func registerUserHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())

		var req RegisterUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		email := req.Email
		if email == "" {
			email = id.Email
		}
		role := req.Role
		if role == "" {
			role = req.UserType
		}

		user, created, err := svc.RegisterProfile(r.Context(), id.UID, identity.RegisterInput{
			Email:       email,
			Role:        role,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			handleUserError(w, err)
			return
		}

		if created {
			writeJSON(w, http.StatusCreated, UserResponse{Msg: "User profile created successfully", User: user})
			return
		}
		writeJSON(w, http.StatusOK, UserResponse{Msg: "User profile updated successfully", User: user})
	}
}

func meHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())

		user, err := svc.GetByFirebaseUID(r.Context(), id.UID)
		if err != nil {
			handleUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func handleUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, identity.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "User profile not found in database.")
	case errors.Is(err, identity.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
