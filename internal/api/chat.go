package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/chat"
)

func chatHandler(svc ChatService, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		mood := req.Mood
		if mood == "" {
			mood = req.UserMood
		}

		reply, err := svc.Reply(r.Context(), req.Message, req.History, mood)
		if err != nil {
			var upstream *chat.UpstreamError
			switch {
			case errors.Is(err, chat.ErrEmptyMessage):
				writeError(w, http.StatusBadRequest, "empty_message", "Message cannot be empty.")
			case errors.Is(err, chat.ErrUpstreamTimeout):
				writeError(w, http.StatusGatewayTimeout, "upstream_timeout", err.Error())
			case errors.As(err, &upstream):
				log.Warn().Int("upstream_status", upstream.Status).Str("request_id", GetRequestID(r.Context())).Msg("chat provider failed")
				writeError(w, http.StatusInternalServerError, "upstream_error", upstream.Message)
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred during AI chat.")
			}
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}
