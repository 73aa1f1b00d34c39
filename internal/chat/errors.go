package chat

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrUpstreamTimeout = errors.New("AI provider timed out, please retry")
)

// UpstreamError is a provider failure whose message is safe to show the
// user.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }

const failurePrefix = "Failed to get AI response from backend: "

// rewrite turns a raw provider error into a readable message.
func rewrite(status int, providerMsg string) *UpstreamError {
	msg := providerMsg
	switch {
	case strings.Contains(providerMsg, "First content should be with role 'user'"):
		msg = "Gemini API Error: Conversation history sequence is incorrect. Try starting a new chat if issues persist."
	case status == http.StatusForbidden:
		msg = "Gemini API Error: API Key not authorized or project limits exceeded. Check your Google Cloud Project settings."
	case status == http.StatusTooManyRequests || strings.Contains(strings.ToLower(providerMsg), "quota"):
		msg = "Gemini API Error: Daily usage quota exceeded. Please try again later."
	case status == http.StatusBadRequest:
		msg = "Gemini API Error: Invalid request format or inappropriate content. Please rephrase."
	case msg == "":
		msg = fmt.Sprintf("Gemini API Error: unexpected status %d", status)
	}
	return &UpstreamError{Status: status, Message: failurePrefix + msg}
}
