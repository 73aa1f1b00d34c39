package chat

import "strings"

// WelcomeMessage is the canned greeting the client shows before the
// first exchange. It is never sent to the model.
const WelcomeMessage = "Hello! I'm Elumia AI, your companion for emotional wellness. How can I help you today?"

// Turn is one message of the client-side conversation.
type Turn struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

// buildHistory converts client turns into model contents. The model
// requires the conversation to open with a user turn, so the welcome
// message and any other leading model turns are dropped.
func buildHistory(turns []Turn) []content {
	start := 0
	if len(turns) > 0 && turns[0].Sender == "ai" && turns[0].Message == WelcomeMessage {
		start = 1
	}

	out := make([]content, 0, len(turns))
	for _, t := range turns[start:] {
		text := strings.TrimSpace(t.Message)
		if text == "" {
			continue
		}
		role := "model"
		if t.Sender == "user" {
			role = "user"
		}
		if len(out) == 0 && role != "user" {
			continue
		}
		out = append(out, content{Role: role, Parts: []part{{Text: text}}})
	}
	return out
}
