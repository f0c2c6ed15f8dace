package ws

import (
	"voice-scribe-service/internal/languages"
	"voice-scribe-service/internal/settings"
)

// Message types sent by the client.
const (
	TypeHello    = "hello"
	TypeStart    = "start"
	TypeStop     = "stop"
	TypeResult   = "result"
	TypeError    = "error"
	TypeEnd      = "end"
	TypeEdit     = "edit"
	TypeLanguage = "language"
)

// Message types sent by the server. TypeError is shared.
const (
	TypeReady           = "ready"
	TypeRecognizerStart = "recognizer.start"
	TypeRecognizerStop  = "recognizer.stop"
	TypeContent         = "content"
	TypeCaret           = "caret"
	TypeState           = "state"
)

// Envelope is the JSON frame exchanged in both directions. Only the fields
// relevant to Type are set.
type Envelope struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`

	// result
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"isFinal,omitempty"`

	// error
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`

	// edit, hello, content, caret
	Kind    string  `json:"kind,omitempty"`
	Content *string `json:"content,omitempty"`
	Caret   *int    `json:"caret,omitempty"`

	// start, language, recognizer.start
	Language string `json:"language,omitempty"`

	// hello, ready
	Supported *bool              `json:"supported,omitempty"`
	Languages []languages.Option `json:"languages,omitempty"`
	Settings  *settings.Settings `json:"settings,omitempty"`

	// state
	State string `json:"state,omitempty"`
}

func contentMessage(text string) Envelope {
	return Envelope{Type: TypeContent, Content: &text}
}

func caretMessage(offset int) Envelope {
	return Envelope{Type: TypeCaret, Caret: &offset}
}

func errorMessage(sessionID, reason, message string) Envelope {
	return Envelope{Type: TypeError, SessionID: sessionID, Reason: reason, Message: message}
}
