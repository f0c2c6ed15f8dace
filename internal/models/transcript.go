// Package models defines the payloads of published dictation events.
package models

const (
	EventTypePartial = "dictation.transcript.partial"
	EventTypeFinal   = "dictation.transcript.final"
)

// DictationPartial is an interim transcript merged into a user's buffer.
type DictationPartial struct {
	EventType   string `json:"eventType" validate:"required,eq=dictation.transcript.partial"`
	SessionID   string `json:"sessionId" validate:"required"`
	UtteranceID string `json:"utteranceId" validate:"required"`
	Principal   string `json:"principal,omitempty"`
	Language    string `json:"language" validate:"required,bcp47_language_tag"`
	Mode        string `json:"mode" validate:"required,oneof=replace splice"`
	Timestamp   int64  `json:"timestamp" validate:"gt=0"`
	Text        string `json:"text"`
}

// DictationFinal is the committed transcript of one utterance.
type DictationFinal struct {
	EventType   string `json:"eventType" validate:"required,eq=dictation.transcript.final"`
	SessionID   string `json:"sessionId" validate:"required"`
	UtteranceID string `json:"utteranceId" validate:"required"`
	Principal   string `json:"principal,omitempty"`
	Language    string `json:"language" validate:"required,bcp47_language_tag"`
	Mode        string `json:"mode" validate:"required,oneof=replace splice"`
	Timestamp   int64  `json:"timestamp" validate:"gt=0"`
	Text        string `json:"text"`
	// Offset is the rune offset in the buffer where the utterance begins.
	Offset int `json:"offset" validate:"gte=0"`
	// SessionOffsetMs is the time since the capture session started.
	SessionOffsetMs int64 `json:"sessionOffsetMs" validate:"gte=0"`
	Partials        int   `json:"partials" validate:"gte=0"`
}
