package recognizer

// Reason is the recognizer's error vocabulary. Values match the names used by
// browser speech engines so they can travel unchanged over the wire.
type Reason string

const (
	ReasonNoSpeech             Reason = "no-speech"
	ReasonAborted              Reason = "aborted"
	ReasonAudioCapture         Reason = "audio-capture"
	ReasonNetwork              Reason = "network"
	ReasonNotAllowed           Reason = "not-allowed"
	ReasonServiceNotAllowed    Reason = "service-not-allowed"
	ReasonBadGrammar           Reason = "bad-grammar"
	ReasonLanguageNotSupported Reason = "language-not-supported"
	ReasonCaptureLimit         Reason = "capture-limit"
	ReasonUnknown              Reason = "unknown"
)

const (
	// StartFailedMessage is shown when a start request fails without a specific reason.
	StartFailedMessage = "Failed to start speech recognition. Please try again."
	// UnsupportedMessage is shown when no recognizer is available.
	UnsupportedMessage = "Speech recognition is not supported in this environment."
)

var messages = map[Reason]string{
	ReasonNoSpeech:             "No speech was detected. Please try again.",
	ReasonAborted:              "Speech recognition was aborted.",
	ReasonAudioCapture:         "No microphone was found or microphone is not working.",
	ReasonNetwork:              "Network error occurred. Please check your connection.",
	ReasonNotAllowed:           "Microphone permission was denied. Please allow microphone access.",
	ReasonServiceNotAllowed:    "The speech recognition service is not allowed.",
	ReasonBadGrammar:           "There was an error with the speech grammar.",
	ReasonLanguageNotSupported: "The language is not supported.",
	ReasonCaptureLimit:         "Dictation stopped after reaching the session limit.",
}

// Message returns the human-readable text for the reason.
func (r Reason) Message() string {
	if msg, ok := messages[r]; ok {
		return msg
	}
	return "Unknown speech recognition error"
}

// Known reports whether r is part of the vocabulary.
func (r Reason) Known() bool {
	_, ok := messages[r]
	return ok
}

// ParseReason maps a wire name onto the vocabulary. Unrecognized names become
// ReasonUnknown. "service-unavailable", "permission-denied" and the other
// descriptive aliases used by non-browser engines are accepted.
func ParseReason(s string) Reason {
	r := Reason(s)
	if r.Known() {
		return r
	}
	switch s {
	case "no-speech-detected":
		return ReasonNoSpeech
	case "audio-capture-failure":
		return ReasonAudioCapture
	case "network-error":
		return ReasonNetwork
	case "permission-denied":
		return ReasonNotAllowed
	case "service-unavailable":
		return ReasonServiceNotAllowed
	case "grammar-error":
		return ReasonBadGrammar
	case "language-unsupported":
		return ReasonLanguageNotSupported
	}
	return ReasonUnknown
}
