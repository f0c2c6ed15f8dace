package ws

import (
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"voice-scribe-service/internal/service/dictation"
)

// mirror is the server-side copy of the client's text box. Writes made by the
// synchronizer are forwarded to the client; client edits are applied with
// update from inside Synchronizer.Interrupt, so Edits never fires.
//
// The synchronizer works in runes. Carets on the wire are UTF-16 code units,
// the unit of a browser's selectionStart.
type mirror struct {
	send func(Envelope) error

	mu      sync.Mutex
	content string
	caret   int
}

func newMirror(send func(Envelope) error, content *string, caret *int) *mirror {
	m := &mirror{send: send}
	m.update(content, caret)
	return m
}

func (m *mirror) Content() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content
}

func (m *mirror) SetContent(text string) {
	m.mu.Lock()
	m.content = text
	m.caret = clampCaret(m.caret, text)
	m.mu.Unlock()
	m.send(contentMessage(text))
}

func (m *mirror) Caret() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caret
}

func (m *mirror) SetCaret(offset int) {
	m.mu.Lock()
	m.caret = clampCaret(offset, m.content)
	units := utf16Offset(m.content, m.caret)
	m.mu.Unlock()
	m.send(caretMessage(units))
}

func (m *mirror) Edits() <-chan dictation.UserEdit { return nil }

// update applies the state the client reported. A nil field keeps the mirrored
// value, except that new content without a caret puts the caret at its end.
func (m *mirror) update(content *string, caret *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if content != nil {
		m.content = *content
		m.caret = utf8.RuneCountInString(m.content)
	}
	if caret != nil {
		m.caret = runeOffset(m.content, *caret)
	}
}

func clampCaret(offset int, content string) int {
	if offset < 0 {
		return 0
	}
	if n := utf8.RuneCountInString(content); offset > n {
		return n
	}
	return offset
}

// runeOffset converts a UTF-16 offset into content to runes. An offset inside
// a surrogate pair rounds up to the end of that character.
func runeOffset(content string, units int) int {
	if units <= 0 {
		return 0
	}
	n, seen := 0, 0
	for _, r := range content {
		if seen >= units {
			break
		}
		seen += utf16Units(r)
		n++
	}
	return n
}

// utf16Offset converts a rune offset into content to UTF-16 code units.
func utf16Offset(content string, runes int) int {
	units := 0
	for _, r := range content {
		if runes <= 0 {
			break
		}
		units += utf16Units(r)
		runes--
	}
	return units
}

func utf16Units(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

var _ dictation.RenderTarget = (*mirror)(nil)
