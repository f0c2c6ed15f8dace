// Package textbuffer provides an in-memory render target for dictation.
package textbuffer

import (
	"sync"
	"time"
	"unicode/utf8"

	"voice-scribe-service/internal/service/dictation"
)

const editQueueSize = 16

// Buffer is a goroutine-safe editable text buffer with a caret.
//
// SetContent and SetCaret are the programmatic surface used by the
// synchronizer and never emit edits. Type, Click, Paste, Select, Backspace
// and Clear act on behalf of the user. Once a synchronizer is attached they
// are applied through its Interrupt; otherwise each emits a UserEdit.
type Buffer struct {
	mu          sync.Mutex
	text        []rune
	caret       int
	edits       chan dictation.UserEdit
	closed      bool
	interrupter dictation.Interrupter
}

// New creates a buffer holding content with the caret at the end.
func New(content string) *Buffer {
	text := []rune(content)
	return &Buffer{
		text:  text,
		caret: len(text),
		edits: make(chan dictation.UserEdit, editQueueSize),
	}
}

// Content returns the buffer text.
func (b *Buffer) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text)
}

// SetContent replaces the text. The caret is clamped to the new length.
func (b *Buffer) SetContent(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = []rune(text)
	b.caret = clamp(b.caret, len(b.text))
}

// Caret returns the caret offset in runes.
func (b *Buffer) Caret() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caret
}

// SetCaret moves the caret, clamped to the buffer.
func (b *Buffer) SetCaret(offset int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caret = clamp(offset, len(b.text))
}

// Edits returns the user edit notifications.
func (b *Buffer) Edits() <-chan dictation.UserEdit {
	return b.edits
}

// Len returns the text length in runes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.text)
}

// SetInterrupter routes later user actions through i.
func (b *Buffer) SetInterrupter(i dictation.Interrupter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupter = i
}

// Type inserts text at the caret as a keystroke would.
func (b *Buffer) Type(text string) {
	b.userEdit(dictation.EditKey, func() {
		b.mu.Lock()
		b.insert(text)
		b.mu.Unlock()
	})
}

// Paste inserts text at the caret as a clipboard paste.
func (b *Buffer) Paste(text string) {
	b.userEdit(dictation.EditPaste, func() {
		b.mu.Lock()
		b.insert(text)
		b.mu.Unlock()
	})
}

// Click places the caret with the pointer.
func (b *Buffer) Click(offset int) {
	b.userEdit(dictation.EditPointer, func() { b.SetCaret(offset) })
}

// Select selects [start, end). Only the caret is tracked, so it lands on end.
func (b *Buffer) Select(start, end int) {
	if end < start {
		start, end = end, start
	}
	b.userEdit(dictation.EditSelect, func() { b.SetCaret(end) })
}

// Backspace deletes up to n runes before the caret.
func (b *Buffer) Backspace(n int) {
	b.userEdit(dictation.EditKey, func() {
		b.mu.Lock()
		from := clamp(b.caret-n, len(b.text))
		b.text = append(b.text[:from:from], b.text[b.caret:]...)
		b.caret = from
		b.mu.Unlock()
	})
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.userEdit(dictation.EditKey, func() {
		b.mu.Lock()
		b.text = nil
		b.caret = 0
		b.mu.Unlock()
	})
}

// userEdit applies a user action. An attached synchronizer stops capture
// before apply runs; without one the edit is queued on Edits.
func (b *Buffer) userEdit(kind dictation.EditKind, apply func()) {
	b.mu.Lock()
	i := b.interrupter
	b.mu.Unlock()
	if i != nil {
		i.Interrupt(kind, apply)
		return
	}
	apply()
	b.emit(kind)
}

// Close stops edit notifications. Later user actions still edit the text.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.edits)
	}
}

// insert must be called with b.mu held.
func (b *Buffer) insert(text string) {
	if text == "" {
		return
	}
	ins := []rune(text)
	out := make([]rune, 0, len(b.text)+len(ins))
	out = append(out, b.text[:b.caret]...)
	out = append(out, ins...)
	out = append(out, b.text[b.caret:]...)
	b.text = out
	b.caret += utf8.RuneCountInString(text)
}

// emit never blocks. A full queue already holds an interaction the
// synchronizer has yet to see, so dropping is harmless.
func (b *Buffer) emit(kind dictation.EditKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.edits <- dictation.UserEdit{Kind: kind, At: time.Now()}:
	default:
	}
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

var _ dictation.InterruptibleTarget = (*Buffer)(nil)
