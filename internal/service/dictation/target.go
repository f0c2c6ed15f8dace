package dictation

import "time"

// EditKind identifies the user gesture that touched the buffer.
type EditKind string

const (
	EditKey     EditKind = "key"
	EditPointer EditKind = "pointer"
	EditPaste   EditKind = "paste"
	EditSelect  EditKind = "select"
)

// UserEdit is emitted by a render target when the user interacts with it directly.
type UserEdit struct {
	Kind EditKind
	At   time.Time
}

// RenderTarget is the text editing surface that owns the buffer.
// Offsets are counted in runes.
type RenderTarget interface {
	Content() string
	SetContent(text string)
	Caret() int
	SetCaret(offset int)
	Edits() <-chan UserEdit
}

// Interrupter stops capture in step with a user edit.
type Interrupter interface {
	Interrupt(kind EditKind, applyEdit func()) bool
}

// InterruptibleTarget is a RenderTarget that reports user edits by calling
// Interrupt with the edit itself instead of through Edits.
type InterruptibleTarget interface {
	RenderTarget
	SetInterrupter(i Interrupter)
}
