// Package settings stores user dictation preferences.
package settings

import (
	"context"
	"errors"
	"fmt"

	"voice-scribe-service/internal/languages"
)

// ErrInvalid is returned when settings fail validation.
var ErrInvalid = errors.New("invalid settings")

// Settings are the user's dictation preferences.
type Settings struct {
	// Language is the default recognition language for new captures.
	Language string `json:"language" yaml:"language"`
	// AutoInsert inserts the transcript into the focused field without review.
	AutoInsert bool `json:"autoInsert" yaml:"autoInsert"`
	// ConfirmBeforeAdd asks before inserting. Only meaningful with AutoInsert.
	ConfirmBeforeAdd bool `json:"confirmBeforeAdd" yaml:"confirmBeforeAdd"`
}

// Defaults returns the settings used before the user changed anything.
func Defaults() Settings {
	return Settings{
		Language:         languages.Default,
		AutoInsert:       false,
		ConfirmBeforeAdd: true,
	}
}

// Normalize canonicalizes the language tag. It fails with ErrInvalid for
// unsupported languages.
func (s Settings) Normalize() (Settings, error) {
	tag, err := languages.Normalize(s.Language)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s.Language = tag
	return s, nil
}

// ShouldConfirm reports whether an insert needs confirmation. The stored
// ConfirmBeforeAdd value is kept while AutoInsert is off.
func (s Settings) ShouldConfirm() bool {
	return s.AutoInsert && s.ConfirmBeforeAdd
}

// Provider loads and saves settings.
type Provider interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
