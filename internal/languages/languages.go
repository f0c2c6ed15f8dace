// Package languages lists the recognition languages offered to users.
package languages

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Default is used when no language was chosen.
const Default = "en-US"

// ErrUnsupported is returned for tags outside the supported set.
var ErrUnsupported = errors.New("language not supported")

// Option is a selectable recognition language.
type Option struct {
	Tag   string `json:"value"`
	Label string `json:"label"`
}

// Options are the supported languages, in display order.
var Options = []Option{
	{Tag: "en-US", Label: "English (US)"},
	{Tag: "en-GB", Label: "English (UK)"},
	{Tag: "es-ES", Label: "Spanish"},
	{Tag: "fr-FR", Label: "French"},
	{Tag: "de-DE", Label: "German"},
	{Tag: "it-IT", Label: "Italian"},
	{Tag: "pt-BR", Label: "Portuguese (Brazil)"},
	{Tag: "zh-CN", Label: "Chinese (Simplified)"},
	{Tag: "ja-JP", Label: "Japanese"},
	{Tag: "ko-KR", Label: "Korean"},
	{Tag: "hi-IN", Label: "Hindi"},
	{Tag: "ru-RU", Label: "Russian"},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(Options))
	for i, o := range Options {
		tags[i] = language.MustParse(o.Tag)
	}
	return language.NewMatcher(tags)
}()

// Normalize maps a BCP-47 tag onto a supported option and returns that
// option's tag. The option must share the tag's base language. A tag without
// a region may take the option's region ("pt" is "pt-BR"), but an explicit
// region must match ("pt-PT" is unsupported).
func Normalize(tag string) (string, error) {
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnsupported, tag, err)
	}
	_, idx, conf := matcher.Match(parsed)
	if conf < language.High {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, tag)
	}
	option := language.MustParse(Options[idx].Tag)

	base, _ := parsed.Base()
	optionBase, _ := option.Base()
	if base != optionBase {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, tag)
	}
	if region, c := parsed.Region(); c == language.Exact {
		if optionRegion, _ := option.Region(); region != optionRegion {
			return "", fmt.Errorf("%w: %q", ErrUnsupported, tag)
		}
	}
	return Options[idx].Tag, nil
}

// Label returns the display label for tag, or tag itself when unknown.
func Label(tag string) string {
	for _, o := range Options {
		if o.Tag == tag {
			return o.Label
		}
	}
	return tag
}

// Tags returns the supported tags in display order.
func Tags() []string {
	out := make([]string, len(Options))
	for i, o := range Options {
		out[i] = o.Tag
	}
	return out
}
