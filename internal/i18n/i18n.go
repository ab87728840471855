// Package i18n holds the output labels for each supported language.
package i18n

import (
	"fmt"
	"slices"
)

const (
	// DefaultLanguage also backs keys missing from another catalogue.
	DefaultLanguage = "en"
	// BerneseGermanMessages is the Swiss German dialect of the Canton of Bern.
	BerneseGermanMessages = "ch_be"
)

var catalogues = map[string]map[string]string{
	DefaultLanguage:       englishMessages,
	BerneseGermanMessages: berneseGermanMessages,
}

// Localizer looks up labels in one catalogue.
type Localizer struct {
	messages map[string]string
}

// NewLocalizer returns a localizer for language; unknown languages get English.
func NewLocalizer(language string) *Localizer {
	messages, ok := catalogues[language]
	if !ok {
		messages = englishMessages
	}
	return &Localizer{messages: messages}
}

// T returns the label for key formatted with args. Keys missing from the
// catalogue fall back to English, then to the key itself.
func (l *Localizer) T(key string, args ...any) string {
	message, ok := l.messages[key]
	if !ok {
		if message, ok = englishMessages[key]; !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// GetSupportedLanguages returns the language codes with a catalogue.
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, BerneseGermanMessages}
}

// IsSupported reports whether language has its own catalogue.
func IsSupported(language string) bool {
	return slices.Contains(GetSupportedLanguages(), language)
}
