// Package langdetect guesses the language of a transcript.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Auto is returned when no language could be determined.
const Auto = "auto"

var detector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		WithLowAccuracyMode().
		Build()
})

// Detect returns the lowercase ISO-639-1 code and English name of the
// language of text, or Auto and "" if it is unknown.
func Detect(text string) (code, name string) {
	if strings.TrimSpace(text) == "" {
		return Auto, ""
	}
	lang, ok := detector().DetectLanguageOf(text)
	if !ok {
		return Auto, ""
	}
	return strings.ToLower(lang.IsoCode639_1().String()), lang.String()
}

// Warm builds the detector ahead of the first Detect call. Building loads
// the language models and takes a noticeable moment.
func Warm() {
	detector()
}
