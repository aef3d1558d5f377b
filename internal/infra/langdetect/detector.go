package langdetect

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// minTextRunes is the shortest text worth classifying.
const minTextRunes = 20

// sampleRunes bounds how much text is classified.
const sampleRunes = 2000

var supported = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Russian,
}

// Detector guesses the language of normalized text.
type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector over a fixed set of common languages.
func NewDetector() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			WithLowAccuracyMode().
			Build(),
	}
}

// Detect returns the ISO 639-1 code of the detected language.
func (d *Detector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minTextRunes {
		return "", false
	}
	if utf8.RuneCountInString(text) > sampleRunes {
		text = string([]rune(text)[:sampleRunes])
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}
