package stt

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Indic names pinned so prompts stay stable across CLDR releases.
var languageNames = map[string]string{
	"as": "assamese",
	"bn": "bengali",
	"en": "english",
	"gu": "gujarati",
	"hi": "hindi",
	"kn": "kannada",
	"ml": "malayalam",
	"mr": "marathi",
	"ne": "nepali",
	"or": "odia",
	"pa": "punjabi",
	"sa": "sanskrit",
	"ta": "tamil",
	"te": "telugu",
	"ur": "urdu",
}

// LanguageName maps an ISO 639 code (as whisper.cpp reports it) to the
// lowercase English name used in prompts. Names pass through lowercased and
// codes without a known name are returned as given. Only an empty or "auto"
// detection becomes "english".
func LanguageName(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" || c == "auto" {
		return "english"
	}
	if name, ok := languageNames[c]; ok {
		return name
	}
	if len(c) > 3 {
		return c
	}
	base, err := language.ParseBase(c)
	if err != nil {
		return c
	}
	if name := display.English.Languages().Name(base); name != "" {
		return strings.ToLower(name)
	}
	return c
}
