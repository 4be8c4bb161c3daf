package models

import "strings"

// CardLanguage represents the language edition of a card
type CardLanguage string

const (
	LanguageEnglish  CardLanguage = "English"
	LanguageGerman   CardLanguage = "German"
	LanguageFrench   CardLanguage = "French"
	LanguageItalian  CardLanguage = "Italian"
	LanguageSpanish  CardLanguage = "Spanish"
	LanguageJapanese CardLanguage = "Japanese"
)

// AllCardLanguages returns all supported card languages
func AllCardLanguages() []CardLanguage {
	return []CardLanguage{
		LanguageEnglish,
		LanguageGerman,
		LanguageFrench,
		LanguageItalian,
		LanguageSpanish,
		LanguageJapanese,
	}
}

// IsValid reports whether the language is one of the supported editions
func (l CardLanguage) IsValid() bool {
	for _, lang := range AllCardLanguages() {
		if l == lang {
			return true
		}
	}
	return false
}

// ProviderCode returns the two-letter path segment the upstream price
// providers expect for this language
func (l CardLanguage) ProviderCode() string {
	switch l {
	case LanguageGerman:
		return "de"
	case LanguageFrench:
		return "fr"
	case LanguageItalian:
		return "it"
	case LanguageSpanish:
		return "es"
	case LanguageJapanese:
		return "jp"
	default:
		return "en"
	}
}

// NormalizeLanguage maps various language string formats to our CardLanguage type.
// Handles ISO codes and common variations; unknown/empty values default to English.
func NormalizeLanguage(lang string) CardLanguage {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "german", "de", "deu", "ger":
		return LanguageGerman
	case "french", "fr", "fra", "fre":
		return LanguageFrench
	case "italian", "it", "ita":
		return LanguageItalian
	case "spanish", "es", "esp", "spa":
		return LanguageSpanish
	case "japanese", "jp", "ja", "jpn":
		return LanguageJapanese
	default:
		return LanguageEnglish
	}
}
