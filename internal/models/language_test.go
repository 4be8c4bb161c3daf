package models

import (
	"testing"
	"time"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected CardLanguage
	}{
		{"full name", "German", LanguageGerman},
		{"iso code", "de", LanguageGerman},
		{"three letter", "fra", LanguageFrench},
		{"italian", "it", LanguageItalian},
		{"spanish", "es", LanguageSpanish},
		{"japanese", "jp", LanguageJapanese},
		{"mixed case with spaces", "  JAPANESE ", LanguageJapanese},
		{"english", "en", LanguageEnglish},
		{"empty defaults to English", "", LanguageEnglish},
		{"unknown defaults to English", "klingon", LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeLanguage(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeLanguage(%q) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestProviderCode(t *testing.T) {
	tests := []struct {
		language CardLanguage
		expected string
	}{
		{LanguageEnglish, "en"},
		{LanguageGerman, "de"},
		{LanguageFrench, "fr"},
		{LanguageItalian, "it"},
		{LanguageSpanish, "es"},
		{LanguageJapanese, "jp"},
		{CardLanguage("Unknown"), "en"},
	}

	for _, tt := range tests {
		if got := tt.language.ProviderCode(); got != tt.expected {
			t.Errorf("ProviderCode(%s) = %s, want %s", tt.language, got, tt.expected)
		}
	}
}

func TestUTCDay(t *testing.T) {
	// 23:30 in UTC+3 is 20:30 UTC; the day key must stay on the UTC date
	loc := time.FixedZone("UTC+3", 3*60*60)
	input := time.Date(2026, 3, 15, 23, 30, 0, 0, loc)

	day := UTCDay(input)
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !day.Equal(want) {
		t.Errorf("UTCDay(%v) = %v, want %v", input, day, want)
	}
	if day.Location() != time.UTC {
		t.Errorf("UTCDay should return UTC, got %v", day.Location())
	}
}
