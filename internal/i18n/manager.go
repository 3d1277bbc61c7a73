// Package i18n translates the controller's user-visible strings. Vietnamese
// is the source language: catalog keys are the Vietnamese text itself.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"
)

// Language is a supported locale code.
type Language string

const (
	LanguageVi Language = "vi"
	LanguageEn Language = "en"
)

//go:embed locales/*.json
var localeFS embed.FS

// ParseLanguage maps a configured locale to a Language, falling back to
// Vietnamese for anything unknown.
func ParseLanguage(locale string) Language {
	switch Language(locale) {
	case LanguageEn:
		return LanguageEn
	default:
		return LanguageVi
	}
}

// Manager holds the loaded catalogs.
type Manager struct {
	defaultLanguage Language
	translations    map[Language]map[string]string
	mu              sync.RWMutex
}

// NewManager loads the embedded catalogs.
func NewManager(defaultLanguage Language) (*Manager, error) {
	m := &Manager{
		defaultLanguage: defaultLanguage,
		translations:    make(map[Language]map[string]string),
	}
	if err := m.loadTranslations(); err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}
	return m, nil
}

func (m *Manager) loadTranslations() error {
	for _, lang := range m.AvailableLanguages() {
		if lang == LanguageVi {
			continue
		}
		translations, err := loadTranslationFile(string(lang) + ".json")
		if err != nil {
			return err
		}
		m.translations[lang] = translations
	}
	return nil
}

func loadTranslationFile(filename string) (map[string]string, error) {
	data, err := localeFS.ReadFile(path.Join("locales", filename))
	if err != nil {
		return nil, err
	}

	var fileContent struct {
		Meta struct {
			Version     string `json:"version"`
			Language    string `json:"language"`
			LastUpdated string `json:"last_updated"`
		} `json:"meta"`
		Translations map[string]string `json:"translations"`
	}
	if err := json.Unmarshal(data, &fileContent); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return fileContent.Translations, nil
}

// DefaultLanguage returns the language used when none is given.
func (m *Manager) DefaultLanguage() Language {
	return m.defaultLanguage
}

// AvailableLanguages returns every language with a catalog.
func (m *Manager) AvailableLanguages() []Language {
	return []Language{LanguageVi, LanguageEn}
}

// Translate returns text in lang, or text itself when lang is Vietnamese or
// the catalog has no entry.
func (m *Manager) Translate(text string, lang Language) string {
	if lang == "" {
		lang = m.defaultLanguage
	}
	if lang == LanguageVi {
		return text
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if translations, ok := m.translations[lang]; ok {
		if translation, found := translations[text]; found {
			return translation
		}
	}
	return text
}
