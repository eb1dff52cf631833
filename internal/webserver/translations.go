package webserver

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
)

//go:embed translations/*.json
var translationFiles embed.FS

// Translation holds translations for a specific language
type Translation map[string]string

// Translations holds all loaded translations
type Translations map[string]Translation

var (
	translations     Translations
	translationsOnce sync.Once
	translationsErr  error
)

// LoadTranslations loads every embedded translations/<lang>.json file once
func LoadTranslations() error {
	translationsOnce.Do(func() {
		translations, translationsErr = readTranslations(translationFiles)
	})

	return translationsErr
}

func readTranslations(fsys fs.FS) (Translations, error) {
	files, err := fs.Glob(fsys, "translations/*.json")
	if err != nil {
		return nil, err
	}

	loaded := make(Translations, len(files))

	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}

		var trans Translation
		if err = json.Unmarshal(data, &trans); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}

		loaded[strings.TrimSuffix(path.Base(file), ".json")] = trans
	}

	if _, ok := loaded["en"]; !ok {
		return nil, fmt.Errorf("english translations missing")
	}

	return loaded, nil
}

// GetLanguageFromRequest determines the language from URL param or Accept-Language header
func GetLanguageFromRequest(r *http.Request) string {
	_ = LoadTranslations()

	if lang := r.URL.Query().Get("lang"); lang != "" {
		if isValidLanguage(lang) {
			return lang
		}
	}

	// Format: "en-US,en;q=0.9,uk;q=0.8"
	acceptLang := r.Header.Get("Accept-Language")
	for lang := range strings.SplitSeq(acceptLang, ",") {
		lang = strings.TrimSpace(strings.Split(lang, ";")[0])
		lang = strings.ToLower(strings.Split(lang, "-")[0])

		if lang == "ru" {
			return "uk"
		}

		if isValidLanguage(lang) {
			return lang
		}
	}

	return "en"
}

func isValidLanguage(lang string) bool {
	_, exists := translations[lang]
	return exists
}

// GetTranslation returns the translation for a given key and language,
// falling back to English and then to the key itself
func GetTranslation(lang, key string) string {
	_ = LoadTranslations()

	if text, ok := translations[lang][key]; ok {
		return text
	}

	if text, ok := translations["en"][key]; ok {
		return text
	}

	return key
}

// GetTranslations returns all translations for a given language
func GetTranslations(lang string) Translation {
	_ = LoadTranslations()

	if trans, exists := translations[lang]; exists {
		return trans
	}

	if trans, exists := translations["en"]; exists {
		return trans
	}

	return make(Translation)
}
