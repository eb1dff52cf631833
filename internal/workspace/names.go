package workspace

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxStemLength = 120

// DisplayName turns an uploaded file name into the name offered for
// download: the sanitized stem followed by ext.
func DisplayName(originalName, ext string) string {
	base := originalName
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return SanitizeFilename(stem) + ext
}

// SanitizeFilename strips path separators, control characters and
// characters that are unsafe in file names or header values
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "..", "")

	var sb strings.Builder

	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			continue
		case strings.ContainsRune(`/\:*?"<>|;`, r):
			continue
		default:
			sb.WriteRune(r)
		}
	}

	clean := strings.Trim(strings.TrimSpace(sb.String()), ".")

	if runes := []rune(clean); len(runes) > maxStemLength {
		clean = string(runes[:maxStemLength])
	}

	if clean == "" {
		clean = "document"
	}

	return clean
}
