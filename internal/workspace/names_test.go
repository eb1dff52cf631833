package workspace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		original string
		ext      string
		expected string
	}{
		{"report.pdf", ".docx", "report.docx"},
		{"Annual Report 2024.PDF", ".xlsx", "Annual Report 2024.xlsx"},
		{"../../../etc/passwd.pdf", ".docx", "passwd.docx"},
		{`C:\Users\me\scan.pdf`, ".docx", "scan.docx"},
		{"звіт.pdf", ".docx", "звіт.docx"},
		{".pdf", ".docx", "document.docx"},
		{"", ".docx", "document.docx"},
		{"a\"b;c.pdf", ".docx", "abc.docx"},
		{"archive.tar.pdf", ".docx", "archive.tar.docx"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayName(tt.original, tt.ext))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"normal", "normal"},
		{"../../../etc/passwd", "etcpasswd"},
		{"file/with\\slashes", "filewithslashes"},
		{"file:with*dangerous?chars", "filewithdangerouschars"},
		{"line\nbreak\r", "linebreak"},
		{"  spaced  ", "spaced"},
		{"", "document"},
		{"...", "document"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
	}

	long := strings.Repeat("a", 500)
	assert.Len(t, SanitizeFilename(long), maxStemLength)
}
