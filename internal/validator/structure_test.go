package validator

import (
	"bytes"
	"testing"

	"pdfconvert/internal/testpdf"

	"github.com/stretchr/testify/assert"
)

func TestCheckStructure(t *testing.T) {
	valid := testpdf.Minimal()

	tests := []struct {
		name       string
		data       []byte
		expectErr  bool
		errorMatch string
	}{
		{
			name: "valid classic xref",
			data: valid,
		},
		{
			name: "valid xref stream",
			data: testpdf.XRefStream(),
		},
		{
			name: "leading garbage before header",
			data: append([]byte("\r\n"), valid...),
		},
		{
			name:       "no header",
			data:       bytes.Replace(valid, []byte("%PDF-1.4"), []byte("%XYZ-1.4"), 1),
			expectErr:  true,
			errorMatch: "header",
		},
		{
			name:       "bad version",
			data:       bytes.Replace(valid, []byte("%PDF-1.4"), []byte("%PDF-x.4"), 1),
			expectErr:  true,
			errorMatch: "version",
		},
		{
			name:       "truncated",
			data:       testpdf.Truncated(),
			expectErr:  true,
			errorMatch: "startxref",
		},
		{
			name:       "missing eof marker",
			data:       bytes.TrimSuffix(valid, []byte("%%EOF\n")),
			expectErr:  true,
			errorMatch: "EOF marker",
		},
		{
			name:       "startxref beyond file",
			data:       replaceStartXRef(valid, "999999"),
			expectErr:  true,
			errorMatch: "outside file",
		},
		{
			name:       "startxref not a number",
			data:       replaceStartXRef(valid, "abc"),
			expectErr:  true,
			errorMatch: "invalid startxref",
		},
		{
			name:       "startxref points into an object body",
			data:       replaceStartXRef(valid, "20"),
			expectErr:  true,
			errorMatch: "neither xref table nor stream",
		},
		{
			name:       "trailer without root",
			data:       testpdf.WithoutRoot(),
			expectErr:  true,
			errorMatch: "/Root",
		},
		{
			name:       "xref entry pointing nowhere",
			data:       bytes.Replace(valid, []byte("0000000015 00000 n"), []byte("0000000016 00000 n"), 1),
			expectErr:  true,
			errorMatch: "does not point at an object",
		},
		{
			name:      "body cut out of the middle",
			data:      cutMiddle(valid),
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStructure(tt.data)

			if !tt.expectErr {
				assert.NoError(t, err)
				return
			}

			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errorMatch)
			}
		})
	}
}

func replaceStartXRef(data []byte, value string) []byte {
	idx := bytes.LastIndex(data, []byte("startxref\n"))
	tail := data[idx+len("startxref\n"):]
	end := bytes.IndexByte(tail, '\n')

	out := append([]byte{}, data[:idx+len("startxref\n")]...)
	out = append(out, value...)

	return append(out, tail[end:]...)
}

// cutMiddle drops a slice of the object bodies so xref offsets go stale
func cutMiddle(data []byte) []byte {
	out := append([]byte{}, data[:40]...)
	return append(out, data[120:]...)
}
