// Package validator decides whether an uploaded byte stream is a PDF the
// service is willing to convert. It never touches the filesystem.
package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"pdfconvert/internal/types"
)

// DefaultMaxSize is the upload limit used when none is configured
const DefaultMaxSize = 50 * 1024 * 1024

// PageCounter reports how many pages an in-memory PDF has
type PageCounter interface {
	CountPages(data []byte) (int, error)
}

// Result is the outcome of a validation: Accepted when Reason is empty
type Result struct {
	Reason types.Reason
	Detail string
}

// Accepted reports whether the input passed every check
func (r Result) Accepted() bool {
	return r.Reason == types.ReasonNone
}

// Err converts a rejection into a typed error, nil when accepted
func (r Result) Err() error {
	if r.Accepted() {
		return nil
	}

	return types.Errorf(r.Reason, "%s", r.Detail)
}

type Validator struct {
	maxSize    int64
	extensions []string
	pages      PageCounter
}

type Option func(*Validator)

// WithPageCounter enables rejection of documents that have no readable pages
func WithPageCounter(pc PageCounter) Option {
	return func(v *Validator) {
		v.pages = pc
	}
}

// WithExtensions replaces the accepted file suffixes
func WithExtensions(exts ...string) Option {
	return func(v *Validator) {
		v.extensions = exts
	}
}

func New(maxSize int64, opts ...Option) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	v := &Validator{
		maxSize:    maxSize,
		extensions: []string{".pdf"},
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// Validate runs the extension, size and structure checks in that order and
// stops at the first failure. declaredSize may be zero when unknown.
func (v *Validator) Validate(fileName string, declaredSize int64, data []byte) Result {
	if !v.allowedExtension(fileName) {
		return Result{
			Reason: types.ReasonWrongExtension,
			Detail: fmt.Sprintf("extension %q not accepted", filepath.Ext(fileName)),
		}
	}

	if declaredSize > v.maxSize || int64(len(data)) > v.maxSize {
		return Result{
			Reason: types.ReasonTooLarge,
			Detail: fmt.Sprintf("file exceeds %d bytes", v.maxSize),
		}
	}

	if len(data) == 0 {
		return Result{Reason: types.ReasonEmpty, Detail: "file is empty"}
	}

	if err := CheckStructure(data); err != nil {
		return Result{Reason: types.ReasonCorruptPDF, Detail: err.Error()}
	}

	if v.pages != nil {
		n, err := v.pages.CountPages(data)
		if err != nil {
			return Result{Reason: types.ReasonCorruptPDF, Detail: fmt.Sprintf("cannot read pages: %v", err)}
		}

		if n == 0 {
			return Result{Reason: types.ReasonCorruptPDF, Detail: "PDF file appears to be empty"}
		}
	}

	return Result{}
}

func (v *Validator) allowedExtension(fileName string) bool {
	ext := filepath.Ext(strings.TrimSpace(fileName))

	for _, allowed := range v.extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}

	return false
}
