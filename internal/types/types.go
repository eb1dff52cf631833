package types

import (
	"errors"
	"fmt"
)

// Mode selects the target format of a conversion
type Mode string

const (
	ModeDocx        Mode = "docx"
	ModeSpreadsheet Mode = "xlsx"
)

// Reason is the failure taxonomy shared by every stage of a request
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonWrongExtension Reason = "wrong_extension"
	ReasonTooLarge       Reason = "too_large"
	ReasonEmpty          Reason = "empty"
	ReasonCorruptPDF     Reason = "corrupt_pdf"
	ReasonStorage        Reason = "storage_error"
	ReasonConversion     Reason = "conversion_error"
	ReasonNotFound       Reason = "not_found"
	ReasonBadRequest     Reason = "bad_request"
	ReasonForbidden      Reason = "forbidden"
)

// UploadRequest is one inbound file, alive for the duration of a single request
type UploadRequest struct {
	FileName     string
	DeclaredSize int64
	Data         []byte
	Mode         Mode
}

// Error carries a Reason together with the underlying cause
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}

	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a reason
func NewError(reason Reason, err error) error {
	return &Error{Reason: reason, Err: err}
}

// Errorf formats a new error tagged with reason
func Errorf(reason Reason, format string, args ...any) error {
	return &Error{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// ReasonOf extracts the Reason from err, defaulting to ReasonConversion for untagged errors
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}

	return ReasonConversion
}
