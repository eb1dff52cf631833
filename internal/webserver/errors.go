package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pdfconvert/internal/types"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeUpload     ErrorType = "upload"
	ErrorTypeFileIO     ErrorType = "file_io"
	ErrorTypeConversion ErrorType = "conversion"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeInternal   ErrorType = "internal"
)

// ErrorResponse is the JSON body of every failed request. It never carries
// the underlying error text, which may contain filesystem paths.
type ErrorResponse struct {
	Success     bool      `json:"success"`
	Error       string    `json:"error"`
	Type        ErrorType `json:"type"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Status      int       `json:"-"`
}

type errorCategory struct {
	errType     ErrorType
	status      int
	suggestions int
}

var categories = map[types.Reason]errorCategory{
	types.ReasonWrongExtension: {ErrorTypeValidation, http.StatusBadRequest, 1},
	types.ReasonTooLarge:       {ErrorTypeValidation, http.StatusRequestEntityTooLarge, 1},
	types.ReasonEmpty:          {ErrorTypeValidation, http.StatusBadRequest, 1},
	types.ReasonCorruptPDF:     {ErrorTypeValidation, http.StatusBadRequest, 2},
	types.ReasonBadRequest:     {ErrorTypeUpload, http.StatusBadRequest, 1},
	types.ReasonForbidden:      {ErrorTypeSecurity, http.StatusForbidden, 1},
	types.ReasonStorage:        {ErrorTypeFileIO, http.StatusInternalServerError, 1},
	types.ReasonConversion:     {ErrorTypeConversion, http.StatusInternalServerError, 2},
	types.ReasonNotFound:       {ErrorTypeNotFound, http.StatusNotFound, 0},
}

// CategorizeError maps an error to an English ErrorResponse
func CategorizeError(err error) ErrorResponse {
	return CategorizeErrorWithLang(err, "en")
}

// CategorizeErrorWithLang maps an error to an ErrorResponse using its Reason
func CategorizeErrorWithLang(err error, lang string) ErrorResponse {
	reason := types.ReasonOf(err)

	category, ok := categories[reason]
	if !ok {
		return ErrorResponse{
			Type:   ErrorTypeInternal,
			Code:   "internal",
			Title:  GetTranslation(lang, "error_internal_title"),
			Error:  GetTranslation(lang, "error_internal_description"),
			Status: http.StatusInternalServerError,
		}
	}

	code := string(reason)
	resp := ErrorResponse{
		Type:   category.errType,
		Code:   code,
		Title:  GetTranslation(lang, "error_"+code+"_title"),
		Error:  GetTranslation(lang, "error_"+code+"_description"),
		Status: category.status,
	}

	for i := 1; i <= category.suggestions; i++ {
		resp.Suggestions = append(resp.Suggestions, GetTranslation(lang, fmt.Sprintf("error_%s_suggestion_%d", code, i)))
	}

	return resp
}

// WriteErrorResponse writes a structured English error response as JSON
func WriteErrorResponse(w http.ResponseWriter, err error) {
	WriteErrorResponseWithLang(w, err, "en")
}

// WriteErrorResponseWithLang writes a structured error response as JSON with language support
func WriteErrorResponseWithLang(w http.ResponseWriter, err error, lang string) {
	writeErrorBody(w, CategorizeErrorWithLang(err, lang))
}

func writeErrorBody(w http.ResponseWriter, resp ErrorResponse) {
	writeJSON(w, resp.Status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
