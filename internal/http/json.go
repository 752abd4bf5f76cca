package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/domain/model"
	apperrors "github.com/auy/thinkers-portal/internal/errors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
// Only application/json bodies are accepted, so plain cross-site form posts never reach a handler.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	mt, _, ctErr := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ctErr != nil || mt != "application/json" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnsupportedMediaType,
			ErrCode: "unsupported_media_type",
			Err:     errors.New("request body must be application/json"),
		})
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	// Fields carries per-field validation messages when present.
	Fields map[string]string
}

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorBody{Error: p.ErrCode, Message: p.Err.Error(), Fields: p.Fields})
}

// authErrorStatus maps an authentication failure kind to its HTTP status.
func authErrorStatus(kind domainauth.ErrorKind) int {
	switch kind {
	case domainauth.KindInvalidCredentials:
		return http.StatusUnauthorized
	case domainauth.KindNotAuthorized:
		return http.StatusForbidden
	case domainauth.KindRealSessionActive:
		return http.StatusConflict
	case domainauth.KindPopupCancelled:
		return http.StatusBadRequest
	case domainauth.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps typed service errors to HTTP responses. Auth errors carry the
// user-facing message of their kind; the underlying cause is never echoed to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	if kind := domainauth.KindOf(err); kind != domainauth.KindNone {
		WriteError(w, ErrorParams{
			Code:    authErrorStatus(kind),
			ErrCode: string(kind),
			Err:     errors.New(kind.Message()),
		})
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: string(apperrors.ErrCodeInternal),
			Err:     errors.New("internal error"),
		})
		return
	}

	p := ErrorParams{Code: http.StatusInternalServerError, ErrCode: string(appErr.Code), Err: errors.New(appErr.Message)}
	switch appErr.Code {
	case apperrors.ErrCodeValidation:
		p.Code = http.StatusBadRequest
		var fe model.FieldErrors
		if errors.As(err, &fe) {
			p.Fields = fe
		} else if appErr.Field != "" {
			p.Fields = map[string]string{appErr.Field: appErr.Message}
		}
	case apperrors.ErrCodeForbidden:
		p.Code = http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		p.Code = http.StatusNotFound
	case apperrors.ErrCodeConflict:
		p.Code = http.StatusConflict
	case apperrors.ErrCodeUnavailable, apperrors.ErrCodeTimeout:
		p.Code = http.StatusServiceUnavailable
	case apperrors.ErrCodeCanceled:
		p.Code = http.StatusRequestTimeout
	default:
		p.Err = errors.New("internal error")
	}
	WriteError(w, p)
}
