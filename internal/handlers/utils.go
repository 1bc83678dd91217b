package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"livechat/internal/apperr"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// RespondWithJSON marshals a payload to JSON, sets the appropriate headers,
// and writes the response with a given status code.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		// If marshaling fails, it's a server-side programming error.
		log.Printf("!!! CRITICAL: Failed to marshal JSON response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to serialize response"}`)) // Fallback response
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes a single JSON error body with the code string
// derived from the status.
func RespondWithError(w http.ResponseWriter, status int, message string) {
	RespondWithStatusError(w, apperr.New(status, message))
}

// RespondWithStatusError relays a StatusError to the client verbatim.
func RespondWithStatusError(w http.ResponseWriter, serr *apperr.StatusError) {
	RespondWithJSON(w, serr.Status, serr)
}

// RespondWithValidationErrors reports a failed payload validation as an
// array of error objects, one per failing field, with status 417.
func RespondWithValidationErrors(w http.ResponseWriter, errs []apperr.ValidationError) {
	RespondWithJSON(w, http.StatusExpectationFailed, errs)
}

// parseIDFromURL extracts a numeric ID from a URL parameter using Chi.
// It returns an error if the parameter is not a valid integer.
func parseIDFromURL(r *http.Request, key string) (int, error) {
	idStr := chi.URLParam(r, key)
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// validationMessages converts validator errors into the per-field message
// identifiers used on the wire (e.g. "msg:min_length").
func validationMessages(err error) []apperr.ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.ValidationError{{Field: "", Message: err.Error()}}
	}
	out := make([]apperr.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldName(fe)
		out = append(out, apperr.ValidationError{Field: field, Message: field + ":" + tagMessage(fe.Tag())})
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "StreamID":
		return "streamId"
	case "Msg":
		return "msg"
	case "BlockedID":
		return "blockedId"
	case "BlockedNickname":
		return "blockedNickname"
	default:
		return fe.Field()
	}
}

func tagMessage(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "min":
		return "min_length"
	case "max":
		return "max_length"
	case "gt":
		return "greater_than"
	default:
		return tag
	}
}
