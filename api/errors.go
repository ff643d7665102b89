package api

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"

	log "github.com/freundallein/todo/backend/chassis/logging"
)

// HTTPError is the body of every non-validation error response.
type HTTPError struct {
	Detail string `json:"detail"`
}

// ValidationDetail describes one rejected input.
type ValidationDetail struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// HTTPValidationError is returned with 422.
type HTTPValidationError struct {
	Detail []ValidationDetail `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithFields(log.Fields{
			"event": "response_encode_failed",
		}).Error(err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, HTTPError{Detail: detail})
}

func writeValidation(w http.ResponseWriter, details ...ValidationDetail) {
	writeJSON(w, http.StatusUnprocessableEntity, HTTPValidationError{Detail: details})
}

// schemaErrorTypes maps schema keywords to the error types in 422 bodies.
var schemaErrorTypes = map[string]string{
	"required":  "missing",
	"minLength": "string_too_short",
	"type":      "type_error",
	"nullable":  "type_error",
}

// validationDetails flattens openapi3filter errors into a detail list.
func validationDetails(err error) []ValidationDetail {
	var details []ValidationDetail
	var walk func(loc []interface{}, err error)
	walk = func(loc []interface{}, err error) {
		switch e := err.(type) {
		case openapi3.MultiError:
			for _, inner := range e {
				walk(loc, inner)
			}
		case *openapi3filter.RequestError:
			where := loc
			if e.Parameter != nil {
				where = []interface{}{e.Parameter.In, e.Parameter.Name}
			} else if e.RequestBody != nil {
				where = []interface{}{"body"}
			}
			if e.Err == nil {
				details = append(details, ValidationDetail{Loc: where, Msg: e.Reason, Type: "value_error"})
				return
			}
			walk(where, e.Err)
		case *openapi3.SchemaError:
			where := append([]interface{}{}, loc...)
			for _, key := range e.JSONPointer() {
				where = append(where, key)
			}
			kind, ok := schemaErrorTypes[e.SchemaField]
			if !ok {
				kind = "value_error"
			}
			details = append(details, ValidationDetail{Loc: where, Msg: e.Reason, Type: kind})
		default:
			details = append(details, ValidationDetail{Loc: loc, Msg: err.Error(), Type: "value_error"})
		}
	}
	walk([]interface{}{}, err)
	return details
}
