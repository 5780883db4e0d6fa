package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is shared across requests; the validator caches struct metadata
// on first use.
var validate = validator.New()

// Validatable lets a request type replace tag validation with its own
// cross-field checks.
type Validatable interface {
	Validate() error
}

// DecodeJSON decodes the request body into v. Unknown fields and trailing
// content after the first JSON value are rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// ValidateRequest runs the type's own Validate method when it has one, and
// the struct tag validator otherwise.
func ValidateRequest(v any) error {
	if vr, ok := v.(Validatable); ok {
		return vr.Validate()
	}
	return validate.Struct(v)
}
