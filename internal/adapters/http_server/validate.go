package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json names, not Go field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// Unknown fields are rejected. The returned error is safe to show to the client.
func decodeAndValidate(r *http.Request, dst any) error {
	return decodeBody(r, dst, true)
}

// decodeLenient is decodeAndValidate for envelopes that callers may extend
// with their own keys (request ids, tracing hints).
func decodeLenient(r *http.Request, dst any) error {
	return decodeBody(r, dst, false)
}

func decodeBody(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &typeErr):
			return fmt.Errorf("field %q must be %s", typeErr.Field, typeErr.Type.String())
		default:
			return fmt.Errorf("malformed JSON: %s", err.Error())
		}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// fieldPath names nested fields by their json path, e.g. "flight.from".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	f := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f)
	case "min":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", f)
	case "len":
		return fmt.Sprintf("%s must be %s characters", f, fe.Param())
	case "alpha":
		return fmt.Sprintf("%s must contain letters only", f)
	default:
		return fmt.Sprintf("%s failed %s validation", f, fe.Tag())
	}
}
