package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxJSONBodySize bounds decoded request bodies
const MaxJSONBodySize = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields under their JSON names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateRequest validates a struct against its validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeJSON decodes a JSON request body, rejecting unknown fields and
// trailing data
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var out []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			out = append(out, ValidationError{
				Field:   fieldPath(e),
				Message: getErrorMessage(e),
			})
		}
	}

	return out
}

// fieldPath drops the root struct name from the namespace
// ("CheckoutRequest.customer.email" -> "customer.email")
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Ce champ est obligatoire"
	case "email":
		return "Adresse e-mail invalide"
	case "url":
		return "URL invalide"
	case "len":
		return fmt.Sprintf("Doit contenir exactement %s caractères", e.Param())
	case "min":
		if isNumber(e.Kind()) {
			return "Doit être supérieur ou égal à " + e.Param()
		}
		return "Valeur trop courte (minimum " + e.Param() + ")"
	case "max":
		if isNumber(e.Kind()) {
			return "Doit être inférieur ou égal à " + e.Param()
		}
		return "Valeur trop longue (maximum " + e.Param() + ")"
	case "oneof":
		return "Valeur attendue parmi : " + e.Param()
	case "gte":
		return "Doit être supérieur ou égal à " + e.Param()
	case "lte":
		return "Doit être inférieur ou égal à " + e.Param()
	case "gt":
		return "Doit être supérieur à " + e.Param()
	case "lt":
		return "Doit être inférieur à " + e.Param()
	default:
		return "Valeur invalide"
	}
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
