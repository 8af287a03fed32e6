package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// fieldLabels names request fields the way operators know them.
var fieldLabels = map[string]string{
	"employeeId":       "employee id",
	"type":             "punch type",
	"timestamp":        "punch timestamp",
	"deviceId":         "device id",
	"baseUrl":          "ERP base URL",
	"login":            "login name",
	"password":         "password",
	"db":               "database",
	"targetUrl":        "relay target URL",
	"payload":          "JSON-RPC payload",
	"ids":              "transaction ids",
	"status":           "upload status",
	"from":             "from date",
	"to":               "to date",
	"frequencyMinutes": "push frequency (minutes)",
	"batchSize":        "batch size",
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// FieldLabel is "<label> (<json name>)" for known fields, else the json name.
func FieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return fmt.Sprintf("%s (%s)", label, field)
	}
	return field
}

func FormatBindingError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, io.EOF) {
		return "request body is empty"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("invalid JSON at byte offset %d", syntaxErr.Offset)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s should be a %s", FieldLabel(typeErr.Field), typeErr.Type.String())
	}

	var dateErr *DateError
	if errors.As(err, &dateErr) {
		return dateErr.Error()
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve))
		for _, fe := range ve {
			out = append(out, formatFieldError(fe))
		}
		return strings.Join(out, ", ")
	}

	return err.Error()
}

func formatFieldError(fe validator.FieldError) string {
	field := FieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
}
