package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "collectdash/internal/errors"
)

// DefaultMaxBodySize bounds JSON request bodies.
const DefaultMaxBodySize = 1 << 20

// Validator decodes JSON bodies and checks their struct tags.
type Validator struct {
	validate    *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewValidator creates a validator that reports fields by their JSON names.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:    v,
		logger:      logger.With(slog.String("component", "request_validator")),
		maxBodySize: DefaultMaxBodySize,
	}
}

// DecodeJSON reads the request body into dst and validates it.
func (m *Validator) DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apierrors.NewValidationError("Request body is required")
	}
	body := io.LimitReader(r.Body, m.maxBodySize+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return apierrors.InvalidRequestWithError(err)
	}
	if int64(len(data)) > m.maxBodySize {
		return apierrors.NewWithDetails(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			"Request body exceeds maximum allowed size", map[string]int64{"max_size": m.maxBodySize})
	}
	if err := render.DecodeJSON(bytes.NewReader(data), dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierrors.NewValidationError("Request body is required")
		}
		return apierrors.New(http.StatusBadRequest, "INVALID_REQUEST", "Request body contains invalid JSON")
	}
	return m.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (m *Validator) ValidateStruct(v any) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_if":
		return fmt.Sprintf("%s is required for this role", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
	}
}

// ContentTypeValidator rejects bodies that are not one of contentTypes.
// Requests without a body are let through.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength == 0 || r.Method == http.MethodGet || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || !contains(contentTypes, mediaType) {
				renderProblem(w, r, http.StatusUnsupportedMediaType, apierrors.TypeValidation,
					"Content-Type must be one of: "+strings.Join(contentTypes, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
