package filter

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ListRequest carries the paging part of a list request.
type ListRequest struct {
	Page    int `validate:"gte=1"`
	PerPage int `validate:"gte=1,lte=500"`
}

// ExportRequest carries the export options of a download request.
type ExportRequest struct {
	Format string `validate:"required,oneof=pdf xlsx csv"`
	Scope  string `validate:"required,oneof=page all"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a request struct against its validate tags. The first
// failing field is reported as a *domain.ValidationError.
func Validate(req any) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	field := lowerFirst(fe.Field())
	return &domain.ValidationError{Field: field, Message: describe(field, fe)}
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
