package core

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"bloomwatch/internal/types"
)

// Validator wraps go-playground/validator with domain-specific rules and
// AppError translation so handlers return structured 400s instead of raw
// validator messages.
type Validator struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	// day_of_year: 1-366 inclusive, 0 meaning "derive from timestamp".
	_ = v.RegisterValidation("day_of_year", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= 0 && d <= 366
	})

	return &Validator{
		logger:   logger,
		validate: v,
	}
}

// ValidateStruct validates a request struct against its `validate` tags and
// converts any failure into a *types.AppError with per-field details.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request failed validation",
		err,
		details,
	)
}
