package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

var validate = validator.New()

// validateRequest runs struct validation and converts failures into a
// field-level ErrValidation.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &apperrors.ErrValidation{Message: err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields[fe.Namespace()] = fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		} else {
			fields[fe.Namespace()] = fmt.Sprintf("failed %s", fe.Tag())
		}
	}
	return &apperrors.ErrValidation{Message: "validation failed", Fields: fields}
}
