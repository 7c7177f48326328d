package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"popquiz-service/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate performs the structural shape check on a question set: it must be
// non-empty and every question needs text, at least one option and a correct
// answer. Whether the correct answer is one of the options is not checked.
func Validate(questions []domain.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: question set is empty", domain.ErrMalformedQuizData)
	}
	for i := range questions {
		if err := validate.Struct(questions[i]); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return fmt.Errorf("%w: question %d: missing %s", domain.ErrMalformedQuizData, i, verrs[0].Field())
			}
			return fmt.Errorf("%w: question %d: %v", domain.ErrMalformedQuizData, i, err)
		}
	}
	return nil
}
