//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const notBlankTag = "notblank"

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

func instance() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		// Report JSON field names rather than Go struct names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && strings.TrimSpace(s) != ""
		})
		_ = validate.RegisterTranslation(notBlankTag, translator,
			func(ut.Translator) error { return nil },
			func(_ ut.Translator, _ validator.FieldError) string { return "this field cannot be blank" },
		)
	})
	return validate, translator
}

// FieldErrors maps JSON field names to human-readable messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks v against its `validate` struct tags.
// Field failures are returned as FieldErrors.
func Validate(v any) error {
	val, trans := instance()
	err := val.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(trans)
	}
	return out
}
