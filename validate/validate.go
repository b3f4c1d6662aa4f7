// Package validate wraps go-playground/validator with english
// translations and uuid helpers for resource ids.
package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var validate *validator.Validate

var translator ut.Translator

func init() {

	validate = validator.New()

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
}

// Check validates val against its struct tags, returning a single
// error listing every translated field failure.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		msgs := make([]string, 0, len(verrors))
		for _, ve := range verrors {
			msgs = append(msgs, ve.Translate(translator))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	return nil
}

// GenerateID produces a new document id.
func GenerateID() string {
	return uuid.NewString()
}

// CheckID rejects ids that are not well-formed uuids.
func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("ID is not in its proper form")
	}
	return nil
}
