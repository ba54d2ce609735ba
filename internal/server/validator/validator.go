// Package validator configures gin's validation engine and translates
// raw validation errors into field-level messages.
package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type Validator struct {
	trans ut.Translator
}

// New configures the binding validator to report json field names and
// registers the english translations.
func New() *Validator {
	val := &Validator{}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		val.trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v, val.trans)
	}

	return val
}

// ParseError converts raw technical errors into a clean field map.
func (v *Validator) ParseError(err error) map[string]string {
	errMap := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			ns := e.Namespace()
			if i := strings.Index(ns, "."); i != -1 {
				ns = ns[i+1:]
			}

			msg := e.Error()
			if v.trans != nil {
				msg = e.Translate(v.trans)
			}
			if e.Tag() == "oneof" {
				msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
			}

			errMap[ns] = msg
		}
		return errMap
	}

	errMap["body"] = "Invalid request body format."
	return errMap
}
