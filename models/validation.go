package models

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/leebenson/conform"
)

// MaxCommentWords bounds the number of whitespace separated words in a comment.
const MaxCommentWords = 100

var (
	validateOnce sync.Once
	validate     *validator.Validate
	trans        ut.Translator
)

func validatorInstance() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		validate = validator.New()
		english := en.New()
		uni := ut.New(english, english)
		trans, _ = uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return Category(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("maxwords", func(fl validator.FieldLevel) bool {
			return len(strings.Fields(fl.Field().String())) <= MaxCommentWords
		})
	})
	return validate, trans
}

// ValidateStruct trims the conform-tagged string fields of req in place and
// runs the validate tags. The returned messages are human readable.
func ValidateStruct(req interface{}) []error {
	if err := validateWhiteSpaces(req); err != nil {
		return []error{err}
	}
	v, t := validatorInstance()
	return translateError(v.Struct(req), t)
}

func validateWhiteSpaces(data interface{}) error {
	return conform.Strings(data)
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}

// CommentInput is the caller-side shape of a new comment.
type CommentInput struct {
	Text string `json:"text" validate:"required,max=500,maxwords" conform:"trim"`
}

// ValidateCommentText checks the bounds on comment text: non-empty, at most
// 500 runes and MaxCommentWords words.
func ValidateCommentText(text string) []error {
	in := CommentInput{Text: text}
	return ValidateStruct(&in)
}
