package services

import (
	"strings"

	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
)

// validationError folds validator messages into a single ErrValidation.
func validationError(problems []error) error {
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, p.Error())
	}
	return errors.Wrap(errs.ErrValidation, strings.Join(msgs, "; "))
}
