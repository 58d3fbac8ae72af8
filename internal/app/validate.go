package app

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kimhsiao/fixdesk/backend/internal/errors"
)

// check validates v against its `validate` tags and reports failures as a
// single VALIDATION_ERROR naming each offending field.
func (a *App) check(v interface{}) error {
	err := a.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrValidation, "invalid input", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" "+fe.Tag())
	}
	sort.Strings(fields)
	return errors.New(errors.ErrValidation, "invalid input: "+strings.Join(fields, ", "))
}
