package assertions

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
)

// ErrAssertionFailed matches every *AssertionError under errors.Is.
var ErrAssertionFailed = errors.New("assertion failed")

type AssertionError struct {
	Tag       string
	Template  string
	Line      int
	Column    int
	Predicate string
	Subject   string
	Message   string
}

func (e *AssertionError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Template, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertionFailed
}

func newAssertionError(ctx *template.Context, pos template.Position, tag, message string) *AssertionError {
	return &AssertionError{
		Tag:      tag,
		Template: ctx.TemplateName(),
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  message,
	}
}

// causeMessage strips the template location from err so assert_fails
// captures the message of the failure itself.
func causeMessage(err error) string {
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	var re *template.RenderError
	if errors.As(err, &re) && re.Err != nil {
		return re.Err.Error()
	}
	return err.Error()
}
