package template

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound is returned by loaders for unknown template names.
var ErrTemplateNotFound = errors.New("template not found")

// ParseError aborts compilation of a template.
type ParseError struct {
	Template string
	Line     int
	Column   int
	Message  string
}

func (e *ParseError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Template, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// RenderError locates an evaluation failure in the template source.
type RenderError struct {
	Template string
	Line     int
	Column   int
	Err      error
}

func (e *RenderError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("%s:%d:%d: %v", e.Template, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// UndefinedError is raised when an undefined value is used for anything
// other than printing or testing.
type UndefinedError struct {
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("'%s' is undefined", e.Name)
}
