package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any repository lookup miss via errors.Is.
var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	entityName string
}

func NewNotFoundError(entityName string) *NotFoundError {
	return &NotFoundError{entityName: entityName}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.entityName)
}

func (e *NotFoundError) Is(err error) bool {
	if err == ErrNotFound {
		return true
	}
	_, ok := err.(*NotFoundError)
	return ok
}
