package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrCorrupt         = errors.New("corrupt data")
	ErrConflict        = errors.New("concurrent modification")
	ErrAlreadyReviewed = errors.New("already reviewed")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownField    = errors.New("unknown field")
)

func NewError(model string, err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(model), err)
}
