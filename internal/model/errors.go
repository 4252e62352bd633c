package model

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("duplicate submission")
	ErrTooManyChoices  = errors.New("more choices requested than available")
)
