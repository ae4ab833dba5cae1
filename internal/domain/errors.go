package domain

import "errors"

var (
	ErrNotFound     = errors.New("progress record not found")
	ErrInvalidInput = errors.New("invalid input")
)
