package domain

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrMissingCreation = errors.New("order has no creation date")
)
