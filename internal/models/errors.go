package models

import "errors"

var (
	ErrUnauthorized   = errors.New("not authorized")
	ErrNotFound       = errors.New("not found")
	ErrMalformed      = errors.New("malformed input")
	ErrNoFiles        = errors.New("no files received")
	ErrOwnerImmutable = errors.New("the owner cannot be removed")
)
