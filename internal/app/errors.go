package app

import "errors"

var (
	ErrValidation = errors.New("required field missing")
	ErrConflict   = errors.New("email already registered")
	ErrNotFound   = errors.New("no account with this email")
	ErrAuth       = errors.New("password mismatch")
	ErrForbidden  = errors.New("image not owned by caller")
	ErrFormat     = errors.New("file extension not allowed")
	ErrInference  = errors.New("image classification failed")
)
