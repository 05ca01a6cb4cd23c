package models

import "errors"

var (
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("configuration error")
	ErrNoImage       = errors.New("no image returned")
	ErrTransform     = errors.New("transform failed")
)
