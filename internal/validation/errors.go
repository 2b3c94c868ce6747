package validation

import "errors"

var (
	ErrEmptyName          = errors.New("name is required")
	ErrNameTooLong        = errors.New("name exceeds maximum length")
	ErrDescriptionTooLong = errors.New("description exceeds maximum length")
)
