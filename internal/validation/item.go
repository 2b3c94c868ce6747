package validation

import (
	"strings"
	"unicode/utf8"

	"itemsapi/internal/domain"
)

// ItemValidator checks create requests. Lengths are counted in characters,
// not bytes.
type ItemValidator struct {
	maxNameLength        int
	maxDescriptionLength int
}

func NewItemValidator(maxNameLength, maxDescriptionLength int) *ItemValidator {
	return &ItemValidator{
		maxNameLength:        maxNameLength,
		maxDescriptionLength: maxDescriptionLength,
	}
}

func (v *ItemValidator) ValidateCreate(req *domain.CreateItemRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ErrEmptyName
	}

	if utf8.RuneCountInString(req.Name) > v.maxNameLength {
		return ErrNameTooLong
	}

	if req.Description != nil && utf8.RuneCountInString(*req.Description) > v.maxDescriptionLength {
		return ErrDescriptionTooLong
	}

	return nil
}
