package domain

import (
	"strings"
)

// Card represents a single board item persisted by the card store.
type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
}

// MissingFieldError reports a card field required by a FieldPolicy.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "card " + e.Field + " is required"
}

// FieldPolicy decides which card fields an upsert must carry. The id is
// always required because it is the storage key.
type FieldPolicy int

const (
	// Lenient accepts cards without title or category and stores them absent.
	Lenient FieldPolicy = iota
	// Strict rejects cards missing a title or a category.
	Strict
)

// Check validates the card against the policy.
func (p FieldPolicy) Check(c Card) error {
	if strings.TrimSpace(c.ID) == "" {
		return missing("id")
	}
	if p != Strict {
		return nil
	}
	if strings.TrimSpace(c.Title) == "" {
		return missing("title")
	}
	if strings.TrimSpace(c.Category) == "" {
		return missing("category")
	}
	return nil
}

func (p FieldPolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

func missing(field string) error {
	return &MissingFieldError{Field: field}
}
