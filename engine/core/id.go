package core

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is an opaque unique identifier for documents and conversations.
type ID string

func (i ID) String() string {
	return string(i)
}

func (i ID) IsZero() bool {
	return i == ""
}

// NewID generates a new random identifier.
func NewID() (ID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("core: generate id: %w", err)
	}
	return ID(id.String()), nil
}

// MustNewID generates a new identifier and panics on failure.
func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}
