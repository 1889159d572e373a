package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrInvalidContact  = errors.New("invalid contact")
)

type Telephone struct {
	Mobile string `json:"mobile" validate:"required,phone"`
	Home   string `json:"home" validate:"omitempty,phone"`
}

type Contact struct {
	ID        string    `json:"id"`
	Username  string    `json:"username" validate:"required"`
	Email     string    `json:"email" validate:"required,email_shape"`
	Telephone Telephone `json:"telephone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContactInput is the payload of a create request.
type ContactInput struct {
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Telephone TelephoneInput `json:"telephone"`
}

type TelephoneInput struct {
	Mobile string `json:"mobile"`
	Home   string `json:"home"`
}

// ContactPatch is the payload of an update request. Nil fields keep their
// stored value.
type ContactPatch struct {
	Username  *string         `json:"username,omitempty"`
	Email     *string         `json:"email,omitempty"`
	Telephone *TelephonePatch `json:"telephone,omitempty"`
}

type TelephonePatch struct {
	Mobile *string `json:"mobile,omitempty"`
	Home   *string `json:"home,omitempty"`
}

type DeleteResult struct {
	ID string `json:"id"`
}

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidContact
}

// StorageError wraps a backend failure the repository does not interpret.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
