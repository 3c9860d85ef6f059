package service

import (
	"errors"
	"fmt"

	"github.com/threadline/backend/internal/access"
	"github.com/threadline/backend/internal/model"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrLocked        = errors.New("comment is locked")
	ErrRateLimited   = errors.New("rate limited")
	ErrMisconfigured = errors.New("config invalid")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// gate runs the role check and folds its errors into the service sentinels.
func gate(role model.Role, action access.Action) error {
	if err := access.Check(role, action); err != nil {
		if errors.Is(err, access.ErrUnknownAction) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return nil
}
