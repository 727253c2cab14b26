// Package service holds the business operations behind the HTTP API and the
// analysis worker: entity maintenance and book association.
package service

import (
	"errors"
	"fmt"

	domainerrors "github.com/listenupapp/catalog-resolver/internal/errors"
	"github.com/listenupapp/catalog-resolver/internal/store"
)

// storeError translates a store error into a coded domain error. what names
// the resource for the message, e.g. `publisher 4`.
func storeError(err error, what string) error {
	if err == nil {
		return nil
	}

	var se *store.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", what).WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExistsf("%s already exists", what).WithCause(err)
	case errors.Is(err, store.ErrInvalidInput) && errors.As(err, &se):
		return domainerrors.Validation(se.Message).WithCause(err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
