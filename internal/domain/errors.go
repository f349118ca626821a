package domain

import "errors"

// Error kinds shared across the service layer. Handlers translate these to
// HTTP statuses with errors.Is; wrap them with fmt.Errorf to attach detail.
var (
	ErrValidation        = errors.New("invalid request")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrItemUnavailable   = errors.New("menu item unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
)
