package apperrors

import "errors"

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("invalid input")
	ErrInvalidRole      = errors.New("invalid role")
	ErrLastOwner        = errors.New("cannot remove last owner")
	ErrInvalidParent    = errors.New("parent model must belong to the same project")
)
