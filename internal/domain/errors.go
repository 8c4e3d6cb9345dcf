package domain

import "errors"

var (
	ErrNotFound = errors.New("resource not found")

	// ErrNotReady marks a record that exists but whose pipeline has not
	// completed. Handlers must surface it distinctly from ErrNotFound.
	ErrNotReady = errors.New("processing not complete")

	ErrForbidden = errors.New("subject does not own this resource")

	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)
