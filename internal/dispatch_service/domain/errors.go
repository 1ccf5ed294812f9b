package domain

import "errors"

var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrRecipientNotFound is fatal to a job: nothing can be dispatched without a subscriber.
	ErrRecipientNotFound = errors.New("recipient not found")
)
