package store

import "errors"

var (
	ErrServiceNotFound      = errors.New("service not found")
	ErrServiceInactive      = errors.New("service inactive")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidState         = errors.New("invalid ticket state")
	ErrAlreadyServing       = errors.New("a ticket is already being served")
	ErrQueueEmpty           = errors.New("no waiting tickets")
	ErrWrongService         = errors.New("ticket belongs to another service")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrStorage              = errors.New("storage failure")
)
