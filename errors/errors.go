package errors

import "fmt"

var (
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidRegistration = fmt.Errorf("invalid registration details")
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrNotFound            = fmt.Errorf("resource not found")
	ErrBackend             = fmt.Errorf("backend request failed")
	ErrConnectionUsed      = fmt.Errorf("push connection already used")
	ErrConnectionClosed    = fmt.Errorf("push connection closed")
	ErrEmptyMessage        = fmt.Errorf("empty message content")
	ErrUnknownChat         = fmt.Errorf("unknown chat id")
)
