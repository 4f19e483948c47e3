package errors

import "fmt"

var (
	ErrMissingToken         = fmt.Errorf("no token provided")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrEmptyContent         = fmt.Errorf("message content cannot be empty")
	ErrContentTooLong       = fmt.Errorf("message content exceeds maximum length")
	ErrUnknownNotifType     = fmt.Errorf("unknown notification type")
	ErrNotificationNotFound = fmt.Errorf("notification not found")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)
