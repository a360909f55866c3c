package notify

import "errors"

var (
	// ErrSendFailed indicates the notification could not be delivered.
	ErrSendFailed = errors.New("notification send failed")
)
