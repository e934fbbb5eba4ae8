package agent

import "fmt"

// RejectError is returned when the game service rejects a call
type RejectError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns the service's message unchanged so callers can show it to users
func (e *RejectError) Error() string {
	return e.Message
}

// ErrorResponse wraps a RejectError on the wire
type ErrorResponse struct {
	Error RejectError `json:"error"`
}

func (e *RejectError) String() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}
