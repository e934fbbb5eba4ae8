package authclient

import "fmt"

// LoginError is returned when the identity provider reports a failed login
type LoginError struct {
	Code        string
	Description string
}

func (e *LoginError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("identity provider rejected login: %s", e.Code)
	}
	return fmt.Sprintf("identity provider rejected login: %s (%s)", e.Description, e.Code)
}
