package api

import "fmt"

// errorBody is the shape the server uses for failure responses.
type errorBody struct {
	Detail string `json:"detail"`
}

// RequestError is returned for any non-success response. Detail carries
// the server-provided message when one could be decoded.
type RequestError struct {
	Status int
	Detail string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Request failed (%d)", e.Status)
}

// IsAuthStatus reports whether the error is a RequestError with an
// authentication-related status (401 or 403).
func IsAuthStatus(err error) bool {
	re, ok := err.(*RequestError)
	return ok && (re.Status == 401 || re.Status == 403)
}
