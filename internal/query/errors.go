package query

import "fmt"

// DispatchError carries the HTTP status a dispatch failure should produce
// alongside its message, per the status table in the query pipeline
// contract (400 parse, 404 table, 422 user error, 500 internal).
type DispatchError struct {
	Status  int
	Message string
}

func (e *DispatchError) Error() string {
	return e.Message
}

func newError(status int, format string, args ...interface{}) *DispatchError {
	return &DispatchError{Status: status, Message: fmt.Sprintf(format, args...)}
}
