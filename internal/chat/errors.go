package chat

import "errors"

// Error kinds for domain errors. These travel verbatim inside RPC faults.
const (
	KindInvalidArgument  = "invalid_argument"
	KindStoreUnavailable = "store_unavailable"
)

// Error wraps a machine-readable kind and human-readable message.
type Error struct {
	Kind    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func invalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func storeUnavailable(msg string, cause error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: msg, cause: cause}
}

// Kind extracts the domain error kind from err, or "" if err is not a
// domain error.
func Kind(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}
