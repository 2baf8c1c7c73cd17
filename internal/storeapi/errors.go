package storeapi

import (
	"fmt"
	"strings"
)

// NetworkError reports a failed cart read: the transport failed or the
// service answered with a non-success status.
type NetworkError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return describe("storeapi: "+e.Op, e.Status, e.Code, e.Message, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MutationError reports a failed update-item or remove-item call.
type MutationError struct {
	Op      string
	Key     string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	return describe(fmt.Sprintf("storeapi: %s %q", e.Op, e.Key), e.Status, e.Code, e.Message, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// MalformedPayloadError describes a field that was missing or had the wrong
// shape. Inside a cart payload these are recovered by substitution and kept on
// Cart.Anomalies; only an unreadable top-level body is returned as an error.
type MalformedPayloadError struct {
	Field  string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	if e.Field == "" {
		return "storeapi: malformed payload: " + e.Reason
	}
	return fmt.Sprintf("storeapi: malformed payload at %s: %s", e.Field, e.Reason)
}

func describe(prefix string, status int, code, message string, err error) string {
	var b strings.Builder
	b.WriteString(prefix)
	if status > 0 {
		fmt.Fprintf(&b, " returned status %d", status)
	}
	if code != "" {
		b.WriteString(" (" + code + ")")
	}
	if message != "" {
		b.WriteString(": " + message)
	}
	if err != nil {
		b.WriteString(": " + err.Error())
	}
	return b.String()
}
