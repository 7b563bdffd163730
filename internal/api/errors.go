package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the failure classes of a gateway call.
type Kind int

const (
	// KindTransport means no response was received (connection refused,
	// DNS failure, connection reset mid-response).
	KindTransport Kind = iota
	// KindTimeout means the client-side deadline elapsed before a
	// response arrived.
	KindTimeout
	// KindServer means the server answered with a non-2xx status.
	KindServer
	// KindRequest means the request could not be constructed or sent
	// due to a local fault (bad URL, unmarshalable body).
	KindRequest
)

// Error is the single error shape raised by every gateway operation.
// StatusCode is 0 for everything except KindServer.
type Error struct {
	Kind       Kind
	StatusCode int
	StatusText string
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d %s)", e.Message, e.StatusCode, e.StatusText)
	}
	return e.Message
}

const (
	msgNoResponse     = "no response received"
	msgRequestTimeout = "request timeout"
	msgBadRequest     = "request could not be constructed"
)

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf("%s: %v", msgNoResponse, err)}
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf("%s: %v", msgRequestTimeout, err)}
}

func requestError(err error) *Error {
	return &Error{Kind: KindRequest, Message: fmt.Sprintf("%s: %v", msgBadRequest, err)}
}

func serverError(code int, message string) *Error {
	text := http.StatusText(code)
	if message == "" {
		message = text
	}
	return &Error{Kind: KindServer, StatusCode: code, StatusText: text, Message: message}
}

// AsError unwraps err into the gateway error shape.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFound reports whether err is a server 404 response.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindServer && e.StatusCode == http.StatusNotFound
}

// IsTimeout reports whether err is a client-side request timeout.
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindTimeout
}
