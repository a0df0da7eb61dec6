package sockline

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

const (
	// ConnectionError covers connections that were never established or
	// were refused outright.
	ConnectionError = iota

	// ProtocolError covers fatal close classifications from the peer.
	ProtocolError

	// TransientError covers recoverable network blips.
	TransientError

	// TimedOutError covers connect, disconnect, and heartbeat timeouts.
	TimedOutError

	// QueueOverflowError reports a counted, non-fatal queue drop.
	QueueOverflowError

	// RateLimitDeferredError reports a non-fatal requeue caused by the
	// rate limiter denying a flush attempt.
	RateLimitDeferredError

	// DisconnectedError reports an operation that requires a live client.
	DisconnectedError

	// InvalidURIError reports an unparseable target address.
	InvalidURIError

	// UnknownError is the fallback code.
	UnknownError
)

// Error is the typed error produced by NewError. Code is one of the
// package error constants.
type Error struct {
	Code    int
	Message string
}

// Error returns the formatted error text.
func (e *Error) Error() string {
	name := errorName(e.Code)
	if e.Message == "" {
		return name
	}
	return name + ": " + e.Message
}

func errorName(code int) string {
	switch code {
	case ConnectionError:
		return "ConnectionError"
	case ProtocolError:
		return "ProtocolError"
	case TransientError:
		return "TransientError"
	case TimedOutError:
		return "TimedOutError"
	case QueueOverflowError:
		return "QueueOverflowError"
	case RateLimitDeferredError:
		return "RateLimitDeferredError"
	case DisconnectedError:
		return "DisconnectedError"
	case InvalidURIError:
		return "InvalidURIError"
	default:
		return "UnknownError"
	}
}

// NewError returns a typed error for the given code with an optional
// message value.
func NewError(errorCode int, message ...interface{}) error {
	e := &Error{Code: errorCode}
	if len(message) > 0 {
		e.Message = fmt.Sprintf("%v", message[0])
	}
	return e
}

// ErrorCode extracts the package error code from err, or UnknownError
// when err was not produced by NewError.
func ErrorCode(err error) int {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return UnknownError
}

// severity is the reconnection eligibility of a classified failure.
type severity int

const (
	// severityFatal stops reconnection and surfaces a terminal error.
	severityFatal severity = iota
	// severityRecoverable is always eligible for retry and does not
	// consume the attempt budget.
	severityRecoverable
	// severityTransient is eligible for retry while attempts remain.
	severityTransient
)

// classifyCloseCode maps a transport close code to a severity.
func classifyCloseCode(code int) severity {
	switch code {
	case websocket.CloseProtocolError,
		websocket.CloseUnsupportedData,
		websocket.ClosePolicyViolation,
		websocket.CloseMessageTooBig:
		return severityFatal
	case websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure:
		return severityRecoverable
	default:
		return severityTransient
	}
}

// closeCodeError builds the recorded error for an unexpected close.
func closeCodeError(code int, reason string) error {
	text := fmt.Sprintf("connection closed (code %d)", code)
	if reason != "" {
		text = fmt.Sprintf("connection closed (code %d): %s", code, reason)
	}
	if classifyCloseCode(code) == severityFatal {
		return NewError(ProtocolError, text)
	}
	return NewError(TransientError, text)
}
